package archive

import "fmt"

type DuplicateEntryError struct {
	ID int
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("archive already has an entry with id %d", e.ID)
}

type InvalidArchiveError struct {
	Path string
	Err  error
}

func (e *InvalidArchiveError) Error() string {
	return fmt.Sprintf("%s is not a valid archive: %v", e.Path, e.Err)
}

func (e *InvalidArchiveError) Unwrap() error {
	return e.Err
}
