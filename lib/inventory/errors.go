package inventory

import (
	"fmt"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

type DuplicateObjectError struct {
	Object ir.Triple
}

func (e *DuplicateObjectError) Error() string {
	return fmt.Sprintf("duplicate object: %s", e.Object)
}

type UnknownReferenceError struct {
	Object ir.Triple
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference: %s", e.Object)
}

type UnknownIDError struct {
	ID int
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("no object with id %d", e.ID)
}
