package archive

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// The container is the table of contents as YAML behind a zstd stream.
// It is not the pg_dump custom format and pg_restore cannot read it; use
// a plain script for anything that has to be restored.
var magic = []byte("PGLCDUMP")

const containerVersion = 1

type document struct {
	Version    int      `yaml:"version"`
	DBName     string   `yaml:"dbname"`
	Encoding   string   `yaml:"encoding"`
	StdStrings bool     `yaml:"std_strings"`
	Entries    []*Entry `yaml:"entries"`
}

func sniffContainer(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "could not open %s", path)
	}
	defer f.Close()
	head := make([]byte, len(magic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, errors.Wrapf(err, "could not read %s", path)
	}
	return bytes.Equal(head[:n], magic), nil
}

func (self *Archive) saveContainer(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", path)
	}
	defer f.Close()
	if err := self.writeContainer(f); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	return f.Close()
}

func (self *Archive) writeContainer(w io.Writer) error {
	buf := bufio.NewWriter(w)
	if _, err := buf.Write(magic); err != nil {
		return err
	}
	enc, err := zstd.NewWriter(buf)
	if err != nil {
		return err
	}
	doc := &document{
		Version:    containerVersion,
		DBName:     self.DBName,
		Encoding:   self.Encoding,
		StdStrings: self.StdStrings,
		Entries:    self.entries,
	}
	ye := yaml.NewEncoder(enc)
	if err := ye.Encode(doc); err != nil {
		enc.Close()
		return err
	}
	if err := ye.Close(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return buf.Flush()
}

func loadContainer(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	defer f.Close()
	archive, err := readContainer(f)
	if err != nil {
		return nil, &InvalidArchiveError{Path: path, Err: err}
	}
	return archive, nil
}

func readContainer(r io.Reader) (*Archive, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	if !bytes.Equal(head, magic) {
		return nil, errors.New("missing archive header")
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	doc := &document{}
	if err := yaml.NewDecoder(dec).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "could not decode table of contents")
	}
	if doc.Version != containerVersion {
		return nil, errors.Errorf("unsupported archive version %d", doc.Version)
	}
	archive := &Archive{
		DBName:     doc.DBName,
		Encoding:   doc.Encoding,
		StdStrings: doc.StdStrings,
		byID:       map[int]*Entry{},
	}
	for _, e := range doc.Entries {
		if _, exists := archive.byID[e.ID]; exists {
			return nil, &DuplicateEntryError{ID: e.ID}
		}
		archive.entries = append(archive.entries, e)
		archive.byID[e.ID] = e
	}
	return archive, nil
}
