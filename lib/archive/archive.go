// Package archive is an in-memory table of contents of a database dump.
// It can be saved as a compressed container or as a plain SQL script,
// and loaded back from either of those or from a pg_dump plain format
// file.
package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
)

const (
	DescEncoding   = "ENCODING"
	DescStdStrings = "STDSTRINGS"
	DescSearchPath = "SEARCHPATH"
	DescTableData  = "TABLE DATA"
	DescComment    = "COMMENT"
	DescACL        = "ACL"

	// FirstID is the first id free after the session setup entries
	// every archive starts with
	FirstID = 4

	SectionNone     = "None"
	SectionPreData  = "Pre-Data"
	SectionData     = "Data"
	SectionPostData = "Post-Data"
)

// Entry is one object in the table of contents
type Entry struct {
	ID           int        `yaml:"id"`
	Desc         string     `yaml:"desc"`
	Section      string     `yaml:"section"`
	Namespace    string     `yaml:"namespace,omitempty"`
	Tag          string     `yaml:"tag"`
	Owner        string     `yaml:"owner,omitempty"`
	Tablespace   string     `yaml:"tablespace,omitempty"`
	Defn         string     `yaml:"defn,omitempty"`
	DropStmt     string     `yaml:"drop_stmt,omitempty"`
	CopyStmt     string     `yaml:"copy_stmt,omitempty"`
	Dependencies []int      `yaml:"dependencies,omitempty"`
	Data         *TableData `yaml:"data,omitempty"`
}

// EntryOptions are the fields callers supply for a new entry
type EntryOptions struct {
	ID           int
	Desc         string
	Section      string
	Namespace    string
	Tag          string
	Owner        string
	Tablespace   string
	Defn         string
	DropStmt     string
	Dependencies []int
}

// TableData holds the rows of a TABLE DATA entry. A nil value is NULL.
type TableData struct {
	Columns []string    `yaml:"columns"`
	Rows    [][]*string `yaml:"rows"`
}

type Archive struct {
	DBName     string
	Encoding   string
	StdStrings bool
	entries    []*Entry
	byID       map[int]*Entry
}

// New creates an archive holding only the session setup entries
func New(dbname, encoding string, stdstrings bool) *Archive {
	self := &Archive{
		DBName:     dbname,
		Encoding:   encoding,
		StdStrings: stdstrings,
		byID:       map[int]*Entry{},
	}
	self.seed()
	return self
}

func (self *Archive) seed() {
	onOff := "off"
	if self.StdStrings {
		onOff = "on"
	}
	seeds := []EntryOptions{
		{ID: 1, Desc: DescEncoding, Tag: DescEncoding, Defn: fmt.Sprintf("SET client_encoding = '%s';\n", self.Encoding)},
		{ID: 2, Desc: DescStdStrings, Tag: DescStdStrings, Defn: fmt.Sprintf("SET standard_conforming_strings = '%s';\n", onOff)},
		{ID: 3, Desc: DescSearchPath, Tag: DescSearchPath, Defn: "SELECT pg_catalog.set_config('search_path', '', false);\n"},
	}
	for _, opts := range seeds {
		opts.Section = SectionPreData
		_, _ = self.AddEntry(opts)
	}
}

func isSeed(desc string) bool {
	return desc == DescEncoding || desc == DescStdStrings || desc == DescSearchPath
}

// AddEntry appends an entry. Ids must be unique; a zero id takes the
// next one after MaxID.
func (self *Archive) AddEntry(opts EntryOptions) (*Entry, error) {
	if opts.ID == 0 {
		opts.ID = self.MaxID() + 1
	}
	if _, exists := self.byID[opts.ID]; exists {
		return nil, &DuplicateEntryError{ID: opts.ID}
	}
	if opts.Section == "" {
		opts.Section = SectionPreData
	}
	entry := &Entry{
		ID:         opts.ID,
		Desc:       opts.Desc,
		Section:    opts.Section,
		Namespace:  opts.Namespace,
		Tag:        opts.Tag,
		Owner:      opts.Owner,
		Tablespace: opts.Tablespace,
		Defn:       opts.Defn,
		DropStmt:   opts.DropStmt,
	}
	if len(opts.Dependencies) > 0 {
		entry.Dependencies = append([]int{}, opts.Dependencies...)
	}
	self.entries = append(self.entries, entry)
	self.byID[entry.ID] = entry
	return entry, nil
}

func (self *Archive) Entries() []*Entry {
	return self.entries
}

func (self *Archive) Get(id int) *Entry {
	return self.byID[id]
}

// Lookup finds the entry with the given description, namespace and tag
func (self *Archive) Lookup(desc, namespace, tag string) *Entry {
	for _, e := range self.entries {
		if e.Desc == desc && e.Namespace == namespace && e.Tag == tag {
			return e
		}
	}
	return nil
}

func (self *Archive) MaxID() int {
	max := 0
	for id := range self.byID {
		if id > max {
			max = id
		}
	}
	return max
}

// TableDataWriter collects rows for entry. The rows are attached to the
// entry on Close.
type TableDataWriter struct {
	entry  *Entry
	data   *TableData
	closed bool
}

func (self *Archive) TableDataWriter(entry *Entry, columns []string) *TableDataWriter {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sql.QuoteIdent(c)
	}
	target := sql.QuoteIdent(entry.Tag)
	if entry.Namespace != "" {
		target = sql.QuoteIdent(entry.Namespace) + "." + target
	}
	entry.CopyStmt = fmt.Sprintf("COPY %s (%s) FROM stdin;\n", target, strings.Join(quoted, ", "))
	return &TableDataWriter{
		entry: entry,
		data:  &TableData{Columns: append([]string{}, columns...)},
	}
}

func (self *TableDataWriter) Append(values []*string) error {
	if self.closed {
		return errors.Errorf("table data for %s is already closed", self.entry.Tag)
	}
	if len(values) != len(self.data.Columns) {
		return errors.Errorf("table data for %s: got %d values for %d columns",
			self.entry.Tag, len(values), len(self.data.Columns))
	}
	self.data.Rows = append(self.data.Rows, values)
	return nil
}

func (self *TableDataWriter) Close() error {
	if self.closed {
		return nil
	}
	self.closed = true
	self.entry.Data = self.data
	return nil
}

// Save writes the archive to path. A .sql extension writes a plain SQL
// script; anything else writes the compressed container.
func (self *Archive) Save(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".sql") {
		return self.savePlain(path)
	}
	return self.saveContainer(path)
}

// Load reads a container written by Save, or a pg_dump plain format file
func Load(path string) (*Archive, error) {
	isContainer, err := sniffContainer(path)
	if err != nil {
		return nil, err
	}
	if isContainer {
		return loadContainer(path)
	}
	return loadPlain(path)
}
