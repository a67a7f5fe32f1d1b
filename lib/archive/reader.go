package archive

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	encodingSet   = regexp.MustCompile(`^SET client_encoding = '([^']+)';`)
	stdStringsSet = regexp.MustCompile(`^SET standard_conforming_strings = '?(on|off)'?;`)
	ownerStmt     = regexp.MustCompile(`^ALTER [A-Z ]+ .+ OWNER TO .+;$`)
	sessionStmt   = regexp.MustCompile(`^(SET [a-z_]+ = .*|SELECT pg_catalog\.set_config\(.*\));$`)
)

type plainReader struct {
	archive    *Archive
	dbname     string
	encoding   string
	stdStrings bool
	current    *Entry
	body       []string
	data       *TableData
	inCopy     bool
}

func loadPlain(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	archive, err := ReadPlain(f, name)
	if err != nil {
		return nil, &InvalidArchiveError{Path: path, Err: err}
	}
	return archive, nil
}

// ReadPlain parses a pg_dump plain format script. Entries are split on
// the "-- Name: ...; Type: ...;" comment blocks pg_dump writes before
// each object. The script has no dependency list, so dependencies are
// taken from the relations and types each entry's SQL names.
func ReadPlain(r io.Reader, dbname string) (*Archive, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lines := []string{}
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	self := &plainReader{dbname: dbname, encoding: "UTF8", stdStrings: true}
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if self.inCopy {
			if line == `\.` {
				self.inCopy = false
				continue
			}
			self.appendRow(line)
			continue
		}
		if line == "--" && i+2 < len(lines) && lines[i+2] == "--" {
			if header, ok := parseHeader(lines[i+1]); ok {
				if err := self.finish(); err != nil {
					return nil, err
				}
				self.start(header)
				i += 2
				continue
			}
		}
		if self.current == nil {
			self.preamble(line)
			continue
		}
		if self.current.Desc == DescTableData && strings.HasPrefix(line, "COPY ") && strings.HasSuffix(line, "FROM stdin;") {
			self.current.CopyStmt = line + "\n"
			self.data = &TableData{Columns: copyColumns(line)}
			self.inCopy = true
			continue
		}
		self.body = append(self.body, line)
	}
	if self.inCopy {
		return nil, errors.New("unterminated COPY block")
	}
	if err := self.finish(); err != nil {
		return nil, err
	}
	if self.archive == nil {
		self.archive = New(dbname, self.encoding, self.stdStrings)
	}
	self.archive.inferDependencies()
	return self.archive, nil
}

func (self *plainReader) preamble(line string) {
	if m := encodingSet.FindStringSubmatch(line); m != nil {
		self.encoding = m[1]
	}
	if m := stdStringsSet.FindStringSubmatch(line); m != nil {
		self.stdStrings = m[1] == "on"
	}
}

func (self *plainReader) start(header *Entry) {
	if self.archive == nil {
		self.archive = New(self.dbname, self.encoding, self.stdStrings)
	}
	self.current = header
	self.body = nil
	self.data = nil
}

func (self *plainReader) finish() error {
	if self.current == nil {
		return nil
	}
	kept := []string{}
	for _, line := range self.body {
		if ownerStmt.MatchString(line) || sessionStmt.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	for len(kept) > 0 {
		last := strings.TrimSpace(kept[len(kept)-1])
		if last == "" || strings.HasPrefix(last, "--") {
			kept = kept[:len(kept)-1]
			continue
		}
		break
	}
	for len(kept) > 0 && strings.TrimSpace(kept[0]) == "" {
		kept = kept[1:]
	}
	e := self.current
	defn := strings.Join(kept, "\n")
	if defn != "" {
		defn += "\n"
	}
	entry, err := self.archive.AddEntry(EntryOptions{
		Desc:       e.Desc,
		Section:    sectionFor(e.Desc),
		Namespace:  e.Namespace,
		Tag:        e.Tag,
		Owner:      e.Owner,
		Tablespace: e.Tablespace,
		Defn:       defn,
	})
	if err != nil {
		return err
	}
	entry.CopyStmt = e.CopyStmt
	entry.Data = self.data
	self.current = nil
	return nil
}

func (self *plainReader) appendRow(line string) {
	fields := strings.Split(line, "\t")
	row := make([]*string, len(fields))
	for i, f := range fields {
		row[i] = copyUnescape(f)
	}
	self.data.Rows = append(self.data.Rows, row)
}

// parseHeader reads "Name: x; Type: y; Schema: z; Owner: w" comments.
// A "-" value means none.
func parseHeader(line string) (*Entry, bool) {
	var rest string
	switch {
	case strings.HasPrefix(line, "-- Name: "):
		rest = strings.TrimPrefix(line, "-- Name: ")
	case strings.HasPrefix(line, "-- Data for Name: "):
		rest = strings.TrimPrefix(line, "-- Data for Name: ")
	default:
		return nil, false
	}
	typeAt := strings.Index(rest, "; Type: ")
	if typeAt < 0 {
		return nil, false
	}
	e := &Entry{Tag: rest[:typeAt]}
	for _, field := range strings.Split(rest[typeAt+2:], "; ") {
		key, value, ok := strings.Cut(field, ": ")
		if !ok {
			continue
		}
		if value == "-" {
			value = ""
		}
		switch key {
		case "Type":
			e.Desc = value
		case "Schema":
			e.Namespace = value
		case "Owner":
			e.Owner = value
		case "Tablespace":
			e.Tablespace = value
		}
	}
	return e, e.Desc != ""
}

func sectionFor(desc string) string {
	switch desc {
	case DescTableData, "SEQUENCE SET", "BLOBS":
		return SectionData
	case "INDEX", "TRIGGER", "FK CONSTRAINT", "CONSTRAINT", "CHECK CONSTRAINT",
		"RULE", "EVENT TRIGGER", "MATERIALIZED VIEW DATA", "POLICY":
		return SectionPostData
	case DescACL, DescComment:
		return SectionNone
	}
	return SectionPreData
}

func copyColumns(stmt string) []string {
	open := strings.Index(stmt, "(")
	close := strings.LastIndex(stmt, ")")
	if open < 0 || close < open {
		return nil
	}
	out := []string{}
	for _, c := range strings.Split(stmt[open+1:close], ",") {
		c = strings.TrimSpace(c)
		if strings.HasPrefix(c, `"`) && strings.HasSuffix(c, `"`) && len(c) > 1 {
			c = strings.ReplaceAll(c[1:len(c)-1], `""`, `"`)
		}
		out = append(out, c)
	}
	return out
}

func copyUnescape(field string) *string {
	if field == `\N` {
		return nil
	}
	if !strings.Contains(field, `\`) {
		return &field
	}
	var b strings.Builder
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c != '\\' || i+1 == len(field) {
			b.WriteByte(c)
			continue
		}
		i++
		switch field[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		default:
			b.WriteByte(field[i])
		}
	}
	s := b.String()
	return &s
}
