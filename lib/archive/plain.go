package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/output"
)

var sectionRank = map[string]int{
	SectionPreData:  0,
	SectionData:     1,
	SectionPostData: 2,
}

// rank orders entries in a plain script. Comments stay with the object
// they describe and ACLs come last.
func (self *Archive) rank(e *Entry) int {
	switch e.Desc {
	case DescACL:
		return len(sectionRank)
	case DescComment:
		if len(e.Dependencies) > 0 {
			if dep := self.byID[e.Dependencies[0]]; dep != nil && dep.Desc != DescComment {
				return self.rank(dep)
			}
		}
		return sectionRank[SectionPreData]
	}
	if r, ok := sectionRank[e.Section]; ok {
		return r
	}
	return sectionRank[SectionPreData]
}

func annotation(e *Entry) string {
	namespace := e.Namespace
	if namespace == "" {
		namespace = "-"
	}
	owner := e.Owner
	if owner == "" {
		owner = "-"
	}
	name := "Name"
	if e.Desc == DescTableData {
		name = "Data for Name"
	}
	line := fmt.Sprintf("%s: %s; Type: %s; Schema: %s; Owner: %s", name, e.Tag, e.Desc, namespace, owner)
	if e.Tablespace != "" {
		line += "; Tablespace: " + e.Tablespace
	}
	return "\n" + line + "\n"
}

// copyEscape encodes a value in COPY text format
func copyEscape(v *string) string {
	if v == nil {
		return `\N`
	}
	r := strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)
	return r.Replace(*v)
}

func copyBlock(e *Entry) string {
	var b strings.Builder
	b.WriteString(e.CopyStmt)
	for _, row := range e.Data.Rows {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = copyEscape(v)
		}
		b.WriteString(strings.Join(values, "\t"))
		b.WriteString("\n")
	}
	b.WriteString(`\.`)
	b.WriteString("\n")
	return b.String()
}

// Segmenter lays the archive out as a plain SQL script
func (self *Archive) Segmenter() *output.Segmenter {
	seg := output.NewSegmenter(&sql.Quoter{})
	seg.AppendHeader(output.NewAnnotated("\nPostgreSQL database dump\n", output.NewRawSQL("SET statement_timeout = 0;\nSET lock_timeout = 0;\nSET check_function_bodies = false;")))

	ordered := []*Entry{}
	for _, e := range self.entries {
		if isSeed(e.Desc) {
			seg.AppendHeader(output.NewRawSQL("%s", strings.TrimRight(e.Defn, "\n")))
			continue
		}
		ordered = append(ordered, e)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return self.rank(ordered[i]) < self.rank(ordered[j])
	})
	for _, e := range ordered {
		body := e.Defn
		if e.Desc == DescTableData && e.Data != nil {
			body = copyBlock(e)
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		seg.WriteSql(output.NewAnnotated(annotation(e), output.NewRawSQL("%s", body)))
	}
	seg.AppendFooter(output.NewAnnotated("\nPostgreSQL database dump complete\n", output.NewRawSQL("")))
	return seg
}

func (self *Archive) savePlain(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", path)
	}
	defer f.Close()
	if err := self.WritePlain(f); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	return f.Close()
}

func (self *Archive) WritePlain(w io.Writer) error {
	buf := bufio.NewWriter(w)
	if _, err := self.Segmenter().WriteTo(buf); err != nil {
		return err
	}
	return buf.Flush()
}
