package output

import (
	"fmt"
	"io"
	"strings"
)

const CommentLinePrefix = "--"

type ToSql interface {
	ToSql(Quoter) string
}

type Quoter interface {
	QuoteSchema(schema string) string
	QuoteTable(table string) string
	QuoteColumn(column string) string
	QuoteRole(role string) string
	QuoteObject(obj string) string
	QualifyTable(schema, table string) string
	QualifyObject(schema, obj string) string
	QualifyColumn(schema, table, column string) string
	LiteralString(value string) string
}

func NewRawSQL(format string, args ...interface{}) rawSQL {
	return rawSQL(fmt.Sprintf(format, args...))
}

type rawSQL string

func (c rawSQL) ToSql(q Quoter) string {
	return string(c)
}

// Annotated is a statement preceded by a comment block
type Annotated struct {
	Comment string
	Stmt    ToSql
}

func NewAnnotated(comment string, stmt ToSql) *Annotated {
	return &Annotated{Comment: comment, Stmt: stmt}
}

func (a *Annotated) ToSql(q Quoter) string {
	return a.Stmt.ToSql(q)
}

// DDLStatement for tracking individual DDL statements
type DDLStatement struct {
	Comment   string
	Statement string
}

func NewSegmenter(q Quoter) *Segmenter {
	return &Segmenter{quoter: q}
}

// Segmenter is a output file segmenter that holds everything
// internally in arrays and the returns the properly ordered
// list from AllStatements()
type Segmenter struct {
	quoter Quoter
	Header []ToSql
	Body   []ToSql
	Footer []ToSql
	final  []ToSql
}

// Close compiles the different parts into a single list of
// statements.
func (s *Segmenter) Close() error {
	s.final = append(s.Header, s.Body...)
	s.final = append(s.final, s.Footer...)
	s.Header = nil
	s.Body = nil
	s.Footer = nil
	return nil
}

// AppendHeader adds a new DDL statement to the header
func (s *Segmenter) AppendHeader(stmt ToSql) {
	if stmt != nil {
		s.Header = append(s.Header, stmt)
	}
}

// AppendFooter adds a new DDL statement to the footer
func (s *Segmenter) AppendFooter(stmt ToSql) {
	if stmt != nil {
		s.Footer = append(s.Footer, stmt)
	}
}

// WriteSql appends each generator to the body in turn
func (s *Segmenter) WriteSql(generators ...ToSql) {
	s.Body = append(s.Body, generators...)
}

// AllStatements compiles the 3 parts in a single list if it
// wasn't previously done, then returns that list.
func (s *Segmenter) AllStatements() []DDLStatement {
	if len(s.final) == 0 {
		_ = s.Close()
	}
	var final []DDLStatement
	for _, stmt := range s.final {
		ddl := DDLStatement{Statement: stmt.ToSql(s.quoter)}
		if a, ok := stmt.(*Annotated); ok {
			ddl.Comment = a.Comment
		}
		final = append(final, ddl)
	}
	return final
}

// WriteTo renders every statement, comment blocks first, separated by
// blank lines
func (s *Segmenter) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, stmt := range s.AllStatements() {
		var b strings.Builder
		if stmt.Comment != "" {
			for _, line := range strings.Split(stmt.Comment, "\n") {
				b.WriteString(strings.TrimRight(CommentLinePrefix+" "+line, " "))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimRight(stmt.Statement, "\n"))
		b.WriteString("\n\n")
		n, err := io.WriteString(w, b.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
