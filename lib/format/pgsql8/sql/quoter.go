package sql

import (
	"fmt"
	"regexp"
	"strings"
)

var bareIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// reserved and type/function-name keywords, which can't be used as a
// bare identifier
var keywords = map[string]bool{}

func init() {
	for _, kw := range strings.Fields(`
		all analyse analyze and any array as asc asymmetric authorization
		binary both case cast check collate collation column concurrently
		constraint create cross current_catalog current_date current_role
		current_schema current_time current_timestamp current_user default
		deferrable desc distinct do else end except false fetch for foreign
		freeze from full grant group having ilike in initially inner intersect
		into is isnull join lateral leading left like limit localtime
		localtimestamp natural not notnull null offset on only or order outer
		overlaps placing primary references returning right select
		session_user similar some symmetric system_user table tablesample then
		to trailing true union unique user using variadic verbose when where
		window with`) {
		keywords[kw] = true
	}
}

// IsKeyword reports whether name collides with a reserved keyword
func IsKeyword(name string) bool {
	return keywords[strings.ToLower(name)]
}

// QuoteIdent double quotes an identifier only when PostgreSQL would not
// otherwise read it back verbatim
func QuoteIdent(name string) string {
	if bareIdentifier.MatchString(name) && !IsKeyword(name) {
		return name
	}
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(name, `"`, `""`))
}

// QuoteQualified quotes each dot separated part of a reference
func QuoteQualified(name string) string {
	if strings.HasPrefix(name, `"`) {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// Quoter applies QuoteIdent everywhere; it exists to satisfy output.Quoter
type Quoter struct{}

func (self *Quoter) QuoteSchema(name string) string {
	return QuoteIdent(name)
}

func (self *Quoter) QuoteTable(name string) string {
	return QuoteIdent(name)
}

func (self *Quoter) QuoteColumn(name string) string {
	return QuoteIdent(name)
}

func (self *Quoter) QuoteRole(name string) string {
	// the PUBLIC role is actually a keyword, not an identifier, so don't quote it
	if strings.EqualFold(name, "public") {
		return "PUBLIC"
	}
	return QuoteIdent(name)
}

func (self *Quoter) QuoteObject(name string) string {
	return QuoteIdent(name)
}

func (self *Quoter) QualifyTable(schema string, table string) string {
	return self.QualifyObject(schema, table)
}

func (self *Quoter) QualifyObject(schema string, object string) string {
	if schema == "" {
		return QuoteIdent(object)
	}
	return fmt.Sprintf("%s.%s", self.QuoteSchema(schema), self.QuoteObject(object))
}

func (self *Quoter) QualifyColumn(schema string, table string, column string) string {
	return fmt.Sprintf("%s.%s", self.QualifyTable(schema, table), self.QuoteColumn(column))
}

func (self *Quoter) LiteralString(value string) string {
	return QuoteLiteral(value)
}

// QuoteLiteral single quotes a string constant, doubling embedded quotes
func QuoteLiteral(value string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(value, "'", "''"))
}
