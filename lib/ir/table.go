package ir

import (
	"strings"
)

type Table struct {
	Meta              `yaml:",inline"`
	Unlogged          bool               `yaml:"unlogged,omitempty"`
	LikeTable         *LikeTable         `yaml:"like_table,omitempty"`
	Columns           []*Column          `yaml:"columns,omitempty"`
	PrimaryKey        *KeyConstraint     `yaml:"primary_key,omitempty"`
	UniqueConstraints []*KeyConstraint   `yaml:"unique_constraints,omitempty"`
	CheckConstraints  []*CheckConstraint `yaml:"check_constraints,omitempty"`
	ForeignKeys       []*ForeignKey      `yaml:"foreign_keys,omitempty"`
	Indexes           []*Index           `yaml:"indexes,omitempty"`
	Triggers          []*Trigger         `yaml:"triggers,omitempty"`
	Rules             []*Rule            `yaml:"rules,omitempty"`
	Parents           []string           `yaml:"parents,omitempty"`
	Partition         *Partition         `yaml:"partition,omitempty"`
	AccessMethod      string             `yaml:"access_method,omitempty"`
	StorageParameters map[string]string  `yaml:"storage_parameters,omitempty"`
}

type LikeTable struct {
	Name     string   `yaml:"name"`
	Includes []string `yaml:"including,omitempty"`
	Excludes []string `yaml:"excluding,omitempty"`
}

type Column struct {
	Name            string     `yaml:"name"`
	DataType        string     `yaml:"data_type"`
	Nullable        *bool      `yaml:"nullable,omitempty"`
	Default         string     `yaml:"default,omitempty"`
	Collation       string     `yaml:"collation,omitempty"`
	CheckConstraint string     `yaml:"check_constraint,omitempty"`
	Generated       *Generated `yaml:"generated,omitempty"`
	Comment         string     `yaml:"comment,omitempty"`
}

// IsNullable defaults to true, matching PostgreSQL
func (c *Column) IsNullable() bool {
	return c.Nullable == nil || *c.Nullable
}

// Generated is either a stored generated expression or an identity
// column. Identity columns carry Sequence=true and a When of ALWAYS or
// BY DEFAULT.
type Generated struct {
	Expression string `yaml:"expression,omitempty"`
	Sequence   bool   `yaml:"sequence,omitempty"`
	When       string `yaml:"sequence_behavior,omitempty"`
}

type KeyConstraint struct {
	Name              string   `yaml:"name,omitempty"`
	Columns           []string `yaml:"columns"`
	Include           []string `yaml:"include,omitempty"`
	Deferrable        bool     `yaml:"deferrable,omitempty"`
	InitiallyDeferred bool     `yaml:"initially_deferred,omitempty"`
	Comment           string   `yaml:"comment,omitempty"`
}

type CheckConstraint struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
	Comment    string `yaml:"comment,omitempty"`
}

type ForeignKey struct {
	Name              string           `yaml:"name"`
	SQL               string           `yaml:"sql,omitempty"`
	Columns           []string         `yaml:"columns,omitempty"`
	References        ForeignKeyTarget `yaml:"references"`
	MatchType         string           `yaml:"match_type,omitempty"`
	OnDelete          string           `yaml:"on_delete,omitempty"`
	OnUpdate          string           `yaml:"on_update,omitempty"`
	Deferrable        bool             `yaml:"deferrable,omitempty"`
	InitiallyDeferred bool             `yaml:"initially_deferred,omitempty"`
	Comment           string           `yaml:"comment,omitempty"`
}

type ForeignKeyTarget struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns,omitempty"`
}

type Index struct {
	Name              string            `yaml:"name"`
	SQL               string            `yaml:"sql,omitempty"`
	Unique            bool              `yaml:"unique,omitempty"`
	Recurse           *bool             `yaml:"recurse,omitempty"`
	Method            string            `yaml:"method,omitempty"`
	Columns           []*IndexColumn    `yaml:"columns,omitempty"`
	Include           []string          `yaml:"include,omitempty"`
	StorageParameters map[string]string `yaml:"storage_parameters,omitempty"`
	Tablespace        string            `yaml:"tablespace,omitempty"`
	Where             string            `yaml:"where,omitempty"`
	Comment           string            `yaml:"comment,omitempty"`
}

type IndexColumn struct {
	Name          string `yaml:"name,omitempty"`
	Expression    string `yaml:"expression,omitempty"`
	Collation     string `yaml:"collation,omitempty"`
	OpClass       string `yaml:"opclass,omitempty"`
	Direction     string `yaml:"direction,omitempty"`
	NullPlacement string `yaml:"null_placement,omitempty"`
}

type Trigger struct {
	Name      string   `yaml:"name"`
	SQL       string   `yaml:"sql,omitempty"`
	When      string   `yaml:"when,omitempty"`
	Events    []string `yaml:"events,omitempty"`
	ForEach   string   `yaml:"for_each,omitempty"`
	Condition string   `yaml:"condition,omitempty"`
	Function  string   `yaml:"function,omitempty"`
	Arguments []string `yaml:"arguments,omitempty"`
	Comment   string   `yaml:"comment,omitempty"`
}

type Rule struct {
	Name    string   `yaml:"name"`
	SQL     string   `yaml:"sql,omitempty"`
	Event   string   `yaml:"event,omitempty"`
	Instead bool     `yaml:"instead,omitempty"`
	Where   string   `yaml:"where,omitempty"`
	Actions []string `yaml:"actions,omitempty"`
	Comment string   `yaml:"comment,omitempty"`
}

type Partition struct {
	Type    string   `yaml:"type"`
	Columns []string `yaml:"columns"`
}

func (t *Table) GetColumn(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Table) GetIndex(name string) *Index {
	for _, i := range t.Indexes {
		if i.Name == name {
			return i
		}
	}
	return nil
}

func (t *Table) GetTrigger(name string) *Trigger {
	for _, tr := range t.Triggers {
		if tr.Name == name {
			return tr
		}
	}
	return nil
}

func (t *Table) GetForeignKey(name string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if fk.Name == name {
			return fk
		}
	}
	return nil
}

func (t *Table) GetRule(name string) *Rule {
	for _, r := range t.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// TargetTable returns the schema-qualified referenced table, defaulting
// the schema to the referencing table's
func (fk *ForeignKey) TargetTable(schema string) (string, string) {
	if i := strings.Index(fk.References.Name, "."); i > 0 {
		return fk.References.Name[:i], fk.References.Name[i+1:]
	}
	return schema, fk.References.Name
}
