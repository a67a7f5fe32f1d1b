package ir

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Triple identifies an object across the inventory
type Triple struct {
	Kind   Kind
	Schema string
	Name   string
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s.%s", t.Kind, t.Schema, t.Name)
}

// ObjectRecord is the single envelope every database object is carried
// in, regardless of kind. Kind specific data lives in Attributes.
type ObjectRecord struct {
	ID           int
	ParentID     int
	Kind         Kind
	Schema       string
	Name         string
	Owner        string
	Tablespace   string
	Comment      string
	RawSQL       string
	Dependencies []Dependency
	Attributes   Attributes
}

func (r *ObjectRecord) Triple() Triple {
	return Triple{Kind: r.Kind, Schema: r.Schema, Name: r.Name}
}

// QualifiedName is schema.name for schema-bound kinds, and the bare name
// for everything else
func (r *ObjectRecord) QualifiedName() string {
	if r.Kind.IsSchemaless() || r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// Dependency is a declared reference to another object, written in
// project files as a single key mapping such as `TABLE: public.foo`.
type Dependency struct {
	Kind Kind
	Name string
}

// Split breaks a dotted reference into schema and name. Only the first
// dot separates, function signatures may contain more.
func (d Dependency) Split() (string, string) {
	if i := strings.Index(d.Name, "."); i > 0 && !strings.Contains(d.Name[:i], "(") {
		return d.Name[:i], d.Name[i+1:]
	}
	return "", d.Name
}

func (d Dependency) MarshalYAML() (interface{}, error) {
	return map[string]string{string(d.Kind): d.Name}, nil
}

func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	m := map[string]string{}
	if err := node.Decode(&m); err != nil {
		return errors.Wrapf(err, "line %d: dependency must be a KIND: name mapping", node.Line)
	}
	if len(m) != 1 {
		return errors.Errorf("line %d: dependency must have exactly one key, got %d", node.Line, len(m))
	}
	for k, v := range m {
		d.Kind = Kind(strings.ToUpper(k))
		d.Name = v
	}
	return nil
}

// Meta holds the fields shared by every project file
type Meta struct {
	Name         string       `yaml:"name"`
	Schema       string       `yaml:"schema,omitempty"`
	Owner        string       `yaml:"owner,omitempty"`
	Tablespace   string       `yaml:"tablespace,omitempty"`
	Comment      string       `yaml:"comment,omitempty"`
	SQL          string       `yaml:"sql,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty"`
}

func (m *Meta) GetMeta() *Meta {
	return m
}

// Attributes is the closed set of kind specific payloads. The unexported
// marker keeps the set closed to this package.
type Attributes interface {
	GetMeta() *Meta
	isAttributes()
}

func (*Aggregate) isAttributes()               {}
func (*Cast) isAttributes()                    {}
func (*Collation) isAttributes()               {}
func (*Conversion) isAttributes()              {}
func (*Domain) isAttributes()                  {}
func (*EventTrigger) isAttributes()            {}
func (*Extension) isAttributes()               {}
func (*ForeignDataWrapper) isAttributes()      {}
func (*Function) isAttributes()                {}
func (*Role) isAttributes()                    {}
func (*Language) isAttributes()                {}
func (*MaterializedView) isAttributes()        {}
func (*Operator) isAttributes()                {}
func (*Publication) isAttributes()             {}
func (*Schema) isAttributes()                  {}
func (*Sequence) isAttributes()                {}
func (*SequenceOwnedBy) isAttributes()         {}
func (*Server) isAttributes()                  {}
func (*Subscription) isAttributes()            {}
func (*Table) isAttributes()                   {}
func (*Tablespace) isAttributes()              {}
func (*TextSearchConfiguration) isAttributes() {}
func (*TextSearchDictionary) isAttributes()    {}
func (*TextSearchParser) isAttributes()        {}
func (*TextSearchTemplate) isAttributes()      {}
func (*Type) isAttributes()                    {}
func (*UserMapping) isAttributes()             {}
func (*View) isAttributes()                    {}
func (*ACLSet) isAttributes()                  {}

// TableChildName is the inventory name of a trigger, rule or foreign
// key, prefixed with its table the way pg_dump tags them
func TableChildName(table, name string) string {
	return table + " " + name
}
