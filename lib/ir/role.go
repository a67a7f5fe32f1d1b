package ir

import (
	"sort"
	"strings"
)

// Role covers GROUP, ROLE and USER files
type Role struct {
	Meta        `yaml:",inline"`
	Create      *bool      `yaml:"create,omitempty"`
	Options     []string   `yaml:"options,omitempty"`
	Password    *string    `yaml:"password,omitempty"`
	ValidUntil  string     `yaml:"valid_until,omitempty"`
	Settings    []*Setting `yaml:"settings,omitempty"`
	Grants      *Grants    `yaml:"grants,omitempty"`
	Revocations *Grants    `yaml:"revocations,omitempty"`
}

// ShouldCreate defaults to true
func (r *Role) ShouldCreate() bool {
	return r.Create == nil || *r.Create
}

func (r *Role) HasOption(opt string) bool {
	for _, o := range r.Options {
		if strings.EqualFold(o, opt) {
			return true
		}
	}
	return false
}

// Setting is a per-role configuration parameter. Value is a scalar or a
// list of scalars.
type Setting struct {
	Name  string      `yaml:"name"`
	Value interface{} `yaml:"value"`
}

// Grants maps object names to privilege lists, one field per grant key.
// Groups and roles are plain lists of role names to be a member of.
type Grants struct {
	Columns             map[string][]string `yaml:"columns,omitempty"`
	Conversions         map[string][]string `yaml:"conversions,omitempty"`
	Databases           map[string][]string `yaml:"databases,omitempty"`
	Domains             map[string][]string `yaml:"domains,omitempty"`
	Extensions          map[string][]string `yaml:"extensions,omitempty"`
	ForeignDataWrappers map[string][]string `yaml:"foreign data wrappers,omitempty"`
	ForeignServers      map[string][]string `yaml:"foreign servers,omitempty"`
	Functions           map[string][]string `yaml:"functions,omitempty"`
	Languages           map[string][]string `yaml:"languages,omitempty"`
	Procedures          map[string][]string `yaml:"procedures,omitempty"`
	Schemata            map[string][]string `yaml:"schemata,omitempty"`
	Sequences           map[string][]string `yaml:"sequences,omitempty"`
	Tables              map[string][]string `yaml:"tables,omitempty"`
	Tablespaces         map[string][]string `yaml:"tablespaces,omitempty"`
	Types               map[string][]string `yaml:"types,omitempty"`
	Views               map[string][]string `yaml:"views,omitempty"`
	Groups              []string            `yaml:"groups,omitempty"`
	Roles               []string            `yaml:"roles,omitempty"`
}

// ObjectGrant is one flattened entry of a Grants block
type ObjectGrant struct {
	Kind       Kind
	Name       string
	Privileges []string
}

// Objects flattens every object keyed block in a stable order. Group
// and role membership is not included, see Memberships.
func (g *Grants) Objects() []ObjectGrant {
	if g == nil {
		return nil
	}
	out := []ObjectGrant{}
	add := func(kind Kind, m map[string][]string) {
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, ObjectGrant{Kind: kind, Name: name, Privileges: m[name]})
		}
	}
	add(KindConversion, g.Conversions)
	add(KindDatabase, g.Databases)
	add(KindDomain, g.Domains)
	add(KindExtension, g.Extensions)
	add(KindForeignDataWrapper, g.ForeignDataWrappers)
	add(KindServer, g.ForeignServers)
	add(KindFunction, g.Functions)
	add(KindProceduralLanguage, g.Languages)
	add(KindProcedure, g.Procedures)
	add(KindSchema, g.Schemata)
	add(KindSequence, g.Sequences)
	add(KindTable, g.Tables)
	add(KindTable, g.Columns)
	add(KindTablespace, g.Tablespaces)
	add(KindType, g.Types)
	add(KindView, g.Views)
	return out
}

// Memberships lists the groups and roles this grant block makes the
// role a member of
func (g *Grants) Memberships() []string {
	if g == nil {
		return nil
	}
	out := append([]string{}, g.Groups...)
	return append(out, g.Roles...)
}

func (g *Grants) field(kind Kind) *map[string][]string {
	switch kind {
	case KindConversion:
		return &g.Conversions
	case KindDatabase:
		return &g.Databases
	case KindDomain:
		return &g.Domains
	case KindExtension:
		return &g.Extensions
	case KindForeignDataWrapper:
		return &g.ForeignDataWrappers
	case KindServer:
		return &g.ForeignServers
	case KindFunction:
		return &g.Functions
	case KindProceduralLanguage:
		return &g.Languages
	case KindProcedure:
		return &g.Procedures
	case KindSchema:
		return &g.Schemata
	case KindSequence:
		return &g.Sequences
	case KindTablespace:
		return &g.Tablespaces
	case KindType:
		return &g.Types
	case KindView:
		return &g.Views
	}
	return &g.Tables
}

// Add records a privilege list under the grant key for kind
func (g *Grants) Add(kind Kind, name string, privileges []string) {
	target := g.field(kind)
	if *target == nil {
		*target = map[string][]string{}
	}
	(*target)[name] = append((*target)[name], privileges...)
}

// Get returns the privileges recorded for the named object
func (g *Grants) Get(kind Kind, name string) []string {
	if g == nil {
		return nil
	}
	return (*g.field(kind))[name]
}

// Remove deletes an entry, reporting whether it was present
func (g *Grants) Remove(kind Kind, name string) bool {
	m := *g.field(kind)
	if _, ok := m[name]; ok {
		delete(m, name)
		return true
	}
	return false
}

func (g *Grants) IsEmpty() bool {
	return g == nil || (len(g.Objects()) == 0 && len(g.Memberships()) == 0)
}

// ACL is one grant or revoke instruction on a single target
type ACL struct {
	Privileges []string
	Direction  ACLDirection
	Grantees   []string
	Target     int
}

type ACLDirection string

const (
	ACLGrant  ACLDirection = "to"
	ACLRevoke ACLDirection = "from"
)

// ACLSet is the payload of an ACL record: every instruction on a single
// target object
type ACLSet struct {
	Meta    `yaml:",inline"`
	Target  Triple
	Member  bool
	Entries []*ACL
}
