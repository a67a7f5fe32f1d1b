package graph

import (
	"strings"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/parse"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

var (
	typeKinds     = []ir.Kind{ir.KindType, ir.KindDomain, ir.KindTable, ir.KindView, ir.KindMaterializedView}
	relationKinds = []ir.Kind{ir.KindTable, ir.KindView, ir.KindMaterializedView, ir.KindSequence}
)

// resolveReferences adds edges to the project types, domains and
// relations rec uses: column, parameter and return types, view queries,
// and whatever its raw SQL names. Names that match nothing in the
// project are taken to be built in.
func (self *resolver) resolveReferences(rec *ir.ObjectRecord) {
	for _, dataType := range dataTypes(rec.Attributes) {
		schema, name, ok := typeReference(dataType)
		if ok {
			self.addReference(rec, typeKinds, schema, name)
		}
	}

	queries := []string{rec.RawSQL}
	switch attrs := rec.Attributes.(type) {
	case *ir.View:
		queries = append(queries, attrs.Query)
	case *ir.MaterializedView:
		queries = append(queries, attrs.Query)
	}
	for _, query := range queries {
		if strings.TrimSpace(query) == "" {
			continue
		}
		refs, err := parse.FindReferences(query)
		if err != nil {
			continue
		}
		for _, r := range refs.Relations {
			self.addReference(rec, relationKinds, r.Schema, r.Name)
		}
		for _, t := range refs.Types {
			self.addReference(rec, typeKinds, t.Schema, t.Name)
		}
	}
}

// addReference links rec to the first kind that has schema.name. An
// unqualified name is looked for in rec's schema and then in public.
func (self *resolver) addReference(rec *ir.ObjectRecord, kinds []ir.Kind, schema, name string) {
	schemas := []string{schema}
	if schema == "" {
		schemas = []string{rec.Schema, ir.SchemaPublic}
	}
	for _, s := range schemas {
		if s == "" {
			continue
		}
		for _, kind := range kinds {
			target, err := self.inv.Lookup(kind, s, name)
			if err != nil || target.ID == rec.ID || target.ID == rec.ParentID {
				continue
			}
			self.edges.Add(rec.ID, target.ID)
			return
		}
	}
}

// dataTypes lists the type names written in a record's attributes
func dataTypes(attrs ir.Attributes) []string {
	out := []string{}
	params := func(ps []*ir.Parameter) {
		for _, p := range ps {
			out = append(out, p.DataType)
		}
	}
	switch a := attrs.(type) {
	case *ir.Table:
		for _, c := range a.Columns {
			out = append(out, c.DataType)
		}
	case *ir.Function:
		params(a.Parameters)
		out = append(out, a.Returns)
	case *ir.Aggregate:
		params(a.Arguments)
		out = append(out, a.StateDataType, a.MStateDataType)
	case *ir.Domain:
		out = append(out, a.DataType)
	case *ir.Type:
		for _, c := range a.Columns {
			out = append(out, c.DataType)
		}
		out = append(out, a.Subtype, a.Element, a.LikeType)
	}
	return out
}

// typeReference reduces a type as written, such as "SETOF app.mood[]" or
// "numeric(10,2)", to a schema and name. pg_catalog types and table
// returning functions have none.
func typeReference(dataType string) (string, string, bool) {
	t := strings.TrimSpace(dataType)
	if len(t) > 6 && strings.EqualFold(t[:6], "SETOF ") {
		t = strings.TrimSpace(t[6:])
	}
	if i := strings.IndexAny(t, "(["); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if t == "" || strings.EqualFold(t, "TABLE") {
		return "", "", false
	}
	schema, name := "", t
	if i := strings.LastIndex(t, "."); i > 0 {
		schema, name = t[:i], t[i+1:]
	}
	schema, name = strings.Trim(schema, `"`), strings.Trim(name, `"`)
	if schema == "pg_catalog" || name == "" {
		return "", "", false
	}
	return schema, name, true
}
