package parse

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// References are the relations and types named anywhere in a block of
// SQL. Names are as written; unqualified names have no Schema.
type References struct {
	Relations []Relation
	Types     []Relation
}

// FindReferences walks every statement in text collecting table
// references and type names. pg_catalog types are left out. String
// literals, including function bodies, are not looked into.
func FindReferences(text string) (*References, error) {
	tree, err := pg_query.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse sql")
	}
	out := &References{}
	seen := map[string]bool{}
	for _, raw := range tree.Stmts {
		walk(raw.Stmt.ProtoReflect(), func(m protoreflect.ProtoMessage) {
			switch n := m.(type) {
			case *pg_query.RangeVar:
				if n.Relname == "" {
					return
				}
				r := Relation{Schema: n.Schemaname, Name: n.Relname}
				if key := "r:" + r.String(); !seen[key] {
					seen[key] = true
					out.Relations = append(out.Relations, r)
				}
			case *pg_query.TypeName:
				r, ok := typeRelation(n)
				if !ok {
					return
				}
				if key := "t:" + r.String(); !seen[key] {
					seen[key] = true
					out.Types = append(out.Types, r)
				}
			}
		})
	}
	return out, nil
}

// walk visits m and every message below it, fields in declaration order
func walk(m protoreflect.Message, visit func(protoreflect.ProtoMessage)) {
	if !m.IsValid() {
		return
	}
	visit(m.Interface())
	fields := m.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.Message() == nil || fd.IsMap() || !m.Has(fd) {
			continue
		}
		if fd.IsList() {
			list := m.Get(fd).List()
			for j := 0; j < list.Len(); j++ {
				walk(list.Get(j).Message(), visit)
			}
			continue
		}
		walk(m.Get(fd).Message(), visit)
	}
}

func typeRelation(t *pg_query.TypeName) (Relation, bool) {
	names, err := stringList(t.Names)
	if err != nil || len(names) == 0 || len(names) > 2 {
		return Relation{}, false
	}
	if len(names) == 1 {
		return Relation{Name: names[0]}, true
	}
	if names[0] == "pg_catalog" {
		return Relation{}, false
	}
	return Relation{Schema: names[0], Name: names[1]}, true
}
