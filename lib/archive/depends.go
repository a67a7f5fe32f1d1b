package archive

import (
	"sort"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/parse"
)

// relationDescs are what a table reference in SQL can resolve to
var relationDescs = []string{"TABLE", "VIEW", "MATERIALIZED VIEW", "FOREIGN TABLE", "SEQUENCE"}

// typeDescs are what a type name can resolve to. Tables and views carry a
// row type of the same name.
var typeDescs = []string{"TYPE", "DOMAIN", "TABLE", "VIEW", "MATERIALIZED VIEW"}

// inferDependencies fills in the dependencies of entries read from a
// plain script, which carries none. Relations and types named in each
// entry's SQL are matched against the entries before it, so the result
// follows the order pg_dump already chose. Unqualified names resolve in
// public.
func (self *Archive) inferDependencies() {
	index := map[string]*Entry{}
	indexKey := func(desc, namespace, tag string) string {
		return desc + "\x00" + namespace + "\x00" + tag
	}
	for _, e := range self.entries {
		if e.ID < FirstID {
			continue
		}
		key := indexKey(e.Desc, e.Namespace, e.Tag)
		if _, ok := index[key]; !ok {
			index[key] = e
		}
	}
	find := func(descs []string, r parse.Relation) *Entry {
		schema := r.Schema
		if schema == "" {
			schema = "public"
		}
		for _, desc := range descs {
			if e, ok := index[indexKey(desc, schema, r.Name)]; ok {
				return e
			}
		}
		return nil
	}

	for _, e := range self.entries {
		if e.ID < FirstID || len(e.Dependencies) > 0 || e.Defn == "" {
			continue
		}
		refs, err := parse.FindReferences(e.Defn)
		if err != nil {
			continue
		}
		seen := map[int]bool{}
		add := func(target *Entry) {
			if target == nil || target.ID >= e.ID || seen[target.ID] {
				return
			}
			seen[target.ID] = true
			e.Dependencies = append(e.Dependencies, target.ID)
		}
		for _, r := range refs.Relations {
			add(find(relationDescs, r))
		}
		for _, t := range refs.Types {
			add(find(typeDescs, t))
		}
		sort.Ints(e.Dependencies)
	}
}
