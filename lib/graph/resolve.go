package graph

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dbsteward/pglifecycle/lib/inventory"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

// Edges maps an object id to the ids it must be created after
type Edges map[int][]int

// Add records that from depends on to. Self edges and repeats are
// ignored.
func (e Edges) Add(from, to int) {
	if from == to {
		return
	}
	if _, ok := e[from]; !ok {
		e[from] = []int{}
	}
	for _, existing := range e[from] {
		if existing == to {
			return
		}
	}
	e[from] = append(e[from], to)
}

// Node makes sure id is part of the graph even with no dependencies
func (e Edges) Node(id int) {
	if _, ok := e[id]; !ok {
		e[id] = []int{}
	}
}

// Of returns the sorted dependencies of id
func (e Edges) Of(id int) []int {
	out := append([]int{}, e[id]...)
	slices.Sort(out)
	return out
}

type resolver struct {
	inv       *inventory.Inventory
	superuser string
	edges     Edges
	roles     map[string]int
}

// Resolve computes the dependency edges of every record in inv. Every
// unresolvable reference is fatal.
func Resolve(inv *inventory.Inventory, superuser string) (Edges, error) {
	self := &resolver{
		inv:       inv,
		superuser: superuser,
		edges:     Edges{},
		roles:     map[string]int{},
	}
	for _, rec := range inv.Records() {
		self.edges.Node(rec.ID)
		if err := self.resolveRecord(rec); err != nil {
			return nil, err
		}
	}
	if err := self.resolveRoles(); err != nil {
		return nil, err
	}
	return self.edges, nil
}

func (self *resolver) resolveRecord(rec *ir.ObjectRecord) error {
	if rec.ParentID != 0 {
		self.edges.Add(rec.ID, rec.ParentID)
	}

	if !rec.Kind.IsSchemaless() && rec.Schema != "" && rec.Schema != ir.SchemaPublic {
		schema, err := self.inv.Lookup(ir.KindSchema, "", rec.Schema)
		if err != nil {
			return &DependencyResolutionError{
				Dependent: rec.Triple(),
				Target:    ir.Triple{Kind: ir.KindSchema, Schema: string(ir.KindSchema), Name: rec.Schema},
			}
		}
		self.edges.Add(rec.ID, schema.ID)
	}

	for _, dep := range rec.Dependencies {
		if err := self.resolveDependency(rec, dep); err != nil {
			return err
		}
	}

	if acl, ok := rec.Attributes.(*ir.ACLSet); ok && acl.Target.Kind != ir.KindDatabase {
		target, err := self.inv.Lookup(acl.Target.Kind, acl.Target.Schema, acl.Target.Name)
		if err != nil {
			return &DependencyResolutionError{Dependent: rec.Triple(), Target: acl.Target}
		}
		self.edges.Add(rec.ID, target.ID)
	}
	self.resolveReferences(rec)
	return nil
}

func (self *resolver) resolveDependency(rec *ir.ObjectRecord, dep ir.Dependency) error {
	schema, name := dep.Split()
	if dep.Kind == ir.KindSchema {
		name = dep.Name
		if name == rec.Schema || name == ir.SchemaPublic {
			return nil
		}
		schema = ""
	}
	if dep.Kind.IsRole() {
		// roles are wired up in their own pass
		return nil
	}
	target, err := self.inv.Lookup(dep.Kind, schema, name)
	if err != nil {
		if schema == "" {
			schema = dep.Kind.DefaultSchema()
		}
		return &DependencyResolutionError{
			Dependent: rec.Triple(),
			Target:    ir.Triple{Kind: dep.Kind, Schema: schema, Name: name},
		}
	}
	self.edges.Add(rec.ID, target.ID)
	return nil
}

// roleKey flattens role kinds into a single key space. Groups are just
// roles without LOGIN, so they share ROLE.
func roleKey(kind ir.Kind, name string) string {
	if kind == ir.KindGroup {
		kind = ir.KindRole
	}
	return string(kind) + ":" + name
}

func (self *resolver) isSystemRole(name string) bool {
	return strings.EqualFold(name, ir.RolePublic) || name == self.superuser
}

func (self *resolver) lookupRole(name string) (int, bool) {
	for _, kind := range []ir.Kind{ir.KindRole, ir.KindUser} {
		if id, ok := self.roles[roleKey(kind, name)]; ok {
			return id, true
		}
	}
	return 0, false
}

func (self *resolver) resolveRoles() error {
	roleRecs := self.inv.ByKind(ir.KindGroup, ir.KindRole, ir.KindUser)
	for _, rec := range roleRecs {
		self.roles[roleKey(rec.Kind, rec.Name)] = rec.ID
	}

	missing := func(rec *ir.ObjectRecord, name string) error {
		return &DependencyResolutionError{
			Dependent: rec.Triple(),
			Target:    ir.Triple{Kind: ir.KindRole, Schema: string(ir.KindRole), Name: name},
		}
	}

	for _, rec := range roleRecs {
		for _, dep := range rec.Dependencies {
			if !dep.Kind.IsRole() || self.isSystemRole(dep.Name) {
				continue
			}
			id, ok := self.lookupRole(dep.Name)
			if !ok {
				return missing(rec, dep.Name)
			}
			self.edges.Add(rec.ID, id)
		}
		role, ok := rec.Attributes.(*ir.Role)
		if !ok {
			continue
		}
		for _, grants := range []*ir.Grants{role.Grants, role.Revocations} {
			for _, name := range grants.Memberships() {
				if self.isSystemRole(name) {
					continue
				}
				id, ok := self.lookupRole(name)
				if !ok {
					return missing(rec, name)
				}
				self.edges.Add(rec.ID, id)
			}
		}
	}

	for _, rec := range self.inv.ByKind(ir.KindACL) {
		acl, ok := rec.Attributes.(*ir.ACLSet)
		if !ok {
			continue
		}
		for _, entry := range acl.Entries {
			for _, grantee := range entry.Grantees {
				if self.isSystemRole(grantee) {
					continue
				}
				id, ok := self.lookupRole(grantee)
				if !ok {
					return missing(rec, grantee)
				}
				self.edges.Add(rec.ID, id)
			}
		}
	}

	for _, rec := range self.inv.Records() {
		if rec.Kind.IsRole() || rec.Kind == ir.KindACL || rec.Owner == "" || self.isSystemRole(rec.Owner) {
			continue
		}
		// owners are created before what they own when the project defines them
		if id, ok := self.lookupRole(rec.Owner); ok {
			self.edges.Add(rec.ID, id)
		}
	}
	return nil
}
