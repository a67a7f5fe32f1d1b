package pgsql8

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/graph"
	"github.com/dbsteward/pglifecycle/lib/inventory"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/util"
)

var privilegeWeight = map[string]int{
	"ALL":        -1,
	"SELECT":     0,
	"INSERT":     1,
	"UPDATE":     2,
	"DELETE":     3,
	"USAGE":      4,
	"TRUNCATE":   5,
	"REFERENCES": 6,
	"TRIGGER":    7,
	"CREATE":     0,
	"CONNECT":    1,
	"TEMPORARY":  2,
	"TEMP":       2,
	"EXECUTE":    0,
}

func weight(privilege string) int {
	word := strings.Fields(privilege)[0]
	if w, ok := privilegeWeight[word]; ok {
		return w
	}
	return len(privilegeWeight)
}

// normalizePrivileges upper cases the privilege keyword, dedupes and
// orders a privilege list. A plain ALL swallows everything else.
func normalizePrivileges(privileges []string) []string {
	out := []string{}
	for _, p := range privileges {
		words := strings.SplitN(strings.TrimSpace(p), " ", 2)
		if words[0] == "" {
			continue
		}
		words[0] = strings.ToUpper(words[0])
		if words[0] == "ALL" && len(words) == 2 && strings.EqualFold(words[1], "PRIVILEGES") {
			words = words[:1]
		}
		out = append(out, strings.Join(words, " "))
	}
	out = util.Unique(out)
	if util.Contains(out, "ALL") {
		return []string{"ALL"}
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := weight(out[i]), weight(out[j])
		if wi != wj {
			return wi < wj
		}
		return out[i] < out[j]
	})
	return out
}

// ACLBuilder folds the grants and revocations declared on every role into
// one ACL record per target object
type ACLBuilder struct {
	logger    *slog.Logger
	inv       *inventory.Inventory
	superuser string
	sets      *util.OrderedMap[ir.Triple, *ir.ACLSet]
}

func NewACLBuilder(logger *slog.Logger, inv *inventory.Inventory, superuser string) *ACLBuilder {
	return &ACLBuilder{
		logger:    logger,
		inv:       inv,
		superuser: superuser,
		sets:      util.NewOrderedMap[ir.Triple, *ir.ACLSet](),
	}
}

// Build adds the ACL records to the inventory and returns how many were
// added. Membership in a role the project doesn't define is an error.
func (self *ACLBuilder) Build() (int, error) {
	for _, rec := range self.inv.ByKind(ir.KindGroup, ir.KindRole, ir.KindUser) {
		role, ok := rec.Attributes.(*ir.Role)
		if !ok {
			continue
		}
		if err := self.collect(rec, ir.ACLRevoke, role.Revocations); err != nil {
			return 0, err
		}
		if err := self.collect(rec, ir.ACLGrant, role.Grants); err != nil {
			return 0, err
		}
	}
	for _, set := range self.sets.Values() {
		schema := set.Target.Schema
		if set.Target.Kind.IsSchemaless() {
			schema = ""
		}
		_, err := self.inv.Add(ir.ObjectRecord{
			Kind:       ir.KindACL,
			Schema:     schema,
			Name:       set.Name,
			Attributes: set,
		})
		if err != nil {
			return 0, err
		}
	}
	return self.sets.Len(), nil
}

func (self *ACLBuilder) collect(rec *ir.ObjectRecord, direction ir.ACLDirection, grants *ir.Grants) error {
	if grants == nil {
		return nil
	}
	grantee := rec.Name
	for _, og := range grants.Objects() {
		target, column, err := self.resolveTarget(og)
		if err != nil {
			self.logger.Warn("skipping privileges on missing object",
				"role", grantee, "kind", og.Kind, "object", og.Name)
			continue
		}
		privileges := og.Privileges
		if column != "" {
			privileges = util.Map(privileges, func(p string) string {
				return fmt.Sprintf("%s (%s)", p, sql.QuoteIdent(column))
			})
		}
		self.add(target, false, &ir.ACL{
			Privileges: privileges,
			Direction:  direction,
			Grantees:   []string{grantee},
			Target:     target.ID,
		})
	}
	for _, name := range grants.Memberships() {
		target, ok := self.lookupRole(name)
		if !ok && (strings.EqualFold(name, ir.RolePublic) || name == self.superuser) {
			self.logger.Debug("skipping membership in built in role", "role", grantee, "member_of", name)
			continue
		}
		if !ok {
			return &graph.DependencyResolutionError{
				Dependent: rec.Triple(),
				Target:    ir.Triple{Kind: ir.KindRole, Schema: string(ir.KindRole), Name: name},
			}
		}
		self.add(target, true, &ir.ACL{
			Direction: direction,
			Grantees:  []string{grantee},
			Target:    target.ID,
		})
	}
	return nil
}

func (self *ACLBuilder) add(target *ir.ObjectRecord, member bool, entry *ir.ACL) {
	triple := target.Triple()
	set := self.sets.GetOrInit(triple, func() *ir.ACLSet {
		name := string(target.Kind) + " " + target.Name
		if member {
			name = "ROLE " + target.Name
		}
		return &ir.ACLSet{
			Meta:   ir.Meta{Name: name, Schema: target.Schema},
			Target: triple,
			Member: member,
		}
	})
	set.Entries = append(set.Entries, entry)
}

func (self *ACLBuilder) lookupRole(name string) (*ir.ObjectRecord, bool) {
	for _, kind := range []ir.Kind{ir.KindRole, ir.KindGroup, ir.KindUser} {
		if rec, err := self.inv.Lookup(kind, "", name); err == nil {
			return rec, true
		}
	}
	return nil, false
}

// resolveTarget finds the record a grant applies to. Column grants are
// written as schema.table.column and resolve to the table.
func (self *ACLBuilder) resolveTarget(og ir.ObjectGrant) (*ir.ObjectRecord, string, error) {
	if og.Kind == ir.KindDatabase {
		return &ir.ObjectRecord{Kind: ir.KindDatabase, Schema: string(ir.KindDatabase), Name: og.Name}, "", nil
	}
	if og.Kind.IsSchemaless() {
		rec, err := self.inv.Lookup(og.Kind, "", og.Name)
		return rec, "", err
	}
	if og.Kind == ir.KindTable && strings.Count(og.Name, ".") == 2 {
		parts := strings.SplitN(og.Name, ".", 3)
		rec, err := self.inv.Lookup(ir.KindTable, parts[0], parts[1])
		return rec, parts[2], err
	}
	schema, name := ir.Dependency{Kind: og.Kind, Name: og.Name}.Split()
	rec, err := self.inv.Lookup(og.Kind, schema, name)
	if err != nil && og.Kind == ir.KindTable {
		// views and materialized views are granted on like tables
		for _, alt := range []ir.Kind{ir.KindView, ir.KindMaterializedView} {
			if r, altErr := self.inv.Lookup(alt, schema, name); altErr == nil {
				return r, "", nil
			}
		}
	}
	return rec, "", err
}

// aclObject renders the target of a GRANT statement
func (self *Synthesizer) aclObject(target ir.Triple) (string, error) {
	if target.Kind == ir.KindDatabase {
		return "DATABASE " + sql.QuoteIdent(target.Name), nil
	}
	rec, err := self.inv.Lookup(target.Kind, target.Schema, target.Name)
	if err != nil {
		return "", err
	}
	switch rec.Kind {
	case ir.KindTable, ir.KindView, ir.KindMaterializedView:
		return self.name(rec), nil
	case ir.KindServer:
		return "FOREIGN SERVER " + sql.QuoteIdent(rec.Name), nil
	}
	kind, name, err := self.reference(rec)
	if err != nil {
		return "", err
	}
	return kind + " " + name, nil
}

type aclGroup struct {
	direction  ir.ACLDirection
	privileges []string
	grantees   []string
}

// groupACLs merges entries with the same direction and privilege set,
// keeping first seen order
func groupACLs(entries []*ir.ACL, direction ir.ACLDirection) []*aclGroup {
	groups := util.NewOrderedMap[string, *aclGroup]()
	for _, entry := range entries {
		if entry.Direction != direction {
			continue
		}
		privileges := normalizePrivileges(entry.Privileges)
		key := strings.Join(privileges, ",")
		group := groups.GetOrInit(key, func() *aclGroup {
			return &aclGroup{direction: direction, privileges: privileges}
		})
		group.grantees = util.Unique(append(group.grantees, entry.Grantees...))
	}
	return groups.Values()
}

func (self *Synthesizer) renderACL(rec *ir.ObjectRecord) (string, error) {
	set, ok := rec.Attributes.(*ir.ACLSet)
	if !ok {
		return "", &attrsError{rec, "acl"}
	}
	out := strings.Builder{}
	if set.Member {
		for _, direction := range []ir.ACLDirection{ir.ACLRevoke, ir.ACLGrant} {
			for _, group := range groupACLs(set.Entries, direction) {
				stmt := &sql.GrantRole{Revoke: direction == ir.ACLRevoke, Role: set.Target.Name, Members: group.grantees}
				out.WriteString(stmt.ToSql(self.quoter) + "\n")
			}
		}
		return out.String(), nil
	}

	object, err := self.aclObject(set.Target)
	if err != nil {
		return "", err
	}
	revokeAll := &sql.Grant{Revoke: true, Privileges: []string{"ALL"}, Object: object, Roles: []string{ir.RolePublic}}
	out.WriteString(revokeAll.ToSql(self.quoter) + "\n")
	for _, direction := range []ir.ACLDirection{ir.ACLRevoke, ir.ACLGrant} {
		for _, group := range groupACLs(set.Entries, direction) {
			stmt := &sql.Grant{
				Revoke:     direction == ir.ACLRevoke,
				Privileges: group.privileges,
				Object:     object,
				Roles:      group.grantees,
			}
			out.WriteString(stmt.ToSql(self.quoter) + "\n")
		}
	}
	return out.String(), nil
}
