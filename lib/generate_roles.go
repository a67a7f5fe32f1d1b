package lib

import (
	"os"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/archive"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/live"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/parse"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/util"
)

type generatedRole struct {
	kind ir.Kind
	role *ir.Role
}

// aclKinds maps the object type of a GRANT to the grant block it is
// recorded under
var aclKinds = map[string]ir.Kind{
	"TABLE":                ir.KindTable,
	"SEQUENCE":             ir.KindSequence,
	"FUNCTION":             ir.KindFunction,
	"PROCEDURE":            ir.KindProcedure,
	"ROUTINE":              ir.KindFunction,
	"SCHEMA":               ir.KindSchema,
	"DATABASE":             ir.KindDatabase,
	"DOMAIN":               ir.KindDomain,
	"TYPE":                 ir.KindType,
	"LANGUAGE":             ir.KindProceduralLanguage,
	"FOREIGN DATA WRAPPER": ir.KindForeignDataWrapper,
	"SERVER":               ir.KindServer,
	"TABLESPACE":           ir.KindTablespace,
}

// ReadRoles loads the roles of a pg_dumpall -r file. psql meta commands
// and statements that don't describe a role are skipped.
func (self *Generator) ReadRoles(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &ExitError{Code: ExitInvalidAction, Err: errors.Wrapf(err, "could not read roles file %s", path)}
	}
	lines := []string{}
	for _, line := range strings.Split(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, `\`) || strings.HasPrefix(trimmed, "--") {
			continue
		}
		lines = append(lines, line)
	}
	stmts, err := pg_query.SplitWithScanner(strings.Join(lines, "\n"), true)
	if err != nil {
		return &ExitError{Code: ExitInvalidAction, Err: errors.Wrapf(err, "could not split roles file %s", path)}
	}
	self.hasRoles = true
	for _, text := range stmts {
		stmt, err := parse.ParseOne(text)
		if err != nil {
			self.logger.Debug("skipping roles file statement", "sql", text, "error", err)
			continue
		}
		self.addRoleStatement(stmt)
	}
	self.logger.Info("read roles", "path", path, "count", self.roles.Len())
	return nil
}

func (self *Generator) addRoleStatement(stmt parse.Statement) {
	switch s := stmt.(type) {
	case *parse.CreateRole:
		r := s.Role()
		kind := s.Kind
		if kind == ir.KindRole && r.HasOption("LOGIN") {
			kind = ir.KindUser
		}
		self.roles.Set(s.Name, &generatedRole{kind: kind, role: r})

	case *parse.AlterRole:
		r := self.role(s.Name)
		s.Merge(r.role)
		if r.kind == ir.KindRole && r.role.HasOption("LOGIN") {
			r.kind = ir.KindUser
		}

	case *parse.AlterRoleSet:
		if s.Database != "" {
			self.logger.Debug("skipping per database role setting", "role", s.Name, "database", s.Database)
			return
		}
		r := self.role(s.Name).role
		if !s.Reset {
			r.Settings = append(r.Settings, s.Setting)
			return
		}
		if s.Setting == nil {
			r.Settings = nil
			return
		}
		kept := r.Settings[:0]
		for _, setting := range r.Settings {
			if setting.Name != s.Setting.Name {
				kept = append(kept, setting)
			}
		}
		r.Settings = kept

	case *parse.GrantRole:
		for _, member := range s.Members {
			r := self.role(member).role
			block := &r.Grants
			if s.Revoke {
				block = &r.Revocations
			}
			if *block == nil {
				*block = &ir.Grants{}
			}
			(*block).Roles = append((*block).Roles, s.Roles...)
		}

	case *parse.Comment:
		if s.ObjectType == string(ir.KindRole) {
			self.role(s.Object).role.Comment = s.Text
		}
	}
}

// role returns the named role, adding it when no CREATE ROLE was seen
func (self *Generator) role(name string) *generatedRole {
	return self.roles.GetOrInit(name, func() *generatedRole {
		return &generatedRole{kind: ir.KindRole, role: &ir.Role{Meta: ir.Meta{Name: name}}}
	})
}

// AddCatalogRoles uses roles read from pg_roles
func (self *Generator) AddCatalogRoles(roles []*live.Role) {
	self.hasRoles = true
	for _, r := range roles {
		self.roles.Set(r.Role.Name, &generatedRole{kind: r.Kind, role: r.Role})
	}
	self.logger.Info("read roles from the catalog", "count", self.roles.Len())
}

// processACLs folds ACL entries into the grants and revocations of the
// roles they name
func (self *Generator) processACLs() error {
	if self.config.NoPrivileges {
		self.markAll(archive.DescACL)
		return nil
	}
	for _, e := range self.entries[archive.DescACL] {
		stmts, err := parse.Parse(e.Defn)
		if err != nil {
			self.logger.Warn("could not parse ACL", "tag", e.Tag, "error", err)
			continue
		}
		grants := []*parse.Grant{}
		for _, stmt := range stmts {
			if g, ok := stmt.(*parse.Grant); ok {
				grants = append(grants, g)
			}
		}
		kept := []*parse.Grant{}
		for _, g := range grants {
			if g.Revoke && hasMatchingGrant(g, grants) {
				continue
			}
			kept = append(kept, g)
		}
		if !self.assignable(kept) {
			self.logger.Warn("could not assign ACL", "tag", e.Tag)
			continue
		}
		for _, g := range kept {
			self.applyGrant(g)
		}
		self.mark(e)
	}
	return nil
}

// hasMatchingGrant is true when a REVOKE just undoes one of the grants
// in the same entry
func hasMatchingGrant(revoke *parse.Grant, stmts []*parse.Grant) bool {
	for _, g := range stmts {
		if g.Revoke || g.ObjectType != revoke.ObjectType || !sameStrings(g.Objects, revoke.Objects) {
			continue
		}
		if sameStrings(g.Grantees, revoke.Grantees) && samePrivileges(g.Privileges, revoke.Privileges) {
			return true
		}
	}
	return false
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func samePrivileges(a, b []parse.Privilege) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].String() != b[i].String() {
			return false
		}
	}
	return true
}

// assignable is true when every grant names a known object type and
// only known roles
func (self *Generator) assignable(grants []*parse.Grant) bool {
	for _, g := range grants {
		if _, ok := aclKinds[g.ObjectType]; !ok {
			self.logger.Debug("unsupported grant object type", "type", g.ObjectType)
			return false
		}
		for _, grantee := range g.Grantees {
			if !strings.EqualFold(grantee, ir.RolePublic) && !self.roles.Has(grantee) {
				self.logger.Warn("grant to unknown role", "role", grantee, "object", strings.Join(g.Objects, ", "))
				return false
			}
		}
	}
	return true
}

// applyGrant records g on each grantee. PUBLIC is not a role and is
// skipped.
func (self *Generator) applyGrant(g *parse.Grant) {
	kind := aclKinds[g.ObjectType]
	for _, grantee := range g.Grantees {
		if strings.EqualFold(grantee, ir.RolePublic) {
			continue
		}
		r := self.roles.Get(grantee).role
		block := &r.Grants
		if g.Revoke {
			block = &r.Revocations
		}
		if *block == nil {
			*block = &ir.Grants{}
		}
		for _, obj := range g.Objects {
			for _, p := range g.Privileges {
				name := util.CoalesceStr(p.Name, "ALL")
				if len(p.Columns) == 0 {
					(*block).Add(kind, obj, []string{name})
					continue
				}
				if (*block).Columns == nil {
					(*block).Columns = map[string][]string{}
				}
				for _, col := range p.Columns {
					key := obj + "." + col
					(*block).Columns[key] = append((*block).Columns[key], name)
				}
			}
		}
	}
}

func (self *Generator) writeRoles() error {
	for _, r := range self.roles.Values() {
		if r.role.Grants.IsEmpty() {
			r.role.Grants = nil
		}
		if r.role.Revocations.IsEmpty() {
			r.role.Revocations = nil
		}
		if err := self.save(r.kind, "", r.role.Name, r.role); err != nil {
			return err
		}
	}
	return nil
}
