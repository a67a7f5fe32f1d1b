package pgsql8

import (
	"strings"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

func (self *Synthesizer) renderRole(rec *ir.ObjectRecord) (string, error) {
	role, ok := rec.Attributes.(*ir.Role)
	if !ok {
		return "", &attrsError{rec, "role"}
	}
	out := strings.Builder{}
	if role.ShouldCreate() && !self.isSuperuser(rec.Name) {
		stmt := tokens{"CREATE ROLE", self.quoter.QuoteRole(rec.Name)}
		opts := make([]string, 0, len(role.Options)+1)
		for _, o := range role.Options {
			opts = append(opts, strings.ToUpper(o))
		}
		if rec.Kind == ir.KindUser && !role.HasOption("LOGIN") && !role.HasOption("NOLOGIN") {
			opts = append(opts, "LOGIN")
		}
		if len(opts) > 0 || role.Password != nil || role.ValidUntil != "" {
			stmt.add("WITH")
		}
		stmt.add(opts...)
		if role.Password != nil {
			if *role.Password == "" {
				stmt.add("PASSWORD NULL")
			} else {
				stmt.add("PASSWORD", sql.PostgresValue(*role.Password))
			}
		}
		if role.ValidUntil != "" {
			stmt.add("VALID UNTIL", sql.PostgresValue(role.ValidUntil))
		}
		out.WriteString(stmt.statement())
	}
	for _, setting := range role.Settings {
		set := &sql.RoleSet{Role: rec.Name, Param: setting.Name, Value: setting.Value}
		out.WriteString(set.ToSql(self.quoter) + "\n")
	}
	return out.String(), nil
}

func (self *Synthesizer) isSuperuser(name string) bool {
	return name == self.superuser
}
