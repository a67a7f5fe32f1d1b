package sql

import (
	"fmt"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/output"
)

// Grant is GRANT privs ON object TO roles, or REVOKE privs ON object
// FROM roles when Revoke is set. Object is already rendered, including
// its kind keyword where one is needed.
type Grant struct {
	Revoke     bool
	Privileges []string
	Object     string
	Roles      []string
	CanGrant   bool
}

func (g *Grant) ToSql(q output.Quoter) string {
	roles := make([]string, len(g.Roles))
	for i, role := range g.Roles {
		roles[i] = q.QuoteRole(role)
	}

	// NOTE it is the job of callers to validate that the correct permissions are set
	perms := make([]string, len(g.Privileges))
	for i, perm := range g.Privileges {
		// column lists keep their case: UPDATE (col)
		keyword, columns, _ := strings.Cut(perm, " ")
		perms[i] = strings.TrimSpace(strings.ToUpper(keyword) + " " + columns)
	}

	if g.Revoke {
		return fmt.Sprintf("REVOKE %s ON %s FROM %s;", strings.Join(perms, ", "), g.Object, strings.Join(roles, ", "))
	}
	option := ""
	if g.CanGrant {
		option = " WITH GRANT OPTION"
	}
	return fmt.Sprintf("GRANT %s ON %s TO %s%s;", strings.Join(perms, ", "), g.Object, strings.Join(roles, ", "), option)
}

// GrantRole is role membership: GRANT role TO members
type GrantRole struct {
	Revoke  bool
	Role    string
	Members []string
}

func (g *GrantRole) ToSql(q output.Quoter) string {
	members := make([]string, len(g.Members))
	for i, m := range g.Members {
		members[i] = q.QuoteRole(m)
	}
	if g.Revoke {
		return fmt.Sprintf("REVOKE %s FROM %s;", q.QuoteRole(g.Role), strings.Join(members, ", "))
	}
	return fmt.Sprintf("GRANT %s TO %s;", q.QuoteRole(g.Role), strings.Join(members, ", "))
}
