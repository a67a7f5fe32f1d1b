package live

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgtype"
	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

//go:generate mockgen -destination=mock_roles.go -package=live . RoleIntrospector

// RoleEntry is one row of pg_roles
type RoleEntry struct {
	Name        string
	Super       bool
	Inherit     bool
	CreateRole  bool
	CreateDB    bool
	CanLogin    bool
	Replication bool
	BypassRLS   bool
	ConnLimit   int32
	ValidUntil  pgtype.Timestamptz
	Config      pgtype.TextArray
	Comment     pgtype.Text
}

// MembershipEntry is one row of pg_auth_members, by name
type MembershipEntry struct {
	Role        string
	Member      string
	AdminOption bool
}

type RoleIntrospector interface {
	GetRoles(ctx context.Context) ([]RoleEntry, error)
	GetMemberships(ctx context.Context) ([]MembershipEntry, error)
}

type LiveRoleIntrospector struct {
	conn *Connection
	vers VersionNum
}

var _ RoleIntrospector = &LiveRoleIntrospector{}

func NewRoleIntrospector(ctx context.Context, conn *Connection) (*LiveRoleIntrospector, error) {
	vers, err := conn.Version(ctx)
	if err != nil {
		return nil, err
	}
	return &LiveRoleIntrospector{conn, vers}, nil
}

func (self *LiveRoleIntrospector) GetRoles(ctx context.Context) ([]RoleEntry, error) {
	bypass := "false"
	if FEAT_ROLE_BYPASSRLS(self.vers) {
		bypass = "r.rolbypassrls"
	}
	rows, err := self.conn.Query(ctx, fmt.Sprintf(`
		SELECT r.rolname, r.rolsuper, r.rolinherit, r.rolcreaterole, r.rolcreatedb,
		       r.rolcanlogin, r.rolreplication, %s, r.rolconnlimit, r.rolvaliduntil,
		       r.rolconfig, pg_catalog.shobj_description(r.oid, 'pg_authid')
		FROM pg_catalog.pg_roles r
		WHERE r.rolname !~ '^pg_'
		ORDER BY r.rolname
	`, bypass))
	if err != nil {
		return nil, errors.Wrap(err, "while running query")
	}
	defer rows.Close()
	out := []RoleEntry{}
	for rows.Next() {
		e := RoleEntry{}
		err := rows.Scan(
			&e.Name, &e.Super, &e.Inherit, &e.CreateRole, &e.CreateDB,
			&e.CanLogin, &e.Replication, &e.BypassRLS, &e.ConnLimit, &e.ValidUntil,
			&e.Config, &e.Comment,
		)
		if err != nil {
			return nil, errors.Wrap(err, "while scanning result")
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "while iterating results")
}

func (self *LiveRoleIntrospector) GetMemberships(ctx context.Context) ([]MembershipEntry, error) {
	rows, err := self.conn.Query(ctx, `
		SELECT r.rolname, m.rolname, a.admin_option
		FROM pg_catalog.pg_auth_members a
		JOIN pg_catalog.pg_roles r ON r.oid = a.roleid
		JOIN pg_catalog.pg_roles m ON m.oid = a.member
		WHERE m.rolname !~ '^pg_'
		ORDER BY m.rolname, r.rolname
	`)
	if err != nil {
		return nil, errors.Wrap(err, "while running query")
	}
	defer rows.Close()
	out := []MembershipEntry{}
	for rows.Next() {
		e := MembershipEntry{}
		if err := rows.Scan(&e.Role, &e.Member, &e.AdminOption); err != nil {
			return nil, errors.Wrap(err, "while scanning result")
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "while iterating results")
}

// Role is an extracted role and the project kind it is written as
type Role struct {
	Kind ir.Kind
	Role *ir.Role
}

// ExtractRoles reads every role and its memberships. Roles that can log
// in are users, the rest are roles.
func ExtractRoles(ctx context.Context, intro RoleIntrospector) ([]*Role, error) {
	entries, err := intro.GetRoles(ctx)
	if err != nil {
		return nil, err
	}
	memberships, err := intro.GetMemberships(ctx)
	if err != nil {
		return nil, err
	}
	byName := map[string]*Role{}
	out := []*Role{}
	for _, e := range entries {
		r := &Role{Kind: ir.KindRole, Role: roleFromEntry(e)}
		if e.CanLogin {
			r.Kind = ir.KindUser
		}
		byName[e.Name] = r
		out = append(out, r)
	}
	for _, m := range memberships {
		r, ok := byName[m.Member]
		if !ok {
			continue
		}
		if r.Role.Grants == nil {
			r.Role.Grants = &ir.Grants{}
		}
		r.Role.Grants.Roles = append(r.Role.Grants.Roles, m.Role)
	}
	return out, nil
}

// flag spells a boolean role attribute the way pg_dumpall does
func flag(set bool, keyword string) string {
	if set {
		return keyword
	}
	return "NO" + keyword
}

func roleFromEntry(e RoleEntry) *ir.Role {
	role := &ir.Role{
		Meta: ir.Meta{Name: e.Name},
		Options: []string{
			flag(e.Super, "SUPERUSER"),
			flag(e.Inherit, "INHERIT"),
			flag(e.CreateRole, "CREATEROLE"),
			flag(e.CreateDB, "CREATEDB"),
			flag(e.CanLogin, "LOGIN"),
			flag(e.Replication, "REPLICATION"),
			flag(e.BypassRLS, "BYPASSRLS"),
		},
	}
	if e.ConnLimit >= 0 {
		role.Options = append(role.Options, fmt.Sprintf("CONNECTION LIMIT %d", e.ConnLimit))
	}
	if e.ValidUntil.Status == pgtype.Present {
		switch e.ValidUntil.InfinityModifier {
		case pgtype.Infinity:
			role.ValidUntil = "infinity"
		case pgtype.NegativeInfinity:
			role.ValidUntil = "-infinity"
		default:
			role.ValidUntil = e.ValidUntil.Time.UTC().Format("2006-01-02 15:04:05Z07")
		}
	}
	if e.Comment.Status == pgtype.Present {
		role.Comment = e.Comment.String
	}
	if e.Config.Status == pgtype.Present {
		for _, item := range e.Config.Elements {
			if item.Status != pgtype.Present {
				continue
			}
			role.Settings = append(role.Settings, setting(item.String))
		}
		sort.SliceStable(role.Settings, func(i, j int) bool {
			return role.Settings[i].Name < role.Settings[j].Name
		})
	}
	return role
}

// setting splits a rolconfig item such as "search_path=app, public"
func setting(item string) *ir.Setting {
	name, value, _ := strings.Cut(item, "=")
	parts := strings.Split(value, ",")
	values := make([]interface{}, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if n, err := strconv.Atoi(p); err == nil {
			values[i] = n
		} else {
			values[i] = p
		}
	}
	if len(values) == 1 {
		return &ir.Setting{Name: name, Value: values[0]}
	}
	return &ir.Setting{Name: name, Value: values}
}
