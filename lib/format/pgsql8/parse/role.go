package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

// RoleOptions are the WITH options of CREATE ROLE and ALTER ROLE
type RoleOptions struct {
	Options    []string
	Password   *string
	ValidUntil string
	InRoles    []string
	Members    []string
}

type CreateRole struct {
	Kind ir.Kind
	Name string
	RoleOptions
}

type AlterRole struct {
	Name string
	RoleOptions
}

// AlterRoleSet is ALTER ROLE ... SET or RESET. Reset drops the setting,
// a nil Setting with Reset set is RESET ALL.
type AlterRoleSet struct {
	Name     string
	Database string
	Setting  *ir.Setting
	Reset    bool
}

// boolean role options and their keyword when true
var roleFlags = map[string]string{
	"superuser":     "SUPERUSER",
	"createrole":    "CREATEROLE",
	"createdb":      "CREATEDB",
	"inherit":       "INHERIT",
	"canlogin":      "LOGIN",
	"isreplication": "REPLICATION",
	"bypassrls":     "BYPASSRLS",
}

var roleKinds = map[pg_query.RoleStmtType]ir.Kind{
	pg_query.RoleStmtType_ROLESTMT_ROLE:  ir.KindRole,
	pg_query.RoleStmtType_ROLESTMT_USER:  ir.KindUser,
	pg_query.RoleStmtType_ROLESTMT_GROUP: ir.KindGroup,
}

func createRole(stmt *pg_query.CreateRoleStmt) (*CreateRole, error) {
	if stmt.Role == "" {
		return nil, malformed("CreateRoleStmt", "role")
	}
	kind, ok := roleKinds[stmt.StmtType]
	if !ok {
		return nil, malformed("CreateRoleStmt", "stmt_type")
	}
	opts, err := roleOptions(stmt.Options)
	if err != nil {
		return nil, err
	}
	return &CreateRole{Kind: kind, Name: stmt.Role, RoleOptions: opts}, nil
}

func alterRole(stmt *pg_query.AlterRoleStmt) (*AlterRole, error) {
	if stmt.Role == nil {
		return nil, malformed("AlterRoleStmt", "role")
	}
	if stmt.Action != 1 {
		return nil, &UnsupportedNodeKindError{Kind: "AlterRoleStmt DROP"}
	}
	opts, err := roleOptions(stmt.Options)
	if err != nil {
		return nil, err
	}
	return &AlterRole{Name: roleName(stmt.Role), RoleOptions: opts}, nil
}

func roleOptions(nodes []*pg_query.Node) (RoleOptions, error) {
	opts := RoleOptions{}
	for _, n := range nodes {
		def := n.GetDefElem()
		if def == nil {
			return opts, unsupported(n)
		}
		if keyword, ok := roleFlags[def.Defname]; ok {
			if !flagValue(def.Arg) {
				keyword = "NO" + keyword
			}
			opts.Options = append(opts.Options, keyword)
			continue
		}
		switch def.Defname {
		case "connectionlimit":
			limit, err := Expression(def.Arg)
			if err != nil {
				return opts, err
			}
			opts.Options = append(opts.Options, "CONNECTION LIMIT "+limit)
		case "password":
			if s := def.Arg.GetString_(); s != nil {
				pw := s.Sval
				opts.Password = &pw
			} else {
				empty := ""
				opts.Password = &empty
			}
		case "validUntil":
			opts.ValidUntil = def.Arg.GetString_().GetSval()
		case "addroleto":
			names, err := roleList(def.Arg)
			if err != nil {
				return opts, err
			}
			opts.InRoles = append(opts.InRoles, names...)
		case "rolemembers":
			names, err := roleList(def.Arg)
			if err != nil {
				return opts, err
			}
			opts.Members = append(opts.Members, names...)
		case "sysid":
		default:
			return opts, &UnsupportedNodeKindError{Kind: "DefElem " + def.Defname}
		}
	}
	return opts, nil
}

// flagValue reads a boolean option, which older servers spell as an
// integer
func flagValue(arg *pg_query.Node) bool {
	switch v := arg.GetNode().(type) {
	case *pg_query.Node_Boolean:
		return v.Boolean.Boolval
	case *pg_query.Node_Integer:
		return v.Integer.Ival != 0
	}
	return true
}

func roleList(arg *pg_query.Node) ([]string, error) {
	out := []string{}
	for _, item := range arg.GetList().GetItems() {
		spec := item.GetRoleSpec()
		if spec == nil {
			return nil, unsupported(item)
		}
		out = append(out, roleName(spec))
	}
	return out, nil
}

func alterRoleSet(stmt *pg_query.AlterRoleSetStmt) (*AlterRoleSet, error) {
	if stmt.Role == nil {
		return nil, malformed("AlterRoleSetStmt", "role")
	}
	if stmt.Setstmt == nil {
		return nil, malformed("AlterRoleSetStmt", "setstmt")
	}
	set := &AlterRoleSet{Name: roleName(stmt.Role), Database: stmt.Database}
	switch stmt.Setstmt.Kind {
	case pg_query.VariableSetKind_VAR_SET_VALUE:
		value, err := settingValue(stmt.Setstmt.Args)
		if err != nil {
			return nil, err
		}
		set.Setting = &ir.Setting{Name: stmt.Setstmt.Name, Value: value}
	case pg_query.VariableSetKind_VAR_RESET:
		set.Reset = true
		set.Setting = &ir.Setting{Name: stmt.Setstmt.Name}
	case pg_query.VariableSetKind_VAR_RESET_ALL:
		set.Reset = true
	default:
		return nil, &UnsupportedNodeKindError{Kind: "VariableSetStmt " + stmt.Setstmt.Kind.String()}
	}
	return set, nil
}

// settingValue returns a scalar for a single argument and a list for
// several
func settingValue(args []*pg_query.Node) (interface{}, error) {
	values := make([]interface{}, len(args))
	for i, a := range args {
		c := a.GetAConst()
		if c == nil {
			return nil, unsupported(a)
		}
		switch v := c.Val.(type) {
		case *pg_query.A_Const_Ival:
			values[i] = int(v.Ival.Ival)
		case *pg_query.A_Const_Boolval:
			values[i] = v.Boolval.Boolval
		default:
			values[i] = constantText(c)
		}
	}
	switch len(values) {
	case 0:
		return nil, malformed("VariableSetStmt", "args")
	case 1:
		return values[0], nil
	}
	return values, nil
}

// Role converts a CREATE ROLE to the project representation
func (self *CreateRole) Role() *ir.Role {
	role := &ir.Role{
		Meta:       ir.Meta{Name: self.Name},
		Options:    self.Options,
		Password:   self.Password,
		ValidUntil: self.ValidUntil,
	}
	if len(self.InRoles) > 0 {
		role.Grants = &ir.Grants{Roles: self.InRoles}
	}
	return role
}

// Merge folds the options of an ALTER ROLE into role, replacing any
// earlier spelling of the same option
func (self *AlterRole) Merge(role *ir.Role) {
	for _, opt := range self.Options {
		role.Options = replaceOption(role.Options, opt)
	}
	if self.Password != nil {
		role.Password = self.Password
	}
	if self.ValidUntil != "" {
		role.ValidUntil = self.ValidUntil
	}
	if len(self.InRoles) > 0 {
		if role.Grants == nil {
			role.Grants = &ir.Grants{}
		}
		role.Grants.Roles = append(role.Grants.Roles, self.InRoles...)
	}
}

func replaceOption(options []string, opt string) []string {
	base := optionBase(opt)
	for i, existing := range options {
		if optionBase(existing) == base {
			options[i] = opt
			return options
		}
	}
	return append(options, opt)
}

// optionBase strips a NO prefix so SUPERUSER and NOSUPERUSER compare
// equal
func optionBase(opt string) string {
	opt = strings.ToUpper(opt)
	if strings.HasPrefix(opt, "CONNECTION LIMIT") {
		return "CONNECTION LIMIT"
	}
	for _, keyword := range roleFlags {
		if opt == "NO"+keyword {
			return keyword
		}
	}
	return opt
}
