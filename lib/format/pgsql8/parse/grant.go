package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Grant is a GRANT or REVOKE of privileges on objects
type Grant struct {
	Revoke      bool
	Privileges  []Privilege
	ObjectType  string
	Objects     []string
	Grantees    []string
	GrantOption bool
}

// Privilege is a single privilege keyword, optionally limited to
// columns. An empty Name is ALL.
type Privilege struct {
	Name    string
	Columns []string
}

func (self Privilege) String() string {
	name := self.Name
	if name == "" {
		name = "ALL"
	}
	if len(self.Columns) == 0 {
		return name
	}
	return name + " (" + strings.Join(self.Columns, ", ") + ")"
}

// GrantRole is a GRANT or REVOKE of role membership
type GrantRole struct {
	Revoke  bool
	Roles   []string
	Members []string
}

func grant(stmt *pg_query.GrantStmt) (*Grant, error) {
	if stmt.Targtype != pg_query.GrantTargetType_ACL_TARGET_OBJECT {
		return nil, &UnsupportedNodeKindError{Kind: "GrantStmt " + stmt.Targtype.String()}
	}
	g := &Grant{
		Revoke:      !stmt.IsGrant,
		ObjectType:  objectType(stmt.Objtype),
		GrantOption: stmt.GrantOption,
	}
	if len(stmt.Privileges) == 0 {
		g.Privileges = []Privilege{{}}
	}
	for _, p := range stmt.Privileges {
		priv := p.GetAccessPriv()
		if priv == nil {
			return nil, unsupported(p)
		}
		cols, err := stringList(priv.Cols)
		if err != nil {
			return nil, err
		}
		g.Privileges = append(g.Privileges, Privilege{Name: strings.ToUpper(priv.PrivName), Columns: cols})
	}
	for _, obj := range stmt.Objects {
		name, err := grantObject(obj)
		if err != nil {
			return nil, err
		}
		g.Objects = append(g.Objects, name)
	}
	if len(g.Objects) == 0 {
		return nil, malformed("GrantStmt", "objects")
	}
	for _, r := range stmt.Grantees {
		spec := r.GetRoleSpec()
		if spec == nil {
			return nil, unsupported(r)
		}
		g.Grantees = append(g.Grantees, roleName(spec))
	}
	if len(g.Grantees) == 0 {
		return nil, malformed("GrantStmt", "grantees")
	}
	return g, nil
}

// grantObject renders a grant target as it is named in project files
func grantObject(node *pg_query.Node) (string, error) {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_RangeVar:
		rel, err := relation(n.RangeVar)
		return rel.String(), err
	case *pg_query.Node_String_:
		return n.String_.Sval, nil
	case *pg_query.Node_List:
		return dottedName(n.List.Items)
	case *pg_query.Node_TypeName:
		return TypeName(n.TypeName)
	case *pg_query.Node_ObjectWithArgs:
		name, err := dottedName(n.ObjectWithArgs.Objname)
		if err != nil {
			return "", err
		}
		args := make([]string, len(n.ObjectWithArgs.Objargs))
		for i, a := range n.ObjectWithArgs.Objargs {
			tn := a.GetTypeName()
			if tn == nil {
				return "", unsupported(a)
			}
			if args[i], err = TypeName(tn); err != nil {
				return "", err
			}
		}
		return name + "(" + strings.Join(args, ", ") + ")", nil
	}
	return "", unsupported(node)
}

func grantRole(stmt *pg_query.GrantRoleStmt) (*GrantRole, error) {
	g := &GrantRole{Revoke: !stmt.IsGrant}
	for _, r := range stmt.GrantedRoles {
		priv := r.GetAccessPriv()
		if priv == nil || priv.PrivName == "" {
			return nil, malformed("GrantRoleStmt", "granted_roles")
		}
		g.Roles = append(g.Roles, priv.PrivName)
	}
	for _, r := range stmt.GranteeRoles {
		spec := r.GetRoleSpec()
		if spec == nil {
			return nil, unsupported(r)
		}
		g.Members = append(g.Members, roleName(spec))
	}
	if len(g.Roles) == 0 || len(g.Members) == 0 {
		return nil, malformed("GrantRoleStmt", "roles")
	}
	return g, nil
}
