package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

type AlterTable struct {
	Relation   Relation
	ObjectType string
	Only       bool
	Commands   []AlterTableCommand
}

// AlterTableCommand is one of AddConstraint, ColumnDefault or
// ChangeOwner
type AlterTableCommand interface {
	isAlterTableCommand()
}

type AddConstraint struct {
	Constraint Constraint
}

// ColumnDefault sets a column default; an empty Expression drops it
type ColumnDefault struct {
	Column     string
	Expression string
}

type ChangeOwner struct {
	Owner string
}

func (*AddConstraint) isAlterTableCommand() {}
func (*ColumnDefault) isAlterTableCommand() {}
func (*ChangeOwner) isAlterTableCommand()   {}

func alterTable(stmt *pg_query.AlterTableStmt) (*AlterTable, error) {
	rel, err := relation(stmt.Relation)
	if err != nil {
		return nil, err
	}
	alter := &AlterTable{
		Relation:   rel,
		ObjectType: objectType(stmt.Objtype),
		Only:       !stmt.Relation.Inh,
	}
	for _, n := range stmt.Cmds {
		cmd := n.GetAlterTableCmd()
		if cmd == nil {
			return nil, unsupported(n)
		}
		normalized, err := alterTableCommand(cmd)
		if err != nil {
			return nil, err
		}
		alter.Commands = append(alter.Commands, normalized)
	}
	return alter, nil
}

func alterTableCommand(cmd *pg_query.AlterTableCmd) (AlterTableCommand, error) {
	switch cmd.Subtype {
	case pg_query.AlterTableType_AT_AddConstraint:
		c, err := constraint(cmd.Def.GetConstraint())
		if err != nil {
			return nil, err
		}
		return &AddConstraint{Constraint: c}, nil
	case pg_query.AlterTableType_AT_ColumnDefault:
		if cmd.Name == "" {
			return nil, malformed("AlterTableCmd", "name")
		}
		expr, err := optionalExpression(cmd.Def)
		if err != nil {
			return nil, err
		}
		return &ColumnDefault{Column: cmd.Name, Expression: expr}, nil
	case pg_query.AlterTableType_AT_ChangeOwner:
		if cmd.Newowner == nil {
			return nil, malformed("AlterTableCmd", "newowner")
		}
		return &ChangeOwner{Owner: roleName(cmd.Newowner)}, nil
	}
	return nil, &UnsupportedNodeKindError{Kind: "AlterTableCmd " + cmd.Subtype.String()}
}

// roleName renders a role reference; the special forms come back as
// their keyword
func roleName(spec *pg_query.RoleSpec) string {
	if spec.Roletype == pg_query.RoleSpecType_ROLESPEC_CSTRING {
		return spec.Rolename
	}
	return strings.TrimPrefix(spec.Roletype.String(), "ROLESPEC_")
}

// objectType spells an OBJECT_* value the way DDL does
func objectType(t pg_query.ObjectType) string {
	switch t {
	case pg_query.ObjectType_OBJECT_FDW:
		return "FOREIGN DATA WRAPPER"
	case pg_query.ObjectType_OBJECT_FOREIGN_SERVER:
		return "SERVER"
	case pg_query.ObjectType_OBJECT_LARGEOBJECT:
		return "LARGE OBJECT"
	case pg_query.ObjectType_OBJECT_MATVIEW:
		return "MATERIALIZED VIEW"
	case pg_query.ObjectType_OBJECT_TABCONSTRAINT:
		return "CONSTRAINT"
	case pg_query.ObjectType_OBJECT_TSCONFIGURATION:
		return "TEXT SEARCH CONFIGURATION"
	case pg_query.ObjectType_OBJECT_TSDICTIONARY:
		return "TEXT SEARCH DICTIONARY"
	case pg_query.ObjectType_OBJECT_TSPARSER:
		return "TEXT SEARCH PARSER"
	case pg_query.ObjectType_OBJECT_TSTEMPLATE:
		return "TEXT SEARCH TEMPLATE"
	}
	return strings.ReplaceAll(strings.TrimPrefix(t.String(), "OBJECT_"), "_", " ")
}
