// Package parse turns the SQL found in dump entries into small, stable
// statement structs. The heavy lifting is done by pg_query_go; this
// package only normalizes its syntax tree.
package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pkg/errors"
)

// Statement is one normalized SQL statement. The set of implementations
// is closed to this package.
type Statement interface {
	isStatement()
}

func (*CreateTable) isStatement()    {}
func (*CreateIndex) isStatement()    {}
func (*CreateTrigger) isStatement()  {}
func (*CreateSequence) isStatement() {}
func (*AlterTable) isStatement()     {}
func (*AlterSequence) isStatement()  {}
func (*CreateRule) isStatement()     {}
func (*DML) isStatement()            {}
func (*Grant) isStatement()          {}
func (*GrantRole) isStatement()      {}
func (*CreateRole) isStatement()     {}
func (*AlterRole) isStatement()      {}
func (*AlterRoleSet) isStatement()   {}
func (*Comment) isStatement()        {}

// Relation is a possibly schema qualified table reference
type Relation struct {
	Schema string
	Name   string
}

func (self Relation) String() string {
	if self.Schema == "" {
		return self.Name
	}
	return self.Schema + "." + self.Name
}

// Parse normalizes every statement in text
func Parse(text string) ([]Statement, error) {
	tree, err := pg_query.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse sql")
	}
	out := make([]Statement, 0, len(tree.Stmts))
	for _, raw := range tree.Stmts {
		stmt, err := Normalize(raw.Stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// ParseOne normalizes text that must hold exactly one statement
func ParseOne(text string) (Statement, error) {
	stmts, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, errors.Errorf("expected one statement, found %d", len(stmts))
	}
	return stmts[0], nil
}

// Normalize converts a single parsed statement node
func Normalize(node *pg_query.Node) (Statement, error) {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_CreateStmt:
		return createTable(n.CreateStmt)
	case *pg_query.Node_IndexStmt:
		return createIndex(n.IndexStmt)
	case *pg_query.Node_CreateTrigStmt:
		return createTrigger(n.CreateTrigStmt)
	case *pg_query.Node_CreateSeqStmt:
		return createSequence(n.CreateSeqStmt)
	case *pg_query.Node_AlterTableStmt:
		return alterTable(n.AlterTableStmt)
	case *pg_query.Node_AlterSeqStmt:
		return alterSequence(n.AlterSeqStmt)
	case *pg_query.Node_RuleStmt:
		return createRule(n.RuleStmt)
	case *pg_query.Node_InsertStmt:
		return dml(node, "INSERT", n.InsertStmt.Relation)
	case *pg_query.Node_UpdateStmt:
		return dml(node, "UPDATE", n.UpdateStmt.Relation)
	case *pg_query.Node_DeleteStmt:
		return dml(node, "DELETE", n.DeleteStmt.Relation)
	case *pg_query.Node_GrantStmt:
		return grant(n.GrantStmt)
	case *pg_query.Node_GrantRoleStmt:
		return grantRole(n.GrantRoleStmt)
	case *pg_query.Node_CreateRoleStmt:
		return createRole(n.CreateRoleStmt)
	case *pg_query.Node_AlterRoleStmt:
		return alterRole(n.AlterRoleStmt)
	case *pg_query.Node_AlterRoleSetStmt:
		return alterRoleSet(n.AlterRoleSetStmt)
	case *pg_query.Node_CommentStmt:
		return comment(n.CommentStmt)
	}
	return nil, unsupported(node)
}

func relation(rv *pg_query.RangeVar) (Relation, error) {
	if rv == nil {
		return Relation{}, malformed("RangeVar", "relation")
	}
	if rv.Relname == "" {
		return Relation{}, malformed("RangeVar", "relname")
	}
	return Relation{Schema: rv.Schemaname, Name: rv.Relname}, nil
}

// stringValue unwraps a String node
func stringValue(n *pg_query.Node) (string, error) {
	s, ok := n.GetNode().(*pg_query.Node_String_)
	if !ok {
		return "", unsupported(n)
	}
	return s.String_.Sval, nil
}

func stringList(nodes []*pg_query.Node) ([]string, error) {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		s, err := stringValue(n)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// dottedName joins a name list such as a function or collation name
func dottedName(nodes []*pg_query.Node) (string, error) {
	parts, err := stringList(nodes)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, "."), nil
}

// deparse renders a statement node back to SQL text
func deparse(node *pg_query.Node) (string, error) {
	text, err := pg_query.Deparse(&pg_query.ParseResult{
		Stmts: []*pg_query.RawStmt{{Stmt: node}},
	})
	if err != nil {
		return "", errors.Wrapf(err, "could not deparse %s", nodeKind(node))
	}
	return text, nil
}
