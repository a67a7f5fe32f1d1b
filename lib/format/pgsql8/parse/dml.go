package parse

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// DML is an INSERT, UPDATE or DELETE, kept as canonical SQL
type DML struct {
	Command  string
	Relation Relation
	SQL      string
}

func dml(node *pg_query.Node, command string, rv *pg_query.RangeVar) (*DML, error) {
	rel, err := relation(rv)
	if err != nil {
		return nil, err
	}
	text, err := deparse(node)
	if err != nil {
		return nil, err
	}
	return &DML{Command: command, Relation: rel, SQL: text}, nil
}

// InsertValues pulls the column list and literal rows out of a VALUES
// insert. ok is false for inserts that are not plain VALUES lists.
func InsertValues(text string) (columns []string, rows [][]*string, ok bool, err error) {
	tree, err := pg_query.Parse(text)
	if err != nil {
		return nil, nil, false, err
	}
	for _, raw := range tree.Stmts {
		insert := raw.Stmt.GetInsertStmt()
		if insert == nil {
			return nil, nil, false, nil
		}
		cols := make([]string, len(insert.Cols))
		for i, c := range insert.Cols {
			cols[i] = c.GetResTarget().GetName()
		}
		if columns == nil {
			columns = cols
		}
		values := insert.SelectStmt.GetSelectStmt().GetValuesLists()
		if len(values) == 0 || len(cols) != len(columns) {
			return nil, nil, false, nil
		}
		for _, list := range values {
			items := list.GetList().GetItems()
			if len(items) != len(columns) {
				return nil, nil, false, nil
			}
			row := make([]*string, len(items))
			for i, item := range items {
				c := item.GetAConst()
				if c == nil {
					return nil, nil, false, nil
				}
				if !c.Isnull {
					v := constantText(c)
					row[i] = &v
				}
			}
			rows = append(rows, row)
		}
	}
	return columns, rows, columns != nil, nil
}

// constantText is the unquoted text of a constant
func constantText(c *pg_query.A_Const) string {
	if s := c.GetSval(); s != nil {
		return s.Sval
	}
	if b := c.GetBoolval(); b != nil {
		if b.Boolval {
			return "t"
		}
		return "f"
	}
	return constant(c)
}
