package parse

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

const DefaultIndexMethod = "btree"

type CreateIndex struct {
	Name       string
	Relation   Relation
	Only       bool
	Unique     bool
	Method     string
	Columns    []*ir.IndexColumn
	Include    []string
	Options    map[string]string
	Tablespace string
	Where      string
}

var sortDirections = map[pg_query.SortByDir]string{
	pg_query.SortByDir_SORTBY_ASC:  "ASC",
	pg_query.SortByDir_SORTBY_DESC: "DESC",
}

var nullPlacements = map[pg_query.SortByNulls]string{
	pg_query.SortByNulls_SORTBY_NULLS_FIRST: "FIRST",
	pg_query.SortByNulls_SORTBY_NULLS_LAST:  "LAST",
}

func createIndex(stmt *pg_query.IndexStmt) (*CreateIndex, error) {
	if stmt.Idxname == "" {
		return nil, malformed("IndexStmt", "idxname")
	}
	rel, err := relation(stmt.Relation)
	if err != nil {
		return nil, err
	}
	index := &CreateIndex{
		Name:       stmt.Idxname,
		Relation:   rel,
		Only:       !stmt.Relation.Inh,
		Unique:     stmt.Unique,
		Method:     stmt.AccessMethod,
		Tablespace: stmt.TableSpace,
	}
	if index.Method == "" {
		index.Method = DefaultIndexMethod
	}
	if len(stmt.IndexParams) == 0 {
		return nil, malformed("IndexStmt", "index_params")
	}
	for _, p := range stmt.IndexParams {
		elem := p.GetIndexElem()
		if elem == nil {
			return nil, unsupported(p)
		}
		col, err := indexColumn(elem)
		if err != nil {
			return nil, err
		}
		index.Columns = append(index.Columns, col)
	}
	for _, p := range stmt.IndexIncludingParams {
		elem := p.GetIndexElem()
		if elem == nil || elem.Name == "" {
			return nil, malformed("IndexStmt", "index_including_params")
		}
		index.Include = append(index.Include, elem.Name)
	}
	if index.Options, err = definitionOptions(stmt.Options); err != nil {
		return nil, err
	}
	if index.Where, err = optionalExpression(stmt.WhereClause); err != nil {
		return nil, err
	}
	return index, nil
}

func indexColumn(elem *pg_query.IndexElem) (*ir.IndexColumn, error) {
	col := &ir.IndexColumn{
		Name:          elem.Name,
		Direction:     sortDirections[elem.Ordering],
		NullPlacement: nullPlacements[elem.NullsOrdering],
	}
	if col.Name == "" {
		if elem.Expr == nil {
			return nil, malformed("IndexElem", "expr")
		}
		expr, err := Expression(elem.Expr)
		if err != nil {
			return nil, err
		}
		col.Expression = expr
	}
	var err error
	if col.Collation, err = dottedName(elem.Collation); err != nil {
		return nil, err
	}
	if col.OpClass, err = dottedName(elem.Opclass); err != nil {
		return nil, err
	}
	return col, nil
}

// Index converts the statement to the project representation, leaving
// the default access method out
func (self *CreateIndex) Index() *ir.Index {
	index := &ir.Index{
		Name:              self.Name,
		Unique:            self.Unique,
		Columns:           self.Columns,
		Include:           self.Include,
		StorageParameters: self.Options,
		Tablespace:        self.Tablespace,
		Where:             self.Where,
	}
	if self.Method != DefaultIndexMethod {
		index.Method = self.Method
	}
	if self.Only {
		recurse := false
		index.Recurse = &recurse
	}
	return index
}
