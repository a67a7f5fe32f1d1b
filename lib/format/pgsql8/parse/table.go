package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

type CreateTable struct {
	Relation     Relation
	Unlogged     bool
	Like         *Like
	Columns      []*Column
	Constraints  []Constraint
	Inherits     []Relation
	PartitionBy  *PartitionBy
	AccessMethod string
	Options      map[string]string
	Tablespace   string
}

type Column struct {
	Name        string
	DataType    string
	Collation   string
	Constraints []Constraint
}

type Like struct {
	Relation  Relation
	Including []string
}

type PartitionBy struct {
	Strategy string
	Columns  []string
}

// Constraint is one of the constraint shapes below. The set is closed to
// this package.
type Constraint interface {
	isConstraint()
}

// Null is an explicit NULL or NOT NULL
type Null struct {
	NotNull bool
}

type Default struct {
	Expression string
}

// Generated is an identity column when Identity is set, otherwise a
// stored generated expression
type Generated struct {
	Identity   bool
	When       string
	Expression string
}

type Check struct {
	Name       string
	Expression string
	NoInherit  bool
	NotValid   bool
}

// Key is the shape shared by primary key and unique constraints
type Key struct {
	Name              string
	Columns           []string
	Include           []string
	Tablespace        string
	Deferrable        bool
	InitiallyDeferred bool
}

type PrimaryKey struct {
	Key
}

type Unique struct {
	Key
	NullsNotDistinct bool
}

type Exclusion struct {
	Name              string
	Method            string
	Elements          []ExclusionElement
	Where             string
	Deferrable        bool
	InitiallyDeferred bool
}

type ExclusionElement struct {
	Element  string
	Operator string
}

type ForeignKey struct {
	Name              string
	Columns           []string
	References        Relation
	RefColumns        []string
	Match             string
	OnDelete          string
	OnUpdate          string
	Deferrable        bool
	InitiallyDeferred bool
	NotValid          bool
}

func (*Null) isConstraint()       {}
func (*Default) isConstraint()    {}
func (*Generated) isConstraint()  {}
func (*Check) isConstraint()      {}
func (*PrimaryKey) isConstraint() {}
func (*Unique) isConstraint()     {}
func (*Exclusion) isConstraint()  {}
func (*ForeignKey) isConstraint() {}

var fkActions = map[string]string{
	"a": "",
	"c": "CASCADE",
	"n": "SET NULL",
	"r": "RESTRICT",
	"d": "SET DEFAULT",
}

var fkMatches = map[string]string{
	"f": "FULL",
	"p": "PARTIAL",
	"s": "",
}

var generatedWhen = map[string]string{
	"a": "ALWAYS",
	"d": "BY DEFAULT",
}

// LIKE option bits, CREATE_TABLE_LIKE_*
var likeOptions = []struct {
	bit  uint32
	name string
}{
	{1 << 0, "COMMENTS"},
	{1 << 1, "COMPRESSION"},
	{1 << 2, "CONSTRAINTS"},
	{1 << 3, "DEFAULTS"},
	{1 << 4, "GENERATED"},
	{1 << 5, "IDENTITY"},
	{1 << 6, "INDEXES"},
	{1 << 7, "STATISTICS"},
	{1 << 8, "STORAGE"},
}

const likeAll = 0x7FFFFFFF

func createTable(stmt *pg_query.CreateStmt) (*CreateTable, error) {
	rel, err := relation(stmt.Relation)
	if err != nil {
		return nil, err
	}
	if stmt.Partbound != nil {
		return nil, &UnsupportedNodeKindError{Kind: "PartitionBoundSpec"}
	}
	if stmt.OfTypename != nil {
		return nil, &UnsupportedNodeKindError{Kind: "TypeName"}
	}
	table := &CreateTable{
		Relation:     rel,
		Unlogged:     stmt.Relation.Relpersistence == "u",
		AccessMethod: stmt.AccessMethod,
		Tablespace:   stmt.Tablespacename,
	}

	for _, elt := range stmt.TableElts {
		switch n := elt.GetNode().(type) {
		case *pg_query.Node_ColumnDef:
			col, err := column(n.ColumnDef)
			if err != nil {
				return nil, err
			}
			table.Columns = append(table.Columns, col)
		case *pg_query.Node_Constraint:
			c, err := constraint(n.Constraint)
			if err != nil {
				return nil, err
			}
			table.Constraints = applyAttribute(table.Constraints, c)
		case *pg_query.Node_TableLikeClause:
			like, err := likeClause(n.TableLikeClause)
			if err != nil {
				return nil, err
			}
			table.Like = like
		default:
			return nil, unsupported(elt)
		}
	}
	for _, c := range stmt.Constraints {
		normalized, err := constraint(c.GetConstraint())
		if err != nil {
			return nil, err
		}
		table.Constraints = applyAttribute(table.Constraints, normalized)
	}

	for _, inh := range stmt.InhRelations {
		parent, err := relation(inh.GetRangeVar())
		if err != nil {
			return nil, err
		}
		table.Inherits = append(table.Inherits, parent)
	}

	if spec := stmt.Partspec; spec != nil {
		table.PartitionBy = &PartitionBy{
			Strategy: strings.TrimPrefix(spec.Strategy.String(), "PARTITION_STRATEGY_"),
		}
		for _, p := range spec.PartParams {
			elem := p.GetPartitionElem()
			if elem == nil {
				return nil, unsupported(p)
			}
			name := elem.Name
			if name == "" {
				expr, err := Expression(elem.Expr)
				if err != nil {
					return nil, err
				}
				name = "(" + expr + ")"
			}
			table.PartitionBy.Columns = append(table.PartitionBy.Columns, name)
		}
	}

	table.Options, err = definitionOptions(stmt.Options)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func column(def *pg_query.ColumnDef) (*Column, error) {
	if def.Colname == "" {
		return nil, malformed("ColumnDef", "colname")
	}
	if def.TypeName == nil {
		return nil, malformed("ColumnDef", "type_name")
	}
	typ, err := TypeName(def.TypeName)
	if err != nil {
		return nil, err
	}
	col := &Column{Name: def.Colname, DataType: typ}
	if def.CollClause != nil {
		col.Collation, err = dottedName(def.CollClause.Collname)
		if err != nil {
			return nil, err
		}
	}
	if def.IsNotNull {
		col.Constraints = append(col.Constraints, &Null{NotNull: true})
	}
	if def.RawDefault != nil {
		expr, err := Expression(def.RawDefault)
		if err != nil {
			return nil, err
		}
		col.Constraints = append(col.Constraints, &Default{Expression: expr})
	}
	for _, c := range def.Constraints {
		normalized, err := constraint(c.GetConstraint())
		if err != nil {
			return nil, err
		}
		if fk, ok := normalized.(*ForeignKey); ok && len(fk.Columns) == 0 {
			fk.Columns = []string{col.Name}
		}
		col.Constraints = applyAttribute(col.Constraints, normalized)
	}
	return col, nil
}

// deferral is a DEFERRABLE / INITIALLY DEFERRED clause the grammar emits
// as its own constraint node; it applies to the constraint before it
type deferral struct {
	deferrable *bool
	deferred   *bool
}

func (*deferral) isConstraint() {}

func applyAttribute(list []Constraint, c Constraint) []Constraint {
	attr, ok := c.(*deferral)
	if !ok {
		return append(list, c)
	}
	if len(list) == 0 {
		return list
	}
	set := func(deferrable, deferred *bool) {
		if attr.deferrable != nil {
			*deferrable = *attr.deferrable
		}
		if attr.deferred != nil {
			*deferred = *attr.deferred
			if *attr.deferred {
				*deferrable = true
			}
		}
	}
	switch prev := list[len(list)-1].(type) {
	case *PrimaryKey:
		set(&prev.Deferrable, &prev.InitiallyDeferred)
	case *Unique:
		set(&prev.Deferrable, &prev.InitiallyDeferred)
	case *Exclusion:
		set(&prev.Deferrable, &prev.InitiallyDeferred)
	case *ForeignKey:
		set(&prev.Deferrable, &prev.InitiallyDeferred)
	}
	return list
}

func constraint(c *pg_query.Constraint) (Constraint, error) {
	if c == nil {
		return nil, malformed("Constraint", "contype")
	}
	yes, no := true, false
	switch c.Contype {
	case pg_query.ConstrType_CONSTR_NULL:
		return &Null{NotNull: false}, nil
	case pg_query.ConstrType_CONSTR_NOTNULL:
		return &Null{NotNull: true}, nil
	case pg_query.ConstrType_CONSTR_DEFAULT:
		if c.RawExpr == nil {
			return nil, malformed("Constraint", "raw_expr")
		}
		expr, err := Expression(c.RawExpr)
		if err != nil {
			return nil, err
		}
		return &Default{Expression: expr}, nil
	case pg_query.ConstrType_CONSTR_IDENTITY:
		when, ok := generatedWhen[c.GeneratedWhen]
		if !ok {
			return nil, malformed("Constraint", "generated_when")
		}
		return &Generated{Identity: true, When: when}, nil
	case pg_query.ConstrType_CONSTR_GENERATED:
		if c.RawExpr == nil {
			return nil, malformed("Constraint", "raw_expr")
		}
		expr, err := Expression(c.RawExpr)
		if err != nil {
			return nil, err
		}
		return &Generated{When: "ALWAYS", Expression: expr}, nil
	case pg_query.ConstrType_CONSTR_CHECK:
		if c.RawExpr == nil {
			return nil, malformed("Constraint", "raw_expr")
		}
		expr, err := Expression(c.RawExpr)
		if err != nil {
			return nil, err
		}
		return &Check{Name: c.Conname, Expression: expr, NoInherit: c.IsNoInherit, NotValid: c.SkipValidation}, nil
	case pg_query.ConstrType_CONSTR_PRIMARY:
		key, err := keyConstraint(c)
		if err != nil {
			return nil, err
		}
		return &PrimaryKey{Key: key}, nil
	case pg_query.ConstrType_CONSTR_UNIQUE:
		key, err := keyConstraint(c)
		if err != nil {
			return nil, err
		}
		return &Unique{Key: key, NullsNotDistinct: c.NullsNotDistinct}, nil
	case pg_query.ConstrType_CONSTR_EXCLUSION:
		return exclusion(c)
	case pg_query.ConstrType_CONSTR_FOREIGN:
		return foreignKey(c)
	case pg_query.ConstrType_CONSTR_ATTR_DEFERRABLE:
		return &deferral{deferrable: &yes}, nil
	case pg_query.ConstrType_CONSTR_ATTR_NOT_DEFERRABLE:
		return &deferral{deferrable: &no}, nil
	case pg_query.ConstrType_CONSTR_ATTR_DEFERRED:
		return &deferral{deferred: &yes}, nil
	case pg_query.ConstrType_CONSTR_ATTR_IMMEDIATE:
		return &deferral{deferred: &no}, nil
	}
	return nil, &UnsupportedNodeKindError{Kind: "Constraint " + c.Contype.String()}
}

func keyConstraint(c *pg_query.Constraint) (Key, error) {
	columns, err := stringList(c.Keys)
	if err != nil {
		return Key{}, err
	}
	include, err := stringList(c.Including)
	if err != nil {
		return Key{}, err
	}
	return Key{
		Name:              c.Conname,
		Columns:           columns,
		Include:           include,
		Tablespace:        c.Indexspace,
		Deferrable:        c.Deferrable,
		InitiallyDeferred: c.Initdeferred,
	}, nil
}

func exclusion(c *pg_query.Constraint) (*Exclusion, error) {
	if len(c.Exclusions) == 0 {
		return nil, malformed("Constraint", "exclusions")
	}
	ex := &Exclusion{
		Name:              c.Conname,
		Method:            c.AccessMethod,
		Deferrable:        c.Deferrable,
		InitiallyDeferred: c.Initdeferred,
	}
	for _, pair := range c.Exclusions {
		items := pair.GetList().GetItems()
		if len(items) != 2 {
			return nil, malformed("Constraint", "exclusions")
		}
		elem := items[0].GetIndexElem()
		if elem == nil {
			return nil, unsupported(items[0])
		}
		col, err := indexColumn(elem)
		if err != nil {
			return nil, err
		}
		element := col.Name
		if element == "" {
			element = "(" + col.Expression + ")"
		}
		op, err := operatorName(items[1].GetList().GetItems())
		if err != nil {
			return nil, err
		}
		ex.Elements = append(ex.Elements, ExclusionElement{Element: element, Operator: op})
	}
	where, err := optionalExpression(c.WhereClause)
	if err != nil {
		return nil, err
	}
	ex.Where = where
	return ex, nil
}

func foreignKey(c *pg_query.Constraint) (*ForeignKey, error) {
	if c.Pktable == nil {
		return nil, malformed("Constraint", "pktable")
	}
	ref, err := relation(c.Pktable)
	if err != nil {
		return nil, err
	}
	columns, err := stringList(c.FkAttrs)
	if err != nil {
		return nil, err
	}
	refColumns, err := stringList(c.PkAttrs)
	if err != nil {
		return nil, err
	}
	match, ok := fkMatches[c.FkMatchtype]
	if !ok {
		return nil, malformed("Constraint", "fk_matchtype")
	}
	onDelete, ok := fkActions[c.FkDelAction]
	if !ok {
		return nil, malformed("Constraint", "fk_del_action")
	}
	onUpdate, ok := fkActions[c.FkUpdAction]
	if !ok {
		return nil, malformed("Constraint", "fk_upd_action")
	}
	return &ForeignKey{
		Name:              c.Conname,
		Columns:           columns,
		References:        ref,
		RefColumns:        refColumns,
		Match:             match,
		OnDelete:          onDelete,
		OnUpdate:          onUpdate,
		Deferrable:        c.Deferrable,
		InitiallyDeferred: c.Initdeferred,
		NotValid:          c.SkipValidation,
	}, nil
}

func likeClause(like *pg_query.TableLikeClause) (*Like, error) {
	rel, err := relation(like.Relation)
	if err != nil {
		return nil, err
	}
	out := &Like{Relation: rel}
	if like.Options&likeAll == likeAll {
		out.Including = []string{"ALL"}
		return out, nil
	}
	for _, opt := range likeOptions {
		if like.Options&opt.bit != 0 {
			out.Including = append(out.Including, opt.name)
		}
	}
	return out, nil
}

// definitionOptions flattens a WITH (...) DefElem list. Values keep
// their SQL spelling except that string constants are unquoted.
func definitionOptions(nodes []*pg_query.Node) (map[string]string, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(nodes))
	for _, n := range nodes {
		def := n.GetDefElem()
		if def == nil {
			return nil, unsupported(n)
		}
		value, err := defValue(def)
		if err != nil {
			return nil, err
		}
		name := def.Defname
		if def.Defnamespace != "" {
			name = def.Defnamespace + "." + name
		}
		out[name] = value
	}
	return out, nil
}

func defValue(def *pg_query.DefElem) (string, error) {
	switch arg := def.Arg.GetNode().(type) {
	case nil:
		return "", nil
	case *pg_query.Node_String_:
		return arg.String_.Sval, nil
	case *pg_query.Node_TypeName:
		return TypeName(arg.TypeName)
	case *pg_query.Node_AConst:
		if s := arg.AConst.GetSval(); s != nil {
			return s.Sval, nil
		}
	case *pg_query.Node_List:
		items, err := stringList(arg.List.Items)
		if err != nil {
			return "", err
		}
		return strings.Join(items, "."), nil
	}
	return Expression(def.Arg)
}
