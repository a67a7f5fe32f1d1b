package parse

import (
	"fmt"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
)

var boolOps = map[pg_query.BoolExprType]string{
	pg_query.BoolExprType_AND_EXPR: "AND",
	pg_query.BoolExprType_OR_EXPR:  "OR",
	pg_query.BoolExprType_NOT_EXPR: "NOT",
}

// keywords written in upper case when they show up as column references
var upperRefs = map[string]bool{"old": true, "new": true, "excluded": true}

// Expression renders an expression node as SQL text
func Expression(node *pg_query.Node) (string, error) {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_AConst:
		return constant(n.AConst), nil
	case *pg_query.Node_Integer:
		return strconv.Itoa(int(n.Integer.Ival)), nil
	case *pg_query.Node_Float:
		return n.Float.Fval, nil
	case *pg_query.Node_Boolean:
		return strconv.FormatBool(n.Boolean.Boolval), nil
	case *pg_query.Node_String_:
		return n.String_.Sval, nil
	case *pg_query.Node_AStar:
		return "*", nil
	case *pg_query.Node_ColumnRef:
		return columnRef(n.ColumnRef)
	case *pg_query.Node_ParamRef:
		return fmt.Sprintf("$%d", n.ParamRef.Number), nil
	case *pg_query.Node_AExpr:
		return aExpr(n.AExpr)
	case *pg_query.Node_BoolExpr:
		return boolExpr(n.BoolExpr)
	case *pg_query.Node_NullTest:
		return nullTest(n.NullTest)
	case *pg_query.Node_BooleanTest:
		arg, err := operand(n.BooleanTest.Arg)
		if err != nil {
			return "", err
		}
		test := strings.ReplaceAll(n.BooleanTest.Booltesttype.String(), "_", " ")
		return arg + " " + test, nil
	case *pg_query.Node_TypeCast:
		return typeCast(n.TypeCast)
	case *pg_query.Node_TypeName:
		return TypeName(n.TypeName)
	case *pg_query.Node_FuncCall:
		return funcCall(node, n.FuncCall)
	case *pg_query.Node_SqlvalueFunction:
		fn := strings.TrimPrefix(n.SqlvalueFunction.Op.String(), "SVFOP_")
		if strings.HasSuffix(fn, "_N") {
			return fmt.Sprintf("%s(%d)", strings.TrimSuffix(fn, "_N"), n.SqlvalueFunction.Typmod), nil
		}
		return fn, nil
	case *pg_query.Node_AArrayExpr:
		elems, err := expressionList(n.AArrayExpr.Elements)
		if err != nil {
			return "", err
		}
		return "ARRAY[" + strings.Join(elems, ", ") + "]", nil
	case *pg_query.Node_List:
		items, err := expressionList(n.List.Items)
		if err != nil {
			return "", err
		}
		return strings.Join(items, ", "), nil
	case *pg_query.Node_CollateClause:
		arg, err := operand(n.CollateClause.Arg)
		if err != nil {
			return "", err
		}
		names, err := stringList(n.CollateClause.Collname)
		if err != nil {
			return "", err
		}
		return arg + " COLLATE " + sql.QuoteQualified(strings.Join(names, ".")), nil
	case *pg_query.Node_NamedArgExpr:
		arg, err := Expression(n.NamedArgExpr.Arg)
		if err != nil {
			return "", err
		}
		return sql.QuoteIdent(n.NamedArgExpr.Name) + " => " + arg, nil
	case *pg_query.Node_SubLink, *pg_query.Node_CaseExpr, *pg_query.Node_CoalesceExpr,
		*pg_query.Node_MinMaxExpr, *pg_query.Node_RowExpr, *pg_query.Node_AIndirection,
		*pg_query.Node_GroupingFunc, *pg_query.Node_XmlExpr:
		return deparseExpr(node)
	}
	return "", unsupported(node)
}

func expressionList(nodes []*pg_query.Node) ([]string, error) {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		expr, err := Expression(n)
		if err != nil {
			return nil, err
		}
		out[i] = expr
	}
	return out, nil
}

// optionalExpression renders node, or "" when absent
func optionalExpression(node *pg_query.Node) (string, error) {
	if node == nil || node.Node == nil {
		return "", nil
	}
	return Expression(node)
}

// operand renders a sub expression, parenthesized when it is itself an
// operator or boolean expression
func operand(node *pg_query.Node) (string, error) {
	expr, err := Expression(node)
	if err != nil {
		return "", err
	}
	switch node.GetNode().(type) {
	case *pg_query.Node_AExpr, *pg_query.Node_BoolExpr:
		return "(" + expr + ")", nil
	}
	return expr, nil
}

func constant(c *pg_query.A_Const) string {
	if c.Isnull {
		return "NULL"
	}
	switch v := c.Val.(type) {
	case *pg_query.A_Const_Ival:
		return strconv.Itoa(int(v.Ival.Ival))
	case *pg_query.A_Const_Fval:
		return v.Fval.Fval
	case *pg_query.A_Const_Boolval:
		return strings.ToUpper(strconv.FormatBool(v.Boolval.Boolval))
	case *pg_query.A_Const_Sval:
		return sql.QuoteLiteral(v.Sval.Sval)
	case *pg_query.A_Const_Bsval:
		bits := v.Bsval.Bsval
		if bits == "" {
			return "B''"
		}
		return strings.ToUpper(bits[:1]) + sql.QuoteLiteral(bits[1:])
	}
	return "NULL"
}

func columnRef(ref *pg_query.ColumnRef) (string, error) {
	if len(ref.Fields) == 0 {
		return "", malformed("ColumnRef", "fields")
	}
	parts := make([]string, len(ref.Fields))
	for i, f := range ref.Fields {
		switch field := f.GetNode().(type) {
		case *pg_query.Node_String_:
			name := field.String_.Sval
			if upperRefs[name] {
				parts[i] = strings.ToUpper(name)
			} else {
				parts[i] = sql.QuoteIdent(name)
			}
		case *pg_query.Node_AStar:
			parts[i] = "*"
		default:
			return "", unsupported(f)
		}
	}
	return strings.Join(parts, "."), nil
}

// operatorName renders an operator name list; operators outside of
// pg_catalog keep the OPERATOR(schema.op) form
func operatorName(nodes []*pg_query.Node) (string, error) {
	parts, err := stringList(nodes)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", malformed("A_Expr", "name")
	}
	if len(parts) == 1 || parts[0] == "pg_catalog" {
		return parts[len(parts)-1], nil
	}
	return "OPERATOR(" + strings.Join(parts, ".") + ")", nil
}

var likeOps = map[string]string{
	"~~":   "LIKE",
	"!~~":  "NOT LIKE",
	"~~*":  "ILIKE",
	"!~~*": "NOT ILIKE",
}

func aExpr(e *pg_query.A_Expr) (string, error) {
	op, err := operatorName(e.Name)
	if err != nil {
		return "", err
	}
	if e.Rexpr == nil {
		return "", malformed("A_Expr", "rexpr")
	}
	right, err := operand(e.Rexpr)
	if err != nil {
		return "", err
	}
	if e.Lexpr == nil {
		if e.Kind != pg_query.A_Expr_Kind_AEXPR_OP {
			return "", malformed("A_Expr", "lexpr")
		}
		return op + " " + right, nil
	}
	left, err := operand(e.Lexpr)
	if err != nil {
		return "", err
	}

	switch e.Kind {
	case pg_query.A_Expr_Kind_AEXPR_OP:
		return left + " " + op + " " + right, nil
	case pg_query.A_Expr_Kind_AEXPR_OP_ANY:
		return fmt.Sprintf("%s %s ANY (%s)", left, op, right), nil
	case pg_query.A_Expr_Kind_AEXPR_OP_ALL:
		return fmt.Sprintf("%s %s ALL (%s)", left, op, right), nil
	case pg_query.A_Expr_Kind_AEXPR_DISTINCT:
		return left + " IS DISTINCT FROM " + right, nil
	case pg_query.A_Expr_Kind_AEXPR_NOT_DISTINCT:
		return left + " IS NOT DISTINCT FROM " + right, nil
	case pg_query.A_Expr_Kind_AEXPR_NULLIF:
		return fmt.Sprintf("NULLIF(%s, %s)", left, right), nil
	case pg_query.A_Expr_Kind_AEXPR_IN:
		if op == "<>" {
			return fmt.Sprintf("%s NOT IN (%s)", left, right), nil
		}
		return fmt.Sprintf("%s IN (%s)", left, right), nil
	case pg_query.A_Expr_Kind_AEXPR_LIKE, pg_query.A_Expr_Kind_AEXPR_ILIKE:
		keyword, ok := likeOps[op]
		if !ok {
			return "", malformed("A_Expr", "name")
		}
		return left + " " + keyword + " " + right, nil
	case pg_query.A_Expr_Kind_AEXPR_BETWEEN, pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN,
		pg_query.A_Expr_Kind_AEXPR_BETWEEN_SYM, pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN_SYM:
		bounds := e.Rexpr.GetList().GetItems()
		if len(bounds) != 2 {
			return "", malformed("A_Expr", "rexpr")
		}
		lower, err := operand(bounds[0])
		if err != nil {
			return "", err
		}
		upper, err := operand(bounds[1])
		if err != nil {
			return "", err
		}
		keyword := strings.ReplaceAll(strings.TrimPrefix(e.Kind.String(), "AEXPR_"), "_", " ")
		keyword = strings.Replace(keyword, " SYM", " SYMMETRIC", 1)
		return fmt.Sprintf("%s %s %s AND %s", left, keyword, lower, upper), nil
	}
	return deparseExpr(&pg_query.Node{Node: &pg_query.Node_AExpr{AExpr: e}})
}

func boolExpr(e *pg_query.BoolExpr) (string, error) {
	op, ok := boolOps[e.Boolop]
	if !ok {
		return "", malformed("BoolExpr", "boolop")
	}
	if len(e.Args) == 0 {
		return "", malformed("BoolExpr", "args")
	}
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		expr, err := Expression(arg)
		if err != nil {
			return "", err
		}
		if _, nested := arg.GetNode().(*pg_query.Node_BoolExpr); nested {
			expr = "(" + expr + ")"
		}
		args[i] = expr
	}
	if len(args) == 1 {
		return op + " " + args[0], nil
	}
	return strings.Join(args, " "+op+" "), nil
}

func nullTest(t *pg_query.NullTest) (string, error) {
	arg, err := operand(t.Arg)
	if err != nil {
		return "", err
	}
	if t.Nulltesttype == pg_query.NullTestType_IS_NOT_NULL {
		return arg + " IS NOT NULL", nil
	}
	return arg + " IS NULL", nil
}

func typeCast(c *pg_query.TypeCast) (string, error) {
	if c.TypeName == nil {
		return "", malformed("TypeCast", "type_name")
	}
	typ, err := TypeName(c.TypeName)
	if err != nil {
		return "", err
	}
	// 't'::boolean as written by pg_dump
	if typ == "boolean" {
		if s := c.Arg.GetAConst().GetSval(); s != nil {
			switch s.Sval {
			case "t", "true":
				return "TRUE", nil
			case "f", "false":
				return "FALSE", nil
			}
		}
	}
	arg, err := operand(c.Arg)
	if err != nil {
		return "", err
	}
	return arg + "::" + typ, nil
}

func funcCall(node *pg_query.Node, fn *pg_query.FuncCall) (string, error) {
	if fn.Over != nil || len(fn.AggOrder) > 0 || fn.AggFilter != nil || fn.AggWithinGroup ||
		fn.Funcformat == pg_query.CoercionForm_COERCE_SQL_SYNTAX {
		return deparseExpr(node)
	}
	name, err := functionName(fn.Funcname)
	if err != nil {
		return "", err
	}
	if fn.AggStar {
		return name + "(*)", nil
	}
	args, err := expressionList(fn.Args)
	if err != nil {
		return "", err
	}
	prefix := ""
	if fn.AggDistinct {
		prefix = "DISTINCT "
	}
	if fn.FuncVariadic && len(args) > 0 {
		args[len(args)-1] = "VARIADIC " + args[len(args)-1]
	}
	return name + "(" + prefix + strings.Join(args, ", ") + ")", nil
}

// functionName renders a function name list, dropping pg_catalog
func functionName(nodes []*pg_query.Node) (string, error) {
	parts, err := stringList(nodes)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", malformed("FuncCall", "funcname")
	}
	if len(parts) > 1 && parts[0] == "pg_catalog" {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = sql.QuoteIdent(p)
	}
	return strings.Join(parts, "."), nil
}

// deparseExpr renders expressions this package has no rule for by
// deparsing them as a one column SELECT
func deparseExpr(node *pg_query.Node) (string, error) {
	stmt := &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: &pg_query.SelectStmt{
		TargetList: []*pg_query.Node{
			{Node: &pg_query.Node_ResTarget{ResTarget: &pg_query.ResTarget{Val: node}}},
		},
		LimitOption: pg_query.LimitOption_LIMIT_OPTION_DEFAULT,
		Op:          pg_query.SetOperation_SETOP_NONE,
	}}}
	text, err := deparse(stmt)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(text, "SELECT "), nil
}
