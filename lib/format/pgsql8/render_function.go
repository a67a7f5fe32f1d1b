package pgsql8

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

func formatParameters(params []*ir.Parameter) string {
	out := make([]string, len(params))
	for i, p := range params {
		param := tokens{}
		param.add(strings.ToUpper(p.Mode))
		if p.Name != "" {
			param.add(sql.QuoteIdent(p.Name))
		}
		param.add(p.DataType)
		if p.Default != "" {
			param.add("=", p.Default)
		}
		out[i] = strings.Join(param, " ")
	}
	return "(" + strings.Join(out, ", ") + ")"
}

// functionName is the qualified name without an argument list
func (self *Synthesizer) functionName(rec *ir.ObjectRecord) string {
	return self.qualified(rec.Schema, ir.BareName(rec.Name))
}

// signature is the qualified name with its input argument types, for
// statements that refer to an existing function
func (self *Synthesizer) signature(rec *ir.ObjectRecord) string {
	name := rec.Name
	if fn, ok := rec.Attributes.(*ir.Function); ok {
		name = fn.Signature()
	}
	open := strings.Index(name, "(")
	if open < 0 {
		return self.qualified(rec.Schema, name) + "()"
	}
	return self.qualified(rec.Schema, name[:open]) + name[open:]
}

func (self *Synthesizer) renderFunction(rec *ir.ObjectRecord) (string, error) {
	fn, ok := rec.Attributes.(*ir.Function)
	if !ok {
		return "", &attrsError{rec, "function"}
	}
	stmt := tokens{"CREATE", string(rec.Kind), self.functionName(rec) + formatParameters(fn.Parameters)}
	if rec.Kind == ir.KindFunction && fn.Returns != "" {
		stmt.add("RETURNS", fn.Returns)
	}
	stmt.add("LANGUAGE", fn.Language)
	if len(fn.TransformTypes) > 0 {
		transforms := make([]string, len(fn.TransformTypes))
		for i, t := range fn.TransformTypes {
			transforms[i] = "FOR TYPE " + t
		}
		stmt.add("TRANSFORM", strings.Join(transforms, ", "))
	}
	stmt.addIf(fn.Window, "WINDOW")
	stmt.addIf(fn.Immutable, "IMMUTABLE")
	stmt.addIf(fn.Stable, "STABLE")
	stmt.addIf(fn.Volatile, "VOLATILE")
	if fn.LeakProof != nil {
		stmt.add(map[bool]string{true: "LEAKPROOF", false: "NOT LEAKPROOF"}[*fn.LeakProof])
	}
	if fn.CalledOnNullInput != nil {
		stmt.add(map[bool]string{true: "CALLED ON NULL INPUT", false: "RETURNS NULL ON NULL INPUT"}[*fn.CalledOnNullInput])
	}
	stmt.addIf(fn.Strict, "STRICT")
	if fn.Security != "" {
		stmt.add("SECURITY", strings.ToUpper(fn.Security))
	}
	if fn.Parallel != "" {
		stmt.add("PARALLEL", strings.ToUpper(fn.Parallel))
	}
	if fn.Cost > 0 {
		stmt.add("COST", strconv.Itoa(fn.Cost))
	}
	if fn.Rows > 0 {
		stmt.add("ROWS", strconv.Itoa(fn.Rows))
	}
	if fn.Support != "" {
		stmt.add("SUPPORT", fn.Support)
	}
	for _, k := range sortedKeys(fn.Configuration) {
		stmt.add("SET", k, "=", setValue(fn.Configuration[k]))
	}
	if fn.ObjectFile != "" {
		stmt.add("AS", sql.PostgresValue(fn.ObjectFile)+", "+sql.PostgresValue(fn.LinkSymbol))
	} else {
		stmt.add("AS", sql.DollarQuote("\n"+strings.Trim(fn.Definition, "\n")+"\n"))
	}
	return stmt.statement(), nil
}

// setValue renders a SET clause value. Lists are comma separated.
func setValue(v interface{}) string {
	if list, ok := v.([]interface{}); ok {
		parts := make([]string, len(list))
		for i, el := range list {
			parts[i] = setValue(el)
		}
		return strings.Join(parts, ", ")
	}
	if s, ok := v.(string); ok && bareOption(s) {
		return s
	}
	return sql.PostgresValue(v)
}

func (self *Synthesizer) aggregateSignature(rec *ir.ObjectRecord, agg *ir.Aggregate) string {
	if len(agg.Arguments) == 0 {
		return self.qualified(rec.Schema, rec.Name) + "(*)"
	}
	return self.qualified(rec.Schema, rec.Name) + formatParameters(agg.Arguments)
}

func (self *Synthesizer) renderAggregate(rec *ir.ObjectRecord) (string, error) {
	agg, ok := rec.Attributes.(*ir.Aggregate)
	if !ok {
		return "", &attrsError{rec, "aggregate"}
	}
	opts := []string{}
	opt := func(key, value string) {
		if value != "" {
			opts = append(opts, key+" = "+value)
		}
	}
	flag := func(key string, set bool) {
		if set {
			opts = append(opts, key)
		}
	}
	size := func(n int) string {
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	}
	opt("SFUNC", agg.SFunc)
	opt("STYPE", agg.StateDataType)
	opt("SSPACE", size(agg.StateDataSize))
	opt("FINALFUNC", agg.FFunc)
	flag("FINALFUNC_EXTRA", agg.FinalFuncExtra)
	opt("FINALFUNC_MODIFY", strings.ToUpper(agg.FinalFuncModify))
	opt("COMBINEFUNC", agg.CombineFunc)
	opt("SERIALFUNC", agg.SerialFunc)
	opt("DESERIALFUNC", agg.DeserialFunc)
	if agg.InitialCondition != "" {
		opt("INITCOND", sql.PostgresValue(agg.InitialCondition))
	}
	opt("MSFUNC", agg.MSFunc)
	opt("MINVFUNC", agg.MInvFunc)
	opt("MSTYPE", agg.MStateDataType)
	opt("MSSPACE", size(agg.MStateDataSize))
	opt("MFINALFUNC", agg.MFFunc)
	flag("MFINALFUNC_EXTRA", agg.MFinalFuncExtra)
	opt("MFINALFUNC_MODIFY", strings.ToUpper(agg.MFinalFuncModify))
	if agg.MInitialCondition != "" {
		opt("MINITCOND", sql.PostgresValue(agg.MInitialCondition))
	}
	opt("SORTOP", agg.SortOperator)
	opt("PARALLEL", strings.ToUpper(agg.Parallel))
	flag("HYPOTHETICAL", agg.Hypothetical)

	stmt := tokens{"CREATE AGGREGATE", self.aggregateSignature(rec, agg), parenList(opts)}
	return stmt.statement(), nil
}

// operatorName leaves the operator symbol unquoted
func operatorName(rec *ir.ObjectRecord) string {
	if rec.Schema == "" {
		return rec.Name
	}
	return sql.QuoteIdent(rec.Schema) + "." + rec.Name
}

func operatorArgs(op *ir.Operator) string {
	left, right := op.LeftArg, op.RightArg
	if left == "" {
		left = "NONE"
	}
	if right == "" {
		right = "NONE"
	}
	return fmt.Sprintf("(%s, %s)", left, right)
}

func (self *Synthesizer) renderOperator(rec *ir.ObjectRecord) (string, error) {
	op, ok := rec.Attributes.(*ir.Operator)
	if !ok {
		return "", &attrsError{rec, "operator"}
	}
	opts := []string{"FUNCTION = " + op.Function}
	for _, kv := range [][2]string{
		{"LEFTARG", op.LeftArg},
		{"RIGHTARG", op.RightArg},
		{"COMMUTATOR", op.Commutator},
		{"NEGATOR", op.Negator},
		{"RESTRICT", op.Restrict},
		{"JOIN", op.Join},
	} {
		if kv[1] != "" {
			opts = append(opts, kv[0]+" = "+kv[1])
		}
	}
	if op.Hashes {
		opts = append(opts, "HASHES")
	}
	if op.Merges {
		opts = append(opts, "MERGES")
	}
	stmt := tokens{"CREATE OPERATOR", operatorName(rec), parenList(opts)}
	return stmt.statement(), nil
}

func castName(cast *ir.Cast) string {
	return fmt.Sprintf("(%s AS %s)", cast.SourceType, cast.TargetType)
}

func (self *Synthesizer) renderCast(rec *ir.ObjectRecord) (string, error) {
	cast, ok := rec.Attributes.(*ir.Cast)
	if !ok {
		return "", &attrsError{rec, "cast"}
	}
	stmt := tokens{"CREATE CAST", castName(cast)}
	switch {
	case cast.Function != "":
		fn := cast.Function
		if !strings.Contains(fn, "(") {
			fn += "(" + cast.SourceType + ")"
		}
		stmt.add("WITH FUNCTION", fn)
	case cast.InOut:
		stmt.add("WITH INOUT")
	default:
		stmt.add("WITHOUT FUNCTION")
	}
	stmt.addIf(cast.Assignment, "AS ASSIGNMENT")
	stmt.addIf(cast.Implicit, "AS IMPLICIT")
	return stmt.statement(), nil
}
