package pgsql8

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/util"
)

func (self *Synthesizer) renderType(rec *ir.ObjectRecord) (string, error) {
	typ, ok := rec.Attributes.(*ir.Type)
	if !ok {
		return "", &attrsError{rec, "type"}
	}
	stmt := tokens{"CREATE TYPE", self.name(rec)}
	switch strings.ToLower(typ.Type) {
	case ir.TypeBase:
		stmt.add(parenList(baseTypeOptions(typ)))
	case ir.TypeComposite:
		columns := make([]string, len(typ.Columns))
		for i, c := range typ.Columns {
			col := tokens{sql.QuoteIdent(c.Name), c.DataType}
			if c.Collation != "" {
				col.add("COLLATE", sql.QuoteQualified(c.Collation))
			}
			columns[i] = strings.Join(col, " ")
		}
		stmt.add("AS", "("+strings.Join(columns, ", ")+")")
	case ir.TypeEnum:
		values := make([]string, len(typ.Enum))
		for i, v := range typ.Enum {
			values[i] = sql.PostgresValue(v)
		}
		stmt.add("AS ENUM", "("+strings.Join(values, ", ")+")")
	case ir.TypeRange:
		opts := []string{"SUBTYPE = " + typ.Subtype}
		opts = appendOpt(opts, "SUBTYPE_OPCLASS", typ.SubtypeOpClass)
		opts = appendOpt(opts, "COLLATION", typ.Collation)
		opts = appendOpt(opts, "CANONICAL", typ.Canonical)
		opts = appendOpt(opts, "SUBTYPE_DIFF", typ.SubtypeDiff)
		stmt.add("AS RANGE", parenList(opts))
	default:
		return "", fmt.Errorf("%s has unknown type %q", rec.Triple(), typ.Type)
	}
	return stmt.statement(), nil
}

func appendOpt(opts []string, key, value string) []string {
	if value == "" {
		return opts
	}
	return append(opts, key+" = "+value)
}

func baseTypeOptions(typ *ir.Type) []string {
	opts := []string{"INPUT = " + typ.Input, "OUTPUT = " + typ.Output}
	opts = appendOpt(opts, "RECEIVE", typ.Receive)
	opts = appendOpt(opts, "SEND", typ.Send)
	opts = appendOpt(opts, "TYPMOD_IN", typ.TypModIn)
	opts = appendOpt(opts, "TYPMOD_OUT", typ.TypModOut)
	opts = appendOpt(opts, "ANALYZE", typ.Analyze)
	opts = appendOpt(opts, "INTERNALLENGTH", strings.ToUpper(typ.InternalLen))
	if typ.PassedByValue {
		opts = append(opts, "PASSEDBYVALUE")
	}
	opts = appendOpt(opts, "ALIGNMENT", typ.Alignment)
	opts = appendOpt(opts, "STORAGE", typ.Storage)
	opts = appendOpt(opts, "LIKE", typ.LikeType)
	if typ.Category != "" {
		opts = append(opts, "CATEGORY = "+sql.PostgresValue(typ.Category))
	}
	if typ.Preferred {
		opts = append(opts, "PREFERRED = true")
	}
	if typ.Default != "" {
		opts = append(opts, "DEFAULT = "+sql.PostgresValue(typ.Default))
	}
	opts = appendOpt(opts, "ELEMENT", typ.Element)
	if typ.Delimiter != "" {
		opts = append(opts, "DELIMITER = "+sql.PostgresValue(typ.Delimiter))
	}
	if typ.Collatable {
		opts = append(opts, "COLLATABLE = true")
	}
	return opts
}

func (self *Synthesizer) renderDomain(rec *ir.ObjectRecord) (string, error) {
	domain, ok := rec.Attributes.(*ir.Domain)
	if !ok {
		return "", &attrsError{rec, "domain"}
	}
	stmt := tokens{"CREATE DOMAIN", self.name(rec), "AS", domain.DataType}
	if domain.Collation != "" {
		stmt.add("COLLATE", sql.QuoteQualified(domain.Collation))
	}
	if domain.Default != nil {
		stmt.add("DEFAULT", domainDefault(domain.Default))
	}
	for _, con := range domain.CheckConstraints {
		if con.Name != "" {
			stmt.add("CONSTRAINT", sql.QuoteIdent(con.Name))
		}
		if con.Nullable != nil {
			stmt.add(util.ChooseStr(*con.Nullable, "NULL", "NOT NULL"))
		}
		if con.Expression != "" {
			stmt.add("CHECK", "("+con.Expression+")")
		}
	}
	return stmt.statement(), nil
}

// domainDefault leaves string defaults as written, since they are
// usually expressions
func domainDefault(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return sql.PostgresValue(v)
}

func (self *Synthesizer) renderCollation(rec *ir.ObjectRecord) (string, error) {
	coll, ok := rec.Attributes.(*ir.Collation)
	if !ok {
		return "", &attrsError{rec, "collation"}
	}
	stmt := tokens{"CREATE COLLATION", self.name(rec)}
	if coll.CopyFrom != "" {
		stmt.add("FROM", sql.QuoteQualified(coll.CopyFrom))
		return stmt.statement(), nil
	}
	opts := []string{}
	lit := func(key, value string) {
		if value != "" {
			opts = append(opts, key+" = "+sql.PostgresValue(value))
		}
	}
	lit("LOCALE", coll.Locale)
	lit("LC_COLLATE", coll.LCCollate)
	lit("LC_CTYPE", coll.LCCtype)
	opts = appendOpt(opts, "PROVIDER", coll.Provider)
	if coll.Deterministic != nil {
		opts = append(opts, "DETERMINISTIC = "+strconv.FormatBool(*coll.Deterministic))
	}
	lit("VERSION", coll.Version)
	stmt.add(parenList(opts))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderConversion(rec *ir.ObjectRecord) (string, error) {
	conv, ok := rec.Attributes.(*ir.Conversion)
	if !ok {
		return "", &attrsError{rec, "conversion"}
	}
	stmt := tokens{"CREATE"}
	stmt.addIf(conv.Default, "DEFAULT")
	stmt.add("CONVERSION", self.name(rec))
	stmt.add("FOR", sql.PostgresValue(conv.EncodingFrom))
	stmt.add("TO", sql.PostgresValue(conv.EncodingTo))
	stmt.add("FROM", conv.Function)
	return stmt.statement(), nil
}

func (self *Synthesizer) renderSequence(rec *ir.ObjectRecord) (string, error) {
	seq, ok := rec.Attributes.(*ir.Sequence)
	if !ok {
		return "", &attrsError{rec, "sequence"}
	}
	stmt := tokens{"CREATE SEQUENCE", self.name(rec)}
	if seq.DataType != "" {
		stmt.add("AS", seq.DataType)
	}
	num := func(keyword string, v *int64) {
		if v != nil {
			stmt.add(keyword, strconv.FormatInt(*v, 10))
		}
	}
	num("INCREMENT BY", seq.IncrementBy)
	num("MINVALUE", seq.MinValue)
	num("MAXVALUE", seq.MaxValue)
	num("START WITH", seq.StartWith)
	num("CACHE", seq.Cache)
	stmt.addIf(seq.Cycle, "CYCLE")
	return stmt.statement(), nil
}

func (self *Synthesizer) renderSequenceOwnedBy(rec *ir.ObjectRecord) (string, error) {
	owned, ok := rec.Attributes.(*ir.SequenceOwnedBy)
	if !ok {
		return "", &attrsError{rec, "sequence owned by"}
	}
	stmt := &sql.SequenceOwnedBy{
		Sequence: sql.SequenceRef{Schema: rec.Schema, Sequence: rec.Name},
		OwnedBy:  owned.OwnedBy,
	}
	return stmt.ToSql(self.quoter) + "\n", nil
}
