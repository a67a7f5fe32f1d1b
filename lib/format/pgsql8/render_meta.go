package pgsql8

import (
	"fmt"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

// reference renders how other statements refer to rec, including the
// kind keyword: "TABLE public.foo", "TRIGGER trg ON public.foo"
func (self *Synthesizer) reference(rec *ir.ObjectRecord) (string, string, error) {
	switch rec.Kind {
	case ir.KindFunction, ir.KindProcedure:
		return string(rec.Kind), self.signature(rec), nil
	case ir.KindAggregate:
		if agg, ok := rec.Attributes.(*ir.Aggregate); ok {
			return "AGGREGATE", self.aggregateSignature(rec, agg), nil
		}
		return "AGGREGATE", self.signature(rec), nil
	case ir.KindOperator:
		if op, ok := rec.Attributes.(*ir.Operator); ok {
			return "OPERATOR", operatorName(rec) + " " + operatorArgs(op), nil
		}
		return "OPERATOR", operatorName(rec), nil
	case ir.KindCast:
		if cast, ok := rec.Attributes.(*ir.Cast); ok {
			return "CAST", castName(cast), nil
		}
		return "CAST", "(" + rec.Name + ")", nil
	case ir.KindProceduralLanguage:
		return "LANGUAGE", sql.QuoteIdent(rec.Name), nil
	case ir.KindGroup, ir.KindRole, ir.KindUser:
		return "ROLE", self.quoter.QuoteRole(rec.Name), nil
	case ir.KindTrigger, ir.KindRule, ir.KindFKConstraint:
		parent, err := self.inv.Get(rec.ParentID)
		if err != nil {
			return "", "", err
		}
		kind := string(rec.Kind)
		if rec.Kind == ir.KindFKConstraint {
			kind = "CONSTRAINT"
		}
		return kind, sql.QuoteIdent(childName(rec, parent)) + " ON " + self.name(parent), nil
	case ir.KindUserMapping:
		user, server, err := userMapping(rec)
		if err != nil {
			return "", "", err
		}
		return "USER MAPPING", fmt.Sprintf("FOR %s SERVER %s", self.quoter.QuoteRole(user), sql.QuoteIdent(server.Name)), nil
	}
	return string(rec.Kind), self.name(rec), nil
}

func (self *Synthesizer) renderDrop(rec *ir.ObjectRecord) (string, error) {
	switch rec.Kind {
	case ir.KindACL, ir.KindSequenceOwnedBy:
		return "", nil
	case ir.KindSchema:
		if rec.Name == ir.SchemaPublic {
			return "", nil
		}
	case ir.KindGroup, ir.KindRole, ir.KindUser:
		if self.isSuperuser(rec.Name) {
			return "", nil
		}
		return fmt.Sprintf("DROP %s IF EXISTS %s;\n", rec.Kind, self.quoter.QuoteRole(rec.Name)), nil
	case ir.KindFKConstraint:
		parent, err := self.inv.Get(rec.ParentID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ALTER TABLE ONLY %s DROP CONSTRAINT IF EXISTS %s;\n", self.name(parent), sql.QuoteIdent(childName(rec, parent))), nil
	case ir.KindUserMapping:
		_, target, err := self.reference(rec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("DROP USER MAPPING IF EXISTS %s;\n", target), nil
	}
	kind, target, err := self.reference(rec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP %s IF EXISTS %s;\n", kind, target), nil
}

func (self *Synthesizer) renderComments(rec *ir.ObjectRecord) ([]*sql.CommentOn, error) {
	out := []*sql.CommentOn{}
	switch rec.Kind {
	case ir.KindACL, ir.KindSequenceOwnedBy, ir.KindUserMapping:
		return out, nil
	}
	if rec.Comment != "" {
		kind, target, err := self.reference(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, &sql.CommentOn{Kind: kind, Object: target, Comment: rec.Comment})
	}
	constraint := func(name, comment string) {
		if name != "" && comment != "" {
			out = append(out, &sql.CommentOn{
				Kind:    "CONSTRAINT",
				Object:  sql.QuoteIdent(name) + " ON " + self.name(rec),
				Comment: comment,
			})
		}
	}
	column := func(name, comment string) {
		if comment != "" {
			out = append(out, &sql.CommentOn{
				Kind:    "COLUMN",
				Object:  self.name(rec) + "." + sql.QuoteIdent(name),
				Comment: comment,
			})
		}
	}
	switch attrs := rec.Attributes.(type) {
	case *ir.Table:
		for _, c := range attrs.Columns {
			column(c.Name, c.Comment)
		}
		if attrs.PrimaryKey != nil {
			constraint(attrs.PrimaryKey.Name, attrs.PrimaryKey.Comment)
		}
		for _, u := range attrs.UniqueConstraints {
			constraint(u.Name, u.Comment)
		}
		for _, c := range attrs.CheckConstraints {
			constraint(c.Name, c.Comment)
		}
	case *ir.View:
		for _, c := range attrs.Columns {
			column(c.Name, c.Comment)
		}
	case *ir.MaterializedView:
		for _, c := range attrs.Columns {
			column(c.Name, c.Comment)
		}
	}
	return out, nil
}

var ownable = map[ir.Kind]bool{
	ir.KindAggregate:               true,
	ir.KindCollation:               true,
	ir.KindConversion:              true,
	ir.KindDomain:                  true,
	ir.KindEventTrigger:            true,
	ir.KindForeignDataWrapper:      true,
	ir.KindFunction:                true,
	ir.KindMaterializedView:        true,
	ir.KindOperator:                true,
	ir.KindProcedure:               true,
	ir.KindProceduralLanguage:      true,
	ir.KindPublication:             true,
	ir.KindSchema:                  true,
	ir.KindSequence:                true,
	ir.KindServer:                  true,
	ir.KindSubscription:            true,
	ir.KindTable:                   true,
	ir.KindTextSearchConfiguration: true,
	ir.KindTextSearchDictionary:    true,
	ir.KindType:                    true,
	ir.KindView:                    true,
}

// renderOwner is the ALTER ... OWNER TO statement for objects with an
// explicit owner
func (self *Synthesizer) renderOwner(rec *ir.ObjectRecord) string {
	if rec.Owner == "" || !ownable[rec.Kind] {
		return ""
	}
	if rec.Kind == ir.KindSchema && rec.Name == ir.SchemaPublic {
		return ""
	}
	kind, target, err := self.reference(rec)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("ALTER %s %s OWNER TO %s;\n", kind, target, self.quoter.QuoteRole(rec.Owner))
}
