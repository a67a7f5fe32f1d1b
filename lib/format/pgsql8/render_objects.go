package pgsql8

import (
	"fmt"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

func (self *Synthesizer) renderSchema(rec *ir.ObjectRecord) (string, error) {
	if rec.Name == ir.SchemaPublic {
		return "-- No DDL required\n", nil
	}
	stmt := tokens{"CREATE SCHEMA IF NOT EXISTS", sql.QuoteIdent(rec.Name)}
	if schema, ok := rec.Attributes.(*ir.Schema); ok && schema.Authorization != "" {
		stmt.add("AUTHORIZATION", self.quoter.QuoteRole(schema.Authorization))
	}
	return stmt.statement(), nil
}

func (self *Synthesizer) renderExtension(rec *ir.ObjectRecord) (string, error) {
	ext, ok := rec.Attributes.(*ir.Extension)
	if !ok {
		return "", &attrsError{rec, "extension"}
	}
	stmt := tokens{"CREATE EXTENSION IF NOT EXISTS", sql.QuoteIdent(rec.Name)}
	if ext.Schema != "" {
		stmt.add("WITH SCHEMA", sql.QuoteIdent(ext.Schema))
	}
	if ext.Version != "" {
		stmt.add("VERSION", sql.PostgresValue(ext.Version))
	}
	stmt.addIf(ext.Cascade, "CASCADE")
	return stmt.statement(), nil
}

func (self *Synthesizer) renderLanguage(rec *ir.ObjectRecord) (string, error) {
	lang, ok := rec.Attributes.(*ir.Language)
	if !ok {
		return "", &attrsError{rec, "language"}
	}
	stmt := tokens{"CREATE"}
	stmt.addIf(lang.Replace, "OR REPLACE")
	stmt.addIf(lang.Trusted, "TRUSTED")
	stmt.add("LANGUAGE", sql.QuoteIdent(rec.Name))
	if lang.Handler != "" {
		stmt.add("HANDLER", lang.Handler)
		if lang.InlineHandler != "" {
			stmt.add("INLINE", lang.InlineHandler)
		}
		if lang.Validator != "" {
			stmt.add("VALIDATOR", lang.Validator)
		}
	}
	return stmt.statement(), nil
}

func (self *Synthesizer) renderForeignDataWrapper(rec *ir.ObjectRecord) (string, error) {
	fdw, ok := rec.Attributes.(*ir.ForeignDataWrapper)
	if !ok {
		return "", &attrsError{rec, "foreign data wrapper"}
	}
	stmt := tokens{"CREATE FOREIGN DATA WRAPPER", sql.QuoteIdent(rec.Name)}
	if fdw.Handler != nil {
		if *fdw.Handler == "" {
			stmt.add("NO HANDLER")
		} else {
			stmt.add("HANDLER", *fdw.Handler)
		}
	}
	if fdw.Validator != nil {
		if *fdw.Validator == "" {
			stmt.add("NO VALIDATOR")
		} else {
			stmt.add("VALIDATOR", *fdw.Validator)
		}
	}
	stmt.add(fdwOptions(fdw.Options))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderServer(rec *ir.ObjectRecord) (string, error) {
	server, ok := rec.Attributes.(*ir.Server)
	if !ok {
		return "", &attrsError{rec, "server"}
	}
	stmt := tokens{"CREATE SERVER", sql.QuoteIdent(rec.Name)}
	if server.Type != "" {
		stmt.add("TYPE", sql.PostgresValue(server.Type))
	}
	if server.Version != "" {
		stmt.add("VERSION", sql.PostgresValue(server.Version))
	}
	stmt.add("FOREIGN DATA WRAPPER", sql.QuoteIdent(server.ForeignDataWrapper))
	stmt.add(fdwOptions(server.Options))
	return stmt.statement(), nil
}

// userMapping returns the user and the single server of a per-server
// user mapping record
func userMapping(rec *ir.ObjectRecord) (string, *ir.UserMappingServer, error) {
	um, ok := rec.Attributes.(*ir.UserMapping)
	if !ok || len(um.Servers) != 1 {
		return "", nil, &attrsError{rec, "user mapping"}
	}
	return um.Name, um.Servers[0], nil
}

func (self *Synthesizer) renderUserMapping(rec *ir.ObjectRecord) (string, error) {
	user, server, err := userMapping(rec)
	if err != nil {
		return "", err
	}
	stmt := tokens{"CREATE USER MAPPING FOR", self.quoter.QuoteRole(user)}
	stmt.add("SERVER", sql.QuoteIdent(server.Name))
	stmt.add(fdwOptions(server.Options))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderPublication(rec *ir.ObjectRecord) (string, error) {
	pub, ok := rec.Attributes.(*ir.Publication)
	if !ok {
		return "", &attrsError{rec, "publication"}
	}
	stmt := tokens{"CREATE PUBLICATION", sql.QuoteIdent(rec.Name)}
	if pub.AllTables {
		stmt.add("FOR ALL TABLES")
	} else if len(pub.Tables) > 0 {
		tables := make([]string, len(pub.Tables))
		for i, t := range pub.Tables {
			tables[i] = sql.QuoteQualified(t)
		}
		stmt.add("FOR TABLE", strings.Join(tables, ", "))
	}
	stmt.add(withOptions(pub.Parameters))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderSubscription(rec *ir.ObjectRecord) (string, error) {
	sub, ok := rec.Attributes.(*ir.Subscription)
	if !ok {
		return "", &attrsError{rec, "subscription"}
	}
	stmt := tokens{"CREATE SUBSCRIPTION", sql.QuoteIdent(rec.Name)}
	stmt.add("CONNECTION", sql.PostgresValue(sub.Connection))
	stmt.add("PUBLICATION", strings.Join(quoteAll(sub.Publications), ", "))
	stmt.add(withOptions(sub.Parameters))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderTablespace(rec *ir.ObjectRecord) (string, error) {
	ts, ok := rec.Attributes.(*ir.Tablespace)
	if !ok {
		return "", &attrsError{rec, "tablespace"}
	}
	stmt := tokens{"CREATE TABLESPACE", sql.QuoteIdent(rec.Name)}
	if rec.Owner != "" {
		stmt.add("OWNER", self.quoter.QuoteRole(rec.Owner))
	}
	stmt.add("LOCATION", sql.PostgresValue(ts.Location))
	stmt.add(withOptions(ts.Options))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderTextSearch(rec *ir.ObjectRecord) (string, error) {
	stmt := tokens{"CREATE", string(rec.Kind), self.name(rec)}
	opts := []string{}
	switch ts := rec.Attributes.(type) {
	case *ir.TextSearchConfiguration:
		if ts.Source != "" {
			opts = append(opts, "COPY = "+sql.QuoteQualified(ts.Source))
		} else {
			opts = append(opts, "PARSER = "+sql.QuoteQualified(ts.Parser))
		}
	case *ir.TextSearchDictionary:
		opts = append(opts, "TEMPLATE = "+sql.QuoteQualified(ts.Template))
		for _, k := range sortedKeys(ts.Options) {
			opts = append(opts, fmt.Sprintf("%s = %s", k, optionValue(ts.Options[k])))
		}
	case *ir.TextSearchParser:
		opts = append(opts,
			"START = "+ts.Start,
			"GETTOKEN = "+ts.GetToken,
			"END = "+ts.End,
			"LEXTYPES = "+ts.LexTypes)
		opts = appendOpt(opts, "HEADLINE", ts.Headline)
	case *ir.TextSearchTemplate:
		opts = appendOpt(opts, "INIT", ts.Init)
		opts = append(opts, "LEXIZE = "+ts.Lexize)
	default:
		return "", &attrsError{rec, "text search"}
	}
	stmt.add(parenList(opts))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderEventTrigger(rec *ir.ObjectRecord) (string, error) {
	et, ok := rec.Attributes.(*ir.EventTrigger)
	if !ok {
		return "", &attrsError{rec, "event trigger"}
	}
	stmt := tokens{"CREATE EVENT TRIGGER", sql.QuoteIdent(rec.Name), "ON", et.Event}
	if et.Filter != nil && len(et.Filter.Tags) > 0 {
		tags := make([]string, len(et.Filter.Tags))
		for i, t := range et.Filter.Tags {
			tags[i] = sql.PostgresValue(t)
		}
		stmt.add("WHEN TAG IN", parenList(tags))
	}
	stmt.add("EXECUTE FUNCTION", ir.BareName(et.Function)+"()")
	return stmt.statement(), nil
}

func viewColumns(columns []*ir.ViewColumn) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = sql.QuoteIdent(c.Name)
	}
	return parenList(names)
}

func (self *Synthesizer) renderView(rec *ir.ObjectRecord) (string, error) {
	view, ok := rec.Attributes.(*ir.View)
	if !ok {
		return "", &attrsError{rec, "view"}
	}
	stmt := tokens{"CREATE"}
	stmt.addIf(view.Recursive, "RECURSIVE")
	stmt.add("VIEW", self.name(rec), viewColumns(view.Columns))
	opts := map[string]string{}
	if view.CheckOption != "" {
		opts["check_option"] = strings.ToLower(view.CheckOption)
	}
	if view.SecurityBarrier != nil {
		opts["security_barrier"] = fmt.Sprint(*view.SecurityBarrier)
	}
	stmt.add(withOptions(opts))
	stmt.add("AS", strings.TrimSuffix(strings.TrimSpace(view.Query), ";"))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderMaterializedView(rec *ir.ObjectRecord) (string, error) {
	view, ok := rec.Attributes.(*ir.MaterializedView)
	if !ok {
		return "", &attrsError{rec, "materialized view"}
	}
	stmt := tokens{"CREATE MATERIALIZED VIEW", self.name(rec), viewColumns(view.Columns)}
	if view.TableAccessMethod != "" {
		stmt.add("USING", view.TableAccessMethod)
	}
	stmt.add(withOptions(view.StorageParameters))
	if rec.Tablespace != "" {
		stmt.add("TABLESPACE", sql.QuoteIdent(rec.Tablespace))
	}
	stmt.add("AS", strings.TrimSuffix(strings.TrimSpace(view.Query), ";"))
	return stmt.statement(), nil
}
