package pgsql8

import (
	"fmt"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/util"
)

func (self *Synthesizer) renderTable(rec *ir.ObjectRecord) (string, error) {
	table, ok := rec.Attributes.(*ir.Table)
	if !ok {
		return "", &attrsError{rec, "table"}
	}
	body := []string{}
	if table.LikeTable != nil {
		like := tokens{"LIKE", sql.QuoteQualified(table.LikeTable.Name)}
		for _, inc := range table.LikeTable.Includes {
			like.add("INCLUDING", strings.ToUpper(inc))
		}
		for _, exc := range table.LikeTable.Excludes {
			like.add("EXCLUDING", strings.ToUpper(exc))
		}
		body = append(body, strings.Join(like, " "))
	}
	for _, column := range table.Columns {
		body = append(body, self.columnDefinition(column))
	}
	for _, check := range table.CheckConstraints {
		body = append(body, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", sql.QuoteIdent(check.Name), check.Expression))
	}
	if table.PrimaryKey != nil {
		body = append(body, keyConstraint("PRIMARY KEY", table.PrimaryKey))
	}
	for _, unique := range table.UniqueConstraints {
		body = append(body, keyConstraint("UNIQUE", unique))
	}

	stmt := tokens{"CREATE"}
	stmt.addIf(table.Unlogged, "UNLOGGED")
	stmt.add("TABLE", self.name(rec), "("+strings.Join(body, ", ")+")")
	if len(table.Parents) > 0 {
		stmt.add("INHERITS", parenList(util.Map(table.Parents, sql.QuoteQualified)))
	}
	if table.Partition != nil {
		stmt.add("PARTITION BY", strings.ToUpper(table.Partition.Type), parenList(quoteAll(table.Partition.Columns)))
	}
	if table.AccessMethod != "" {
		stmt.add("USING", table.AccessMethod)
	}
	stmt.add(withOptions(table.StorageParameters))
	if rec.Tablespace != "" {
		stmt.add("TABLESPACE", sql.QuoteIdent(rec.Tablespace))
	}
	return stmt.statement(), nil
}

func (self *Synthesizer) columnDefinition(column *ir.Column) string {
	col := tokens{sql.QuoteIdent(column.Name), column.DataType}
	if column.Collation != "" {
		col.add("COLLATE", sql.QuoteQualified(column.Collation))
	}
	col.addIf(!column.IsNullable(), "NOT NULL")
	if column.CheckConstraint != "" {
		col.add("CHECK", "("+column.CheckConstraint+")")
	}
	if column.Default != "" {
		col.add("DEFAULT", column.Default)
	}
	if gen := column.Generated; gen != nil {
		if gen.Sequence {
			col.add("GENERATED", util.CoalesceStr(strings.ToUpper(gen.When), "BY DEFAULT"), "AS IDENTITY")
		} else if gen.Expression != "" {
			col.add("GENERATED ALWAYS AS", "("+gen.Expression+")", "STORED")
		}
	}
	return strings.Join(col, " ")
}

func keyConstraint(keyword string, key *ir.KeyConstraint) string {
	con := tokens{}
	if key.Name != "" {
		con.add("CONSTRAINT", sql.QuoteIdent(key.Name))
	}
	con.add(keyword, parenList(quoteAll(key.Columns)))
	if len(key.Include) > 0 {
		con.add("INCLUDE", parenList(quoteAll(key.Include)))
	}
	con.addIf(key.Deferrable, "DEFERRABLE")
	con.addIf(key.InitiallyDeferred, "INITIALLY DEFERRED")
	return strings.Join(con, " ")
}

// parentTable returns the table a child record belongs to
func (self *Synthesizer) parentTable(rec *ir.ObjectRecord) (*ir.ObjectRecord, *ir.Table, error) {
	parent, err := self.inv.Get(rec.ParentID)
	if err != nil {
		return nil, nil, err
	}
	table, ok := parent.Attributes.(*ir.Table)
	if !ok {
		return nil, nil, &attrsError{parent, "table"}
	}
	return parent, table, nil
}

// childName strips the "<table> " prefix that per-table object names
// carry in the inventory
func childName(rec, parent *ir.ObjectRecord) string {
	return strings.TrimPrefix(rec.Name, parent.Name+" ")
}

func (self *Synthesizer) orphan(rec, parent *ir.ObjectRecord) error {
	return &OrphanedChildError{Child: rec.Triple(), Parent: parent.Triple()}
}

func (self *Synthesizer) renderIndex(rec *ir.ObjectRecord) (string, error) {
	parent, table, err := self.parentTable(rec)
	if err != nil {
		return "", err
	}
	index := table.GetIndex(rec.Name)
	if index == nil {
		return "", self.orphan(rec, parent)
	}
	if index.SQL != "" {
		return terminate(index.SQL), nil
	}
	stmt := tokens{"CREATE"}
	stmt.addIf(index.Unique, "UNIQUE")
	stmt.add("INDEX", sql.QuoteIdent(index.Name), "ON")
	stmt.addIf(index.Recurse != nil && !*index.Recurse, "ONLY")
	stmt.add(self.name(parent))
	stmt.add("USING", util.CoalesceStr(index.Method, "btree"))
	columns := make([]string, len(index.Columns))
	for i, c := range index.Columns {
		columns[i] = indexColumn(c)
	}
	stmt.add(parenList(columns))
	if len(index.Include) > 0 {
		stmt.add("INCLUDE", parenList(quoteAll(index.Include)))
	}
	stmt.add(withOptions(index.StorageParameters))
	if index.Tablespace != "" {
		stmt.add("TABLESPACE", sql.QuoteIdent(index.Tablespace))
	}
	if index.Where != "" {
		stmt.add("WHERE", index.Where)
	}
	return stmt.statement(), nil
}

func indexColumn(c *ir.IndexColumn) string {
	col := tokens{}
	if c.Expression != "" {
		col.add("(" + c.Expression + ")")
	} else {
		col.add(sql.QuoteIdent(c.Name))
	}
	if c.Collation != "" {
		col.add("COLLATE", sql.QuoteQualified(c.Collation))
	}
	col.add(c.OpClass, strings.ToUpper(c.Direction))
	if c.NullPlacement != "" {
		col.add("NULLS", strings.ToUpper(c.NullPlacement))
	}
	return strings.Join(col, " ")
}

func (self *Synthesizer) renderTrigger(rec *ir.ObjectRecord) (string, error) {
	parent, table, err := self.parentTable(rec)
	if err != nil {
		return "", err
	}
	trigger := table.GetTrigger(childName(rec, parent))
	if trigger == nil {
		return "", self.orphan(rec, parent)
	}
	if trigger.SQL != "" {
		return terminate(trigger.SQL), nil
	}
	events := make([]string, len(trigger.Events))
	for i, ev := range trigger.Events {
		events[i] = strings.ToUpper(ev)
	}
	stmt := tokens{"CREATE TRIGGER", sql.QuoteIdent(trigger.Name)}
	stmt.add(strings.ToUpper(trigger.When), strings.Join(events, " OR "))
	stmt.add("ON", self.name(parent))
	stmt.add("FOR EACH", strings.ToUpper(util.CoalesceStr(trigger.ForEach, "STATEMENT")))
	if trigger.Condition != "" {
		stmt.add("WHEN", "("+trigger.Condition+")")
	}
	args := make([]string, len(trigger.Arguments))
	for i, arg := range trigger.Arguments {
		args[i] = sql.PostgresValue(arg)
	}
	stmt.add("EXECUTE FUNCTION", fmt.Sprintf("%s(%s)", ir.BareName(trigger.Function), strings.Join(args, ", ")))
	return stmt.statement(), nil
}

func (self *Synthesizer) renderForeignKey(rec *ir.ObjectRecord) (string, error) {
	parent, table, err := self.parentTable(rec)
	if err != nil {
		return "", err
	}
	fk := table.GetForeignKey(childName(rec, parent))
	if fk == nil {
		return "", self.orphan(rec, parent)
	}
	if fk.SQL != "" {
		return terminate(fk.SQL), nil
	}
	stmt := tokens{"ALTER TABLE ONLY", self.name(parent)}
	stmt.add("ADD CONSTRAINT", sql.QuoteIdent(fk.Name))
	stmt.add("FOREIGN KEY", parenList(quoteAll(fk.Columns)))
	stmt.add("REFERENCES", self.qualified(fk.TargetTable(parent.Schema)), parenList(quoteAll(fk.References.Columns)))
	if fk.MatchType != "" {
		stmt.add("MATCH", strings.ToUpper(fk.MatchType))
	}
	if fk.OnDelete != "" {
		stmt.add("ON DELETE", strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		stmt.add("ON UPDATE", strings.ToUpper(fk.OnUpdate))
	}
	stmt.addIf(fk.Deferrable, "DEFERRABLE")
	stmt.addIf(fk.InitiallyDeferred, "INITIALLY DEFERRED")
	return stmt.statement(), nil
}

func (self *Synthesizer) renderRule(rec *ir.ObjectRecord) (string, error) {
	parent, table, err := self.parentTable(rec)
	if err != nil {
		return "", err
	}
	rule := table.GetRule(childName(rec, parent))
	if rule == nil {
		return "", self.orphan(rec, parent)
	}
	if rule.SQL != "" {
		return terminate(rule.SQL), nil
	}
	stmt := tokens{"CREATE RULE", sql.QuoteIdent(rule.Name), "AS ON", strings.ToUpper(rule.Event)}
	stmt.add("TO", self.name(parent))
	if rule.Where != "" {
		stmt.add("WHERE", rule.Where)
	}
	stmt.add("DO")
	stmt.addIf(rule.Instead, "INSTEAD")
	switch len(rule.Actions) {
	case 0:
		stmt.add("NOTHING")
	case 1:
		stmt.add(strings.TrimSuffix(rule.Actions[0], ";"))
	default:
		actions := make([]string, len(rule.Actions))
		for i, a := range rule.Actions {
			actions[i] = strings.TrimSuffix(a, ";")
		}
		stmt.add("(" + strings.Join(actions, "; ") + ")")
	}
	return stmt.statement(), nil
}
