package lib

import (
	"strings"

	"github.com/dbsteward/pglifecycle/lib/archive"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/parse"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

// tableChildKinds are the entries pg_dump writes separately but that
// live in the table's file
var tableChildKinds = []ir.Kind{
	ir.KindDefault,
	ir.KindConstraint,
	ir.KindCheckConstraint,
	ir.KindFKConstraint,
	ir.KindIndex,
	ir.KindTrigger,
	ir.KindRule,
}

// child is a table child entry with its parsed statement. stmt is nil
// when the SQL could not be normalized.
type child struct {
	entry *archive.Entry
	stmt  parse.Statement
	name  string
}

// tableChildren groups the child entries by the schema qualified table
// they apply to
func (self *Generator) tableChildren() map[string][]*child {
	out := map[string][]*child{}
	for _, kind := range tableChildKinds {
		for _, e := range self.entries[string(kind)] {
			c := &child{entry: e, name: e.Tag}
			table := ""
			if stmt, err := parse.ParseOne(e.Defn); err == nil {
				c.stmt = stmt
				table = statementTable(stmt, e.Namespace)
			} else {
				self.logger.Debug("could not parse table child", "kind", kind, "tag", e.Tag, "error", err)
			}
			if prefix, name, ok := strings.Cut(e.Tag, " "); ok && kind != ir.KindIndex {
				c.name = name
				if table == "" {
					table = e.Namespace + "." + prefix
				}
			}
			if table == "" {
				continue
			}
			out[table] = append(out[table], c)
		}
	}
	return out
}

func statementTable(stmt parse.Statement, schema string) string {
	var rel parse.Relation
	switch s := stmt.(type) {
	case *parse.AlterTable:
		rel = s.Relation
	case *parse.CreateIndex:
		rel = s.Relation
	case *parse.CreateTrigger:
		rel = s.Relation
	case *parse.CreateRule:
		rel = s.Relation
	default:
		return ""
	}
	if rel.Schema == "" {
		rel.Schema = schema
	}
	return rel.String()
}

func (self *Generator) writeTables() error {
	children := self.tableChildren()
	for _, e := range self.entries[string(ir.KindTable)] {
		self.mark(e)
		table := self.table(e)
		for _, c := range children[e.Namespace+"."+e.Tag] {
			self.addChild(table, e, c)
		}
		if err := self.save(ir.KindTable, e.Namespace, e.Tag, table); err != nil {
			return err
		}
	}
	return nil
}

// table converts a TABLE entry, falling back to its SQL when the
// statement has no structured form
func (self *Generator) table(e *archive.Entry) *ir.Table {
	meta := self.meta(ir.KindTable, e)
	stmt, err := parse.ParseOne(e.Defn)
	if err == nil {
		if create, ok := stmt.(*parse.CreateTable); ok {
			table, err := create.Table()
			if err == nil {
				table.Meta = meta
				if self.config.NoTablespaces {
					table.Tablespace = ""
				}
				for _, col := range table.Columns {
					col.Comment = self.comment("COLUMN", meta.Schema+"."+meta.Name+"."+col.Name)
				}
				return table
			}
		}
	}
	self.logger.Warn("keeping table as sql", "table", e.Namespace+"."+e.Tag, "error", err)
	meta.SQL = strings.TrimSpace(e.Defn)
	return &ir.Table{Meta: meta}
}

// addChild merges a child entry into table. Children that can't be
// merged are left unprocessed.
func (self *Generator) addChild(table *ir.Table, parent *archive.Entry, c *child) {
	e := c.entry
	qualified := parent.Namespace + "." + parent.Tag
	constraintComment := func(name string) string {
		return self.comment("CONSTRAINT", qualified+"."+name)
	}
	switch ir.Kind(e.Desc) {
	case ir.KindIndex:
		index := &ir.Index{Name: c.name, SQL: strings.TrimSpace(e.Defn)}
		if create, ok := c.stmt.(*parse.CreateIndex); ok {
			index = create.Index()
		}
		switch {
		case self.config.NoTablespaces:
			index.Tablespace = ""
		case e.Tablespace != "":
			index.Tablespace = e.Tablespace
		}
		index.Comment = self.comment("INDEX", parent.Namespace+"."+index.Name)
		table.Indexes = append(table.Indexes, index)

	case ir.KindTrigger:
		trigger := &ir.Trigger{Name: c.name, SQL: strings.TrimSpace(e.Defn)}
		if create, ok := c.stmt.(*parse.CreateTrigger); ok {
			if t, err := create.Trigger(); err == nil {
				trigger = t
			}
		}
		trigger.Comment = self.comment("TRIGGER", qualified+"."+trigger.Name)
		table.Triggers = append(table.Triggers, trigger)

	case ir.KindRule:
		rule := &ir.Rule{Name: c.name, SQL: strings.TrimSpace(e.Defn)}
		if create, ok := c.stmt.(*parse.CreateRule); ok {
			rule = create.Rule()
		}
		rule.Comment = self.comment("RULE", qualified+"."+rule.Name)
		table.Rules = append(table.Rules, rule)

	case ir.KindFKConstraint:
		fk := &ir.ForeignKey{Name: c.name, SQL: strings.TrimSpace(e.Defn)}
		if fkc := addedConstraint[*parse.ForeignKey](c.stmt); fkc != nil {
			fk = fkc.Definition()
		}
		fk.Comment = constraintComment(fk.Name)
		table.ForeignKeys = append(table.ForeignKeys, fk)

	case ir.KindDefault:
		alter, ok := c.stmt.(*parse.AlterTable)
		if !ok || table.SQL != "" {
			self.logger.Warn("could not merge column default", "table", qualified, "tag", e.Tag)
			return
		}
		for _, cmd := range alter.Commands {
			def, ok := cmd.(*parse.ColumnDefault)
			if !ok {
				continue
			}
			if col := table.GetColumn(def.Column); col != nil {
				col.Default = def.Expression
			}
		}

	case ir.KindConstraint, ir.KindCheckConstraint:
		if table.SQL != "" || !self.addConstraint(table, c.stmt, constraintComment) {
			self.logger.Warn("could not merge constraint", "table", qualified, "tag", e.Tag)
			return
		}
	}
	self.mark(e)
}

// addConstraint merges an ALTER TABLE ... ADD CONSTRAINT for a key or
// check constraint
func (self *Generator) addConstraint(table *ir.Table, stmt parse.Statement, comment func(string) string) bool {
	alter, ok := stmt.(*parse.AlterTable)
	if !ok || len(alter.Commands) != 1 {
		return false
	}
	add, ok := alter.Commands[0].(*parse.AddConstraint)
	if !ok {
		return false
	}
	switch c := add.Constraint.(type) {
	case *parse.PrimaryKey:
		key := c.Key.Definition()
		key.Comment = comment(key.Name)
		table.PrimaryKey = key
	case *parse.Unique:
		key := c.Key.Definition()
		key.Comment = comment(key.Name)
		table.UniqueConstraints = append(table.UniqueConstraints, key)
	case *parse.Check:
		check := c.Definition()
		check.Comment = comment(check.Name)
		table.CheckConstraints = append(table.CheckConstraints, check)
	default:
		return false
	}
	return true
}

// addedConstraint returns the constraint of a single ADD CONSTRAINT
// when it is of type T
func addedConstraint[T parse.Constraint](stmt parse.Statement) T {
	var zero T
	alter, ok := stmt.(*parse.AlterTable)
	if !ok || len(alter.Commands) != 1 {
		return zero
	}
	add, ok := alter.Commands[0].(*parse.AddConstraint)
	if !ok {
		return zero
	}
	c, _ := add.Constraint.(T)
	return c
}

// writeSequences stores each sequence with its OWNED BY folded in
func (self *Generator) writeSequences() error {
	ownedBy := map[string]string{}
	for _, e := range self.entries[string(ir.KindSequenceOwnedBy)] {
		stmt, err := parse.ParseOne(e.Defn)
		if err != nil {
			self.logger.Warn("could not parse sequence owner", "tag", e.Tag, "error", err)
			continue
		}
		if alter, ok := stmt.(*parse.AlterSequence); ok && alter.OwnedBy != "" {
			ownedBy[e.Namespace+"."+e.Tag] = alter.OwnedBy
			self.mark(e)
		}
	}
	for _, e := range self.entries[string(ir.KindSequence)] {
		self.mark(e)
		meta := self.meta(ir.KindSequence, e)
		seq := &ir.Sequence{}
		stmt, err := parse.ParseOne(e.Defn)
		if create, ok := stmt.(*parse.CreateSequence); err == nil && ok {
			seq = create.Sequence()
		} else {
			self.logger.Warn("keeping sequence as sql", "sequence", e.Namespace+"."+e.Tag, "error", err)
			meta.SQL = strings.TrimSpace(e.Defn)
		}
		seq.Meta = meta
		if owner, ok := ownedBy[e.Namespace+"."+e.Tag]; ok {
			seq.OwnedBy = owner
		}
		if err := self.save(ir.KindSequence, e.Namespace, e.Tag, seq); err != nil {
			return err
		}
	}
	return nil
}
