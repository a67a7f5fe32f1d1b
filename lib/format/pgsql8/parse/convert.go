package parse

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

// Table converts a CREATE TABLE to the project representation. Unnamed
// constraints get the names PostgreSQL would give them.
func (self *CreateTable) Table() (*ir.Table, error) {
	table := &ir.Table{
		Meta:              ir.Meta{Name: self.Relation.Name, Schema: self.Relation.Schema, Tablespace: self.Tablespace},
		Unlogged:          self.Unlogged,
		AccessMethod:      self.AccessMethod,
		StorageParameters: self.Options,
	}
	if self.Like != nil {
		table.LikeTable = &ir.LikeTable{Name: self.Like.Relation.String(), Includes: self.Like.Including}
	}
	for _, parent := range self.Inherits {
		table.Parents = append(table.Parents, parent.String())
	}
	if self.PartitionBy != nil {
		table.Partition = &ir.Partition{Type: self.PartitionBy.Strategy, Columns: self.PartitionBy.Columns}
	}

	for _, col := range self.Columns {
		column := &ir.Column{Name: col.Name, DataType: col.DataType, Collation: col.Collation}
		for _, c := range col.Constraints {
			switch c := c.(type) {
			case *Null:
				nullable := !c.NotNull
				column.Nullable = &nullable
			case *Default:
				column.Default = c.Expression
			case *Generated:
				column.Generated = &ir.Generated{Expression: c.Expression, Sequence: c.Identity, When: c.When}
			case *Check:
				if c.Name == "" {
					column.CheckConstraint = c.Expression
					continue
				}
				table.CheckConstraints = append(table.CheckConstraints, c.Definition())
			default:
				if err := self.addTableConstraint(table, c, []string{col.Name}); err != nil {
					return nil, err
				}
			}
		}
		table.Columns = append(table.Columns, column)
	}
	for _, c := range self.Constraints {
		if err := self.addTableConstraint(table, c, nil); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// addTableConstraint places a key, check or foreign key constraint.
// columns is set for constraints declared on a single column.
func (self *CreateTable) addTableConstraint(table *ir.Table, c Constraint, columns []string) error {
	switch c := c.(type) {
	case *PrimaryKey:
		key := c.Definition()
		if len(key.Columns) == 0 {
			key.Columns = columns
		}
		table.PrimaryKey = key
	case *Unique:
		key := c.Definition()
		if len(key.Columns) == 0 {
			key.Columns = columns
		}
		table.UniqueConstraints = append(table.UniqueConstraints, key)
	case *Check:
		check := c.Definition()
		if check.Name == "" {
			check.Name = self.Relation.Name + "_check"
		}
		table.CheckConstraints = append(table.CheckConstraints, check)
	case *ForeignKey:
		fk := c.Definition()
		if len(fk.Columns) == 0 {
			fk.Columns = columns
		}
		if fk.Name == "" {
			fk.Name = fmt.Sprintf("%s_%s_fkey", self.Relation.Name, strings.Join(fk.Columns, "_"))
		}
		table.ForeignKeys = append(table.ForeignKeys, fk)
	case *Exclusion:
		return errors.Errorf("exclusion constraint %q on %s has no structured form", c.Name, self.Relation)
	default:
		return errors.Errorf("unexpected %T constraint on %s", c, self.Relation)
	}
	return nil
}

func (self *Key) Definition() *ir.KeyConstraint {
	return &ir.KeyConstraint{
		Name:              self.Name,
		Columns:           self.Columns,
		Include:           self.Include,
		Deferrable:        self.Deferrable,
		InitiallyDeferred: self.InitiallyDeferred,
	}
}

func (self *Check) Definition() *ir.CheckConstraint {
	return &ir.CheckConstraint{Name: self.Name, Expression: self.Expression}
}

func (self *ForeignKey) Definition() *ir.ForeignKey {
	return &ir.ForeignKey{
		Name:              self.Name,
		Columns:           self.Columns,
		References:        ir.ForeignKeyTarget{Name: self.References.String(), Columns: self.RefColumns},
		MatchType:         self.Match,
		OnDelete:          self.OnDelete,
		OnUpdate:          self.OnUpdate,
		Deferrable:        self.Deferrable,
		InitiallyDeferred: self.InitiallyDeferred,
	}
}

// Trigger converts the statement to the project representation.
// Constraint triggers and transition tables have no structured form.
func (self *CreateTrigger) Trigger() (*ir.Trigger, error) {
	if self.Constraint {
		return nil, errors.Errorf("constraint trigger %s has no structured form", self.Name)
	}
	if len(self.Transitions) > 0 {
		return nil, errors.Errorf("trigger %s with transition tables has no structured form", self.Name)
	}
	return &ir.Trigger{
		Name:      self.Name,
		When:      self.When,
		Events:    self.EventList(),
		ForEach:   self.ForEach,
		Condition: self.Condition,
		Function:  self.Function,
		Arguments: self.Arguments,
	}, nil
}
