package sql

import (
	"fmt"

	"github.com/dbsteward/pglifecycle/lib/output"
)

type SequenceRef struct {
	Schema   string
	Sequence string
}

func (self *SequenceRef) Qualified(q output.Quoter) string {
	return q.QualifyObject(self.Schema, self.Sequence)
}

// SequenceOwnedBy is ALTER SEQUENCE seq OWNED BY table.column
type SequenceOwnedBy struct {
	Sequence SequenceRef
	OwnedBy  string
}

func (self *SequenceOwnedBy) ToSql(q output.Quoter) string {
	owner := "NONE"
	if self.OwnedBy != "" {
		owner = QuoteQualified(self.OwnedBy)
	}
	return fmt.Sprintf("ALTER SEQUENCE %s OWNED BY %s;", self.Sequence.Qualified(q), owner)
}

// SequenceRestart is ALTER SEQUENCE seq RESTART WITH value
type SequenceRestart struct {
	Sequence SequenceRef
	Value    int64
}

func (self *SequenceRestart) ToSql(q output.Quoter) string {
	return fmt.Sprintf("ALTER SEQUENCE %s RESTART WITH %d;", self.Sequence.Qualified(q), self.Value)
}
