package sql

import (
	"fmt"

	"github.com/dbsteward/pglifecycle/lib/output"
)

// CommentOn is COMMENT ON <kind> <object> IS $$text$$. Object is already
// rendered; for triggers, rules and constraints it includes the
// ON table suffix.
type CommentOn struct {
	Kind    string
	Object  string
	Comment string
}

func (c *CommentOn) ToSql(q output.Quoter) string {
	return fmt.Sprintf("COMMENT ON %s %s IS %s;", c.Kind, c.Object, DollarQuote(c.Comment))
}
