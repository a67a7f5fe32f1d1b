package sql

import (
	"fmt"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/output"
)

// RoleSet is ALTER ROLE name SET param TO value. List values are joined
// bare, the way search_path is usually written.
type RoleSet struct {
	Role  string
	Param string
	Value interface{}
}

func (r *RoleSet) ToSql(q output.Quoter) string {
	var value string
	if list, ok := asList(r.Value); ok {
		parts := make([]string, len(list))
		for i, el := range list {
			parts[i] = fmt.Sprint(el)
		}
		value = strings.Join(parts, ", ")
	} else if s, ok := r.Value.(string); ok {
		value = DollarQuote(s)
	} else {
		value = PostgresValue(r.Value)
	}
	return fmt.Sprintf("ALTER ROLE %s SET %s TO %s;", q.QuoteRole(r.Role), r.Param, value)
}
