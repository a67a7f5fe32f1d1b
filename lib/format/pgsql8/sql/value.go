package sql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/output"
)

// PostgresValue renders a scalar or list the way PostgreSQL expects it
// in DDL: quoted strings, bare numbers and booleans, ARRAY[...] lists.
func PostgresValue(value interface{}) string {
	if list, ok := asList(value); ok {
		return "ARRAY" + arrayBody(list)
	}
	return scalar(value)
}

// DollarQuote wraps text in $$ delimiters, or a tagged delimiter when the
// text itself contains $$
func DollarQuote(text string) string {
	tag := "$$"
	for i := 0; strings.Contains(text, tag); i++ {
		tag = fmt.Sprintf("$_%d$", i)
	}
	return tag + text + tag
}

func scalar(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		if strings.Contains(v, "'") {
			if !strings.Contains(v, "$$") {
				return "$$" + v + "$$"
			}
			return "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		return "'" + v + "'"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return scalar(fmt.Sprint(value))
}

func arrayBody(list []interface{}) string {
	parts := make([]string, len(list))
	for i, el := range list {
		if sub, ok := asList(el); ok {
			parts[i] = arrayBody(sub)
		} else {
			parts[i] = scalar(el)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func asList(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Value is a literal usable as a statement fragment
type Value struct {
	Value interface{}
}

func (self *Value) ToSql(q output.Quoter) string {
	return PostgresValue(self.Value)
}
