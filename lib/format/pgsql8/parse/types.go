package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
)

// catalog type names as the grammar produces them, and how they are
// spelled in DDL
var builtinTypes = map[string]string{
	"bool":        "boolean",
	"bpchar":      "character",
	"float4":      "real",
	"float8":      "double precision",
	"int2":        "smallint",
	"int4":        "integer",
	"int8":        "bigint",
	"interval":    "interval",
	"numeric":     "numeric",
	"time":        "time without time zone",
	"timestamp":   "timestamp without time zone",
	"timestamptz": "timestamp with time zone",
	"timetz":      "time with time zone",
	"varchar":     "character varying",
	"bit":         "bit",
	"varbit":      "bit varying",
}

// interval typmod field masks
var intervalFields = map[int]string{
	4:    "YEAR",
	2:    "MONTH",
	8:    "DAY",
	1024: "HOUR",
	2048: "MINUTE",
	4096: "SECOND",
	6:    "YEAR TO MONTH",
	1032: "DAY TO HOUR",
	3080: "DAY TO MINUTE",
	7176: "DAY TO SECOND",
	3072: "HOUR TO MINUTE",
	7168: "HOUR TO SECOND",
	6144: "MINUTE TO SECOND",
}

const intervalFullRange = 0x7FFF

// TypeName renders a type reference
func TypeName(t *pg_query.TypeName) (string, error) {
	names, err := stringList(t.Names)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", malformed("TypeName", "names")
	}

	name := ""
	builtin := ""
	if len(names) == 2 && names[0] == "pg_catalog" {
		builtin = names[1]
		if spelled, ok := builtinTypes[builtin]; ok {
			name = spelled
		} else {
			name = sql.QuoteIdent(builtin)
		}
	} else if len(names) == 1 && names[0] == "char" {
		// the single byte type, not character(1)
		name = `"char"`
	} else {
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = sql.QuoteIdent(n)
		}
		name = strings.Join(quoted, ".")
	}

	out := strings.Builder{}
	if t.Setof {
		out.WriteString("SETOF ")
	}
	if builtin == "interval" && len(t.Typmods) > 0 {
		out.WriteString(name)
		mask := int(t.Typmods[0].GetAConst().GetIval().GetIval())
		if fields, ok := intervalFields[mask]; ok && mask != intervalFullRange {
			out.WriteString(" " + fields)
		}
		if len(t.Typmods) > 1 {
			precision, err := Expression(t.Typmods[1])
			if err != nil {
				return "", err
			}
			out.WriteString("(" + precision + ")")
		}
	} else {
		typ, err := typmodded(name, t.Typmods, builtin)
		if err != nil {
			return "", err
		}
		out.WriteString(typ)
	}
	if t.PctType {
		out.WriteString("%TYPE")
	}
	for range t.ArrayBounds {
		out.WriteString("[]")
	}
	return out.String(), nil
}

// typmodded places the modifiers of a type. The time types carry them
// ahead of the zone clause: timestamp(3) with time zone.
func typmodded(name string, typmods []*pg_query.Node, builtin string) (string, error) {
	if len(typmods) == 0 {
		return name, nil
	}
	mods, err := expressionList(typmods)
	if err != nil {
		return "", err
	}
	args := "(" + strings.Join(mods, ",") + ")"
	switch builtin {
	case "time", "timetz", "timestamp", "timestamptz":
		head, tail, _ := strings.Cut(name, " ")
		return head + args + " " + tail, nil
	}
	return name + args, nil
}
