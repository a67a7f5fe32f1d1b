package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
)

func TestQuoteIdent(t *testing.T) {
	cases := map[string]string{
		"foo_bar":    "foo_bar",
		"uuid-ossp":  `"uuid-ossp"`,
		"Mixed":      `"Mixed"`,
		"user":       `"user"`,
		"select":     `"select"`,
		"a$b":        "a$b",
		"1st":        `"1st"`,
		`say "hi"`:   `"say ""hi"""`,
		`"`:          `""""`,
		"_private":   "_private",
		"with space": `"with space"`,
	}
	for in, expected := range cases {
		assert.Equal(t, expected, sql.QuoteIdent(in), in)
	}
}

func TestQuoteQualified(t *testing.T) {
	assert.Equal(t, "public.foo", sql.QuoteQualified("public.foo"))
	assert.Equal(t, `app."Order"`, sql.QuoteQualified("app.Order"))
	assert.Equal(t, `"already quoted"`, sql.QuoteQualified(`"already quoted"`))
}

func TestPostgresValue(t *testing.T) {
	assert.Equal(t, "'foo'", sql.PostgresValue("foo"))
	assert.Equal(t, "$$foo'bar$$", sql.PostgresValue("foo'bar"))
	assert.Equal(t, "'it''s $$'", sql.PostgresValue("it's $$"))
	assert.Equal(t, "ARRAY[1, 2]", sql.PostgresValue([]int{1, 2}))
	assert.Equal(t, "ARRAY[[1, 2], [3, 4]]", sql.PostgresValue([][]int{{1, 2}, {3, 4}}))
	assert.Equal(t, "ARRAY['a', 'b']", sql.PostgresValue([]interface{}{"a", "b"}))
	assert.Equal(t, "42", sql.PostgresValue(42))
	assert.Equal(t, "1.5", sql.PostgresValue(1.5))
	assert.Equal(t, "true", sql.PostgresValue(true))
	assert.Equal(t, "NULL", sql.PostgresValue(nil))
}

func TestDollarQuote(t *testing.T) {
	assert.Equal(t, "$$hello$$", sql.DollarQuote("hello"))
	assert.Equal(t, "$_0$a $$ b$_0$", sql.DollarQuote("a $$ b"))
}

func TestStatements(t *testing.T) {
	q := &sql.Quoter{}
	assert.Equal(t,
		"GRANT SELECT, INSERT ON public.foo TO app, PUBLIC;",
		(&sql.Grant{Privileges: []string{"select", "insert"}, Object: "public.foo", Roles: []string{"app", "public"}}).ToSql(q),
	)
	assert.Equal(t,
		`REVOKE ALL ON SCHEMA app FROM "Reporting";`,
		(&sql.Grant{Revoke: true, Privileges: []string{"ALL"}, Object: "SCHEMA app", Roles: []string{"Reporting"}}).ToSql(q),
	)
	assert.Equal(t,
		"GRANT admins TO alice, bob;",
		(&sql.GrantRole{Role: "admins", Members: []string{"alice", "bob"}}).ToSql(q),
	)
	assert.Equal(t,
		"COMMENT ON TABLE public.foo IS $$it's a table$$;",
		(&sql.CommentOn{Kind: "TABLE", Object: "public.foo", Comment: "it's a table"}).ToSql(q),
	)
	assert.Equal(t,
		"ALTER ROLE app SET search_path TO app, public;",
		(&sql.RoleSet{Role: "app", Param: "search_path", Value: []interface{}{"app", "public"}}).ToSql(q),
	)
	assert.Equal(t,
		"ALTER ROLE app SET statement_timeout TO $$30s$$;",
		(&sql.RoleSet{Role: "app", Param: "statement_timeout", Value: "30s"}).ToSql(q),
	)
	assert.Equal(t,
		"ALTER SEQUENCE public.foo_id_seq OWNED BY public.foo.id;",
		(&sql.SequenceOwnedBy{Sequence: sql.SequenceRef{Schema: "public", Sequence: "foo_id_seq"}, OwnedBy: "public.foo.id"}).ToSql(q),
	)
	assert.Equal(t,
		"ALTER SEQUENCE public.foo_id_seq RESTART WITH 11;",
		(&sql.SequenceRestart{Sequence: sql.SequenceRef{Schema: "public", Sequence: "foo_id_seq"}, Value: 11}).ToSql(q),
	)
}
