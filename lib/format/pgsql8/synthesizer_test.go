package pgsql8_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsteward/pglifecycle/lib/archive"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8"
	"github.com/dbsteward/pglifecycle/lib/inventory"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/util"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	inv     *inventory.Inventory
	archive *archive.Archive
	synth   *pgsql8.Synthesizer
}

func newFixture() *fixture {
	a := archive.New("test", "UTF8", true)
	inv := inventory.New(inventory.NewIDAllocator(a.MaxID() + 1))
	return &fixture{
		inv:     inv,
		archive: a,
		synth:   pgsql8.NewSynthesizer(discardLogger(), inv, a, "postgres"),
	}
}

func (f *fixture) add(t *testing.T, rec ir.ObjectRecord) *ir.ObjectRecord {
	id, err := f.inv.Add(rec)
	require.NoError(t, err)
	stored, err := f.inv.Get(id)
	require.NoError(t, err)
	return stored
}

func (f *fixture) create(t *testing.T, rec *ir.ObjectRecord) string {
	r, err := f.synth.Render(rec)
	require.NoError(t, err)
	return r.Create
}

func usersTable() *ir.Table {
	return &ir.Table{
		Columns: []*ir.Column{
			{Name: "id", DataType: "integer", Nullable: util.Ptr(false), Generated: &ir.Generated{Sequence: true, When: "always"}},
			{Name: "email", DataType: "text", Nullable: util.Ptr(false), Collation: "C", Comment: "login"},
			{Name: "created", DataType: "timestamp with time zone", Default: "now()"},
		},
		PrimaryKey:        &ir.KeyConstraint{Name: "users_pkey", Columns: []string{"id"}},
		UniqueConstraints: []*ir.KeyConstraint{{Name: "users_email_key", Columns: []string{"email"}}},
		CheckConstraints:  []*ir.CheckConstraint{{Name: "email_len", Expression: "length(email) > 3"}},
		Indexes: []*ir.Index{
			{Name: "users_email_idx", Columns: []*ir.IndexColumn{{Name: "email"}}, Where: "email IS NOT NULL"},
			{Name: "users_lower_idx", Unique: true, Method: "hash", Columns: []*ir.IndexColumn{{Expression: "lower(email)"}}},
		},
		Triggers: []*ir.Trigger{
			{Name: "users_audit", When: "after", Events: []string{"insert", "update"}, ForEach: "row", Function: "public.audit()"},
		},
		Rules: []*ir.Rule{
			{Name: "users_nodelete", Event: "delete", Instead: true},
		},
	}
}

func TestRenderTable(t *testing.T) {
	f := newFixture()
	users := f.add(t, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "users", Attributes: usersTable()})

	assert.Equal(t,
		`CREATE TABLE public.users (id integer NOT NULL GENERATED ALWAYS AS IDENTITY, email text COLLATE "C" NOT NULL, `+
			`created timestamp with time zone DEFAULT now(), CONSTRAINT email_len CHECK (length(email) > 3), `+
			`CONSTRAINT users_pkey PRIMARY KEY (id), CONSTRAINT users_email_key UNIQUE (email));`+"\n",
		f.create(t, users))

	r, err := f.synth.Render(users)
	require.NoError(t, err)
	assert.Equal(t, "DROP TABLE IF EXISTS public.users;\n", r.Drop)
	require.Len(t, r.Comments, 1)
	assert.Equal(t, "COLUMN", r.Comments[0].Kind)
	assert.Equal(t, "public.users.email", r.Comments[0].Object)
}

func TestRenderTableClauses(t *testing.T) {
	f := newFixture()
	rec := f.add(t, ir.ObjectRecord{
		Kind:       ir.KindTable,
		Schema:     "public",
		Name:       "events",
		Tablespace: "fast",
		Attributes: &ir.Table{
			Unlogged:          true,
			Columns:           []*ir.Column{{Name: "at", DataType: "date"}, {Name: "kind", DataType: "text"}},
			Parents:           []string{"public.base_events"},
			Partition:         &ir.Partition{Type: "range", Columns: []string{"at", "kind"}},
			StorageParameters: map[string]string{"fillfactor": "70", "autovacuum_enabled": "false"},
		},
	})
	assert.Equal(t,
		"CREATE UNLOGGED TABLE public.events (at date, kind text) INHERITS (public.base_events) "+
			"PARTITION BY RANGE (at, kind) WITH (autovacuum_enabled = false, fillfactor = 70) TABLESPACE fast;\n",
		f.create(t, rec))
}

func TestRenderTableChildren(t *testing.T) {
	f := newFixture()
	users := f.add(t, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "users", Attributes: usersTable()})
	child := func(kind ir.Kind, name string) *ir.ObjectRecord {
		return f.add(t, ir.ObjectRecord{Kind: kind, Schema: "public", Name: name, ParentID: users.ID})
	}

	assert.Equal(t,
		"CREATE INDEX users_email_idx ON public.users USING btree (email) WHERE email IS NOT NULL;\n",
		f.create(t, child(ir.KindIndex, "users_email_idx")))
	assert.Equal(t,
		"CREATE UNIQUE INDEX users_lower_idx ON public.users USING hash ((lower(email)));\n",
		f.create(t, child(ir.KindIndex, "users_lower_idx")))
	assert.Equal(t,
		"CREATE TRIGGER users_audit AFTER INSERT OR UPDATE ON public.users FOR EACH ROW EXECUTE FUNCTION public.audit();\n",
		f.create(t, child(ir.KindTrigger, "users_audit")))
	assert.Equal(t,
		"CREATE RULE users_nodelete AS ON DELETE TO public.users DO INSTEAD NOTHING;\n",
		f.create(t, child(ir.KindRule, "users_nodelete")))

	trigger, err := f.inv.Lookup(ir.KindTrigger, "public", "users_audit")
	require.NoError(t, err)
	r, err := f.synth.Render(trigger)
	require.NoError(t, err)
	assert.Equal(t, "DROP TRIGGER IF EXISTS users_audit ON public.users;\n", r.Drop)
}

func TestRenderForeignKey(t *testing.T) {
	f := newFixture()
	f.add(t, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "users", Attributes: usersTable()})
	orders := f.add(t, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "orders", Attributes: &ir.Table{
		Columns: []*ir.Column{{Name: "user_id", DataType: "integer"}},
		ForeignKeys: []*ir.ForeignKey{{
			Name:       "orders_user_fk",
			Columns:    []string{"user_id"},
			References: ir.ForeignKeyTarget{Name: "users", Columns: []string{"id"}},
			OnDelete:   "cascade",
			MatchType:  "full",
		}},
	}})
	fk := f.add(t, ir.ObjectRecord{Kind: ir.KindFKConstraint, Schema: "public", Name: "orders_user_fk", ParentID: orders.ID})

	r, err := f.synth.Render(fk)
	require.NoError(t, err)
	assert.Equal(t,
		"ALTER TABLE ONLY public.orders ADD CONSTRAINT orders_user_fk FOREIGN KEY (user_id) "+
			"REFERENCES public.users (id) MATCH FULL ON DELETE CASCADE;\n",
		r.Create)
	assert.Equal(t, "ALTER TABLE ONLY public.orders DROP CONSTRAINT IF EXISTS orders_user_fk;\n", r.Drop)
}

func TestRenderOrphanedChild(t *testing.T) {
	f := newFixture()
	users := f.add(t, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "users", Attributes: usersTable()})
	idx := f.add(t, ir.ObjectRecord{Kind: ir.KindIndex, Schema: "public", Name: "missing_idx", ParentID: users.ID})

	_, err := f.synth.Render(idx)
	var orphan *pgsql8.OrphanedChildError
	require.ErrorAs(t, err, &orphan)
	assert.Equal(t, users.Triple(), orphan.Parent)
}

func TestRenderRawSQLWins(t *testing.T) {
	f := newFixture()
	rec := f.add(t, ir.ObjectRecord{
		Kind:       ir.KindView,
		Schema:     "public",
		Name:       "v",
		RawSQL:     "CREATE VIEW public.v AS SELECT 1",
		Attributes: &ir.View{Query: "SELECT 2"},
	})
	assert.Equal(t, "CREATE VIEW public.v AS SELECT 1;\n", f.create(t, rec))
}

func TestRenderFunction(t *testing.T) {
	f := newFixture()
	fn := &ir.Function{
		Meta:       ir.Meta{Name: "add"},
		Parameters: []*ir.Parameter{{Name: "a", DataType: "integer"}, {Name: "b", DataType: "integer"}, {Mode: "out", Name: "c", DataType: "integer"}},
		Language:   "sql",
		Immutable:  true,
		Definition: "SELECT a + b",
	}
	rec := f.add(t, ir.ObjectRecord{Kind: ir.KindFunction, Schema: "public", Name: fn.Signature(), Attributes: fn})

	r, err := f.synth.Render(rec)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE FUNCTION public.add(a integer, b integer, OUT c integer) LANGUAGE sql IMMUTABLE AS $$\nSELECT a + b\n$$;\n",
		r.Create)
	assert.Equal(t, "DROP FUNCTION IF EXISTS public.add(integer, integer);\n", r.Drop)
}

func TestRenderRole(t *testing.T) {
	f := newFixture()
	app := f.add(t, ir.ObjectRecord{Kind: ir.KindUser, Name: "app", Attributes: &ir.Role{
		Meta:     ir.Meta{Name: "app"},
		Password: util.Ptr("md5abc"),
		Settings: []*ir.Setting{{Name: "search_path", Value: []interface{}{"app", "public"}}},
	}})
	r, err := f.synth.Render(app)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE ROLE app WITH LOGIN PASSWORD 'md5abc';\nALTER ROLE app SET search_path TO app, public;\n",
		r.Create)
	assert.Equal(t, "DROP USER IF EXISTS app;\n", r.Drop)

	super := f.add(t, ir.ObjectRecord{Kind: ir.KindRole, Name: "postgres", Attributes: &ir.Role{Meta: ir.Meta{Name: "postgres"}}})
	r, err = f.synth.Render(super)
	require.NoError(t, err)
	assert.Empty(t, r.Create)
	assert.Empty(t, r.Drop)

	skipped := f.add(t, ir.ObjectRecord{Kind: ir.KindGroup, Name: "readers", Attributes: &ir.Role{Create: util.Ptr(false)}})
	assert.Empty(t, f.create(t, skipped))
}

func TestRenderSequences(t *testing.T) {
	f := newFixture()
	seq := f.add(t, ir.ObjectRecord{Kind: ir.KindSequence, Schema: "public", Name: "users_id_seq", Attributes: &ir.Sequence{
		IncrementBy: util.Ptr(int64(1)),
		StartWith:   util.Ptr(int64(1)),
		Cycle:       true,
	}})
	assert.Equal(t, "CREATE SEQUENCE public.users_id_seq INCREMENT BY 1 START WITH 1 CYCLE;\n", f.create(t, seq))

	owned := f.add(t, ir.ObjectRecord{Kind: ir.KindSequenceOwnedBy, Schema: "public", Name: "users_id_seq", Attributes: &ir.SequenceOwnedBy{
		OwnedBy: "public.users.id",
	}})
	r, err := f.synth.Render(owned)
	require.NoError(t, err)
	assert.Equal(t, "ALTER SEQUENCE public.users_id_seq OWNED BY public.users.id;\n", r.Create)
	assert.Empty(t, r.Drop)
}

func TestRenderMiscKinds(t *testing.T) {
	f := newFixture()
	cases := []struct {
		rec      ir.ObjectRecord
		expected string
	}{
		{
			ir.ObjectRecord{Kind: ir.KindSchema, Name: "public"},
			"-- No DDL required\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindSchema, Name: "app", Attributes: &ir.Schema{Authorization: "owner"}},
			"CREATE SCHEMA IF NOT EXISTS app AUTHORIZATION owner;\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindExtension, Name: "uuid-ossp", Attributes: &ir.Extension{Meta: ir.Meta{Schema: "ext"}, Cascade: true}},
			`CREATE EXTENSION IF NOT EXISTS "uuid-ossp" WITH SCHEMA ext CASCADE;` + "\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindType, Schema: "public", Name: "mood", Attributes: &ir.Type{Type: "enum", Enum: []string{"sad", "happy"}}},
			"CREATE TYPE public.mood AS ENUM ('sad', 'happy');\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindType, Schema: "public", Name: "span", Attributes: &ir.Type{Type: "range", Subtype: "float8", SubtypeOpClass: "float8_ops", Canonical: "span_canon"}},
			"CREATE TYPE public.span AS RANGE (SUBTYPE = float8, SUBTYPE_OPCLASS = float8_ops, CANONICAL = span_canon);\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindDomain, Schema: "public", Name: "posint", Attributes: &ir.Domain{
				DataType:         "integer",
				CheckConstraints: []*ir.DomainConstraint{{Name: "positive", Expression: "VALUE > 0"}},
			}},
			"CREATE DOMAIN public.posint AS integer CONSTRAINT positive CHECK (VALUE > 0);\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindForeignDataWrapper, Name: "files", Attributes: &ir.ForeignDataWrapper{Handler: util.Ptr("file_handler"), Validator: util.Ptr("")}},
			"CREATE FOREIGN DATA WRAPPER files HANDLER file_handler NO VALIDATOR;\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindServer, Name: "remote", Attributes: &ir.Server{ForeignDataWrapper: "postgres_fdw", Options: map[string]string{"port": "5432", "host": "db"}}},
			"CREATE SERVER remote FOREIGN DATA WRAPPER postgres_fdw OPTIONS (host 'db', port '5432');\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindUserMapping, Name: "app SERVER remote", Attributes: &ir.UserMapping{
				Meta:    ir.Meta{Name: "app"},
				Servers: []*ir.UserMappingServer{{Name: "remote", Options: map[string]string{"user": "remote_app"}}},
			}},
			"CREATE USER MAPPING FOR app SERVER remote OPTIONS (user 'remote_app');\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindCast, Name: "text AS mood", Attributes: &ir.Cast{SourceType: "text", TargetType: "public.mood", InOut: true, Assignment: true}},
			"CREATE CAST (text AS public.mood) WITH INOUT AS ASSIGNMENT;\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindView, Schema: "public", Name: "active", Attributes: &ir.View{
				Columns:     []*ir.ViewColumn{{Name: "id"}},
				CheckOption: "LOCAL",
				Query:       "SELECT id FROM public.users WHERE active;",
			}},
			"CREATE VIEW public.active (id) WITH (check_option = local) AS SELECT id FROM public.users WHERE active;\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindTextSearchConfiguration, Schema: "public", Name: "english_custom", Attributes: &ir.TextSearchConfiguration{Source: "pg_catalog.english"}},
			"CREATE TEXT SEARCH CONFIGURATION public.english_custom (COPY = pg_catalog.english);\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindPublication, Name: "all_things", Attributes: &ir.Publication{AllTables: true}},
			"CREATE PUBLICATION all_things FOR ALL TABLES;\n",
		},
		{
			ir.ObjectRecord{Kind: ir.KindEventTrigger, Name: "ddl_log", Attributes: &ir.EventTrigger{
				Event:    "ddl_command_end",
				Filter:   &ir.EventTriggerFilter{Tags: []string{"CREATE TABLE"}},
				Function: "public.log_ddl()",
			}},
			"CREATE EVENT TRIGGER ddl_log ON ddl_command_end WHEN TAG IN ('CREATE TABLE') EXECUTE FUNCTION public.log_ddl();\n",
		},
	}
	for _, c := range cases {
		rec := f.add(t, c.rec)
		assert.Equal(t, c.expected, f.create(t, rec), rec.Triple().String())
	}
}

func TestRenderOwnerStatement(t *testing.T) {
	f := newFixture()
	rec := f.add(t, ir.ObjectRecord{Kind: ir.KindSequence, Schema: "public", Name: "counter", Owner: "app", Attributes: &ir.Sequence{}})
	assert.Equal(t, "CREATE SEQUENCE public.counter;\nALTER SEQUENCE public.counter OWNER TO app;\n", f.create(t, rec))
}

func TestEmit(t *testing.T) {
	f := newFixture()
	schema := f.add(t, ir.ObjectRecord{Kind: ir.KindSchema, Name: "app"})
	users := f.add(t, ir.ObjectRecord{Kind: ir.KindTable, Schema: "app", Name: "users", Comment: "people", Attributes: usersTable()})

	require.NoError(t, f.synth.Emit(schema, nil))
	require.NoError(t, f.synth.Emit(users, []int{schema.ID}))

	entry := f.archive.Lookup("TABLE", "app", "users")
	require.NotNil(t, entry)
	assert.Equal(t, users.ID, entry.ID)
	assert.Equal(t, []int{schema.ID}, entry.Dependencies)
	assert.Equal(t, "postgres", entry.Owner)
	assert.Equal(t, "Pre-Data", entry.Section)

	schemaEntry := f.archive.Lookup("SCHEMA", "", "app")
	require.NotNil(t, schemaEntry)

	comment := f.archive.Lookup("COMMENT", "app", "TABLE app.users")
	require.NotNil(t, comment)
	assert.Equal(t, "COMMENT ON TABLE app.users IS $$people$$;\n", comment.Defn)
	assert.Equal(t, []int{users.ID}, comment.Dependencies)
	assert.Greater(t, comment.ID, users.ID)

	column := f.archive.Lookup("COMMENT", "app", "COLUMN app.users.email")
	require.NotNil(t, column)
	assert.Equal(t, "COMMENT ON COLUMN app.users.email IS $$login$$;\n", column.Defn)
}
