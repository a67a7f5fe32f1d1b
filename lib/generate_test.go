package lib_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dbsteward/pglifecycle/lib"
	"github.com/dbsteward/pglifecycle/lib/archive"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

const plainDump = `--
-- PostgreSQL database dump
--

SET statement_timeout = 0;
SET client_encoding = 'UTF8';
SET standard_conforming_strings = on;
SELECT pg_catalog.set_config('search_path', '', false);

--
-- Name: app; Type: SCHEMA; Schema: -; Owner: owner
--

CREATE SCHEMA app;


ALTER SCHEMA app OWNER TO owner;

--
-- Name: pgcrypto; Type: EXTENSION; Schema: -; Owner: -
--

CREATE EXTENSION IF NOT EXISTS pgcrypto WITH SCHEMA public;


--
-- Name: EXTENSION pgcrypto; Type: COMMENT; Schema: -; Owner:
--

COMMENT ON EXTENSION pgcrypto IS 'cryptographic functions';


--
-- Name: touch(); Type: FUNCTION; Schema: app; Owner: owner
--

CREATE FUNCTION app.touch() RETURNS trigger
    LANGUAGE plpgsql
    AS $$BEGIN RETURN NEW; END$$;


ALTER FUNCTION app.touch() OWNER TO owner;

SET default_tablespace = '';

SET default_table_access_method = heap;

--
-- Name: users; Type: TABLE; Schema: app; Owner: owner
--

CREATE TABLE app.users (
    id integer NOT NULL,
    email text
);


ALTER TABLE app.users OWNER TO owner;

--
-- Name: TABLE users; Type: COMMENT; Schema: app; Owner: owner
--

COMMENT ON TABLE app.users IS 'people';


--
-- Name: COLUMN users.email; Type: COMMENT; Schema: app; Owner: owner
--

COMMENT ON COLUMN app.users.email IS 'login';


--
-- Name: users_id_seq; Type: SEQUENCE; Schema: app; Owner: owner
--

CREATE SEQUENCE app.users_id_seq
    AS integer
    START WITH 1
    INCREMENT BY 1
    NO MINVALUE
    NO MAXVALUE
    CACHE 1;


ALTER SEQUENCE app.users_id_seq OWNER TO owner;

--
-- Name: users_id_seq; Type: SEQUENCE OWNED BY; Schema: app; Owner: owner
--

ALTER SEQUENCE app.users_id_seq OWNED BY app.users.id;


--
-- Name: users id; Type: DEFAULT; Schema: app; Owner: owner
--

ALTER TABLE ONLY app.users ALTER COLUMN id SET DEFAULT nextval('app.users_id_seq'::regclass);


--
-- Data for Name: users; Type: TABLE DATA; Schema: app; Owner: owner
--

COPY app.users (id, email) FROM stdin;
1	alice@example.com
2	\N
\.


--
-- Name: users_id_seq; Type: SEQUENCE SET; Schema: app; Owner: owner
--

SELECT pg_catalog.setval('app.users_id_seq', 2, true);


--
-- Name: users users_pkey; Type: CONSTRAINT; Schema: app; Owner: owner
--

ALTER TABLE ONLY app.users
    ADD CONSTRAINT users_pkey PRIMARY KEY (id);


--
-- Name: users_email_idx; Type: INDEX; Schema: app; Owner: owner
--

CREATE INDEX users_email_idx ON app.users USING btree (email);


--
-- Name: users touch; Type: TRIGGER; Schema: app; Owner: owner
--

CREATE TRIGGER touch BEFORE UPDATE ON app.users FOR EACH ROW EXECUTE FUNCTION app.touch();


--
-- Name: users p; Type: POLICY; Schema: app; Owner: owner
--

CREATE POLICY p ON app.users USING (true);


--
-- Name: TABLE users; Type: ACL; Schema: app; Owner: owner
--

GRANT SELECT ON TABLE app.users TO reader;
GRANT SELECT(email),UPDATE(email) ON TABLE app.users TO writer;


--
-- PostgreSQL database dump complete
--

`

const rolesDump = `--
-- PostgreSQL database cluster dump
--

\restrict abc123

SET default_transaction_read_only = off;

--
-- Roles
--

CREATE ROLE reader;
ALTER ROLE reader WITH NOSUPERUSER INHERIT NOCREATEROLE NOCREATEDB NOLOGIN NOREPLICATION NOBYPASSRLS;
CREATE ROLE writer;
ALTER ROLE writer WITH NOSUPERUSER INHERIT NOCREATEROLE NOCREATEDB LOGIN NOREPLICATION NOBYPASSRLS;
COMMENT ON ROLE reader IS 'read only';
ALTER ROLE writer SET search_path TO app, public;

--
-- Role memberships
--

GRANT reader TO writer GRANTED BY postgres;

\unrestrict abc123
`

func loadDump(t *testing.T, dump string) *archive.Archive {
	a, err := archive.ReadPlain(strings.NewReader(dump), "app")
	require.NoError(t, err)
	return a
}

func readYAML(t *testing.T, path string, out interface{}) {
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(raw, out))
}

func generate(t *testing.T, conf lib.Config, dump string, roles string) string {
	dest := filepath.Join(t.TempDir(), "project")
	gen := lib.NewGenerator(conf, loadDump(t, dump), dest)
	if roles != "" {
		path := filepath.Join(t.TempDir(), "roles.sql")
		require.NoError(t, os.WriteFile(path, []byte(roles), 0o644))
		require.NoError(t, gen.ReadRoles(path))
	}
	require.NoError(t, gen.Run())
	return dest
}

func TestGenerate(t *testing.T) {
	conf := testConfig()
	conf.SaveRemaining = true
	dest := generate(t, conf, plainDump, rolesDump)

	proj := &ir.Project{}
	readYAML(t, filepath.Join(dest, "project.yaml"), proj)
	assert.Equal(t, "app", proj.Name)
	assert.Equal(t, "UTF8", proj.Encoding)
	assert.True(t, proj.StdStrings)
	require.Len(t, proj.Extensions, 1)
	assert.Equal(t, "pgcrypto", proj.Extensions[0].Name)
	assert.Equal(t, "public", proj.Extensions[0].Schema)
	assert.Equal(t, "cryptographic functions", proj.Extensions[0].Comment)

	schema := &ir.Schema{}
	readYAML(t, filepath.Join(dest, "schemata", "app.yaml"), schema)
	assert.Equal(t, "app", schema.Name)
	assert.Equal(t, "owner", schema.Owner)

	table := &ir.Table{}
	readYAML(t, filepath.Join(dest, "tables", "app", "users.yaml"), table)
	assert.Equal(t, "users", table.Name)
	assert.Equal(t, "app", table.Schema)
	assert.Equal(t, "people", table.Comment)
	assert.Empty(t, table.SQL)
	require.Len(t, table.Columns, 2)
	assert.Contains(t, table.Columns[0].Default, "nextval")
	assert.False(t, table.Columns[0].IsNullable())
	assert.Equal(t, "login", table.Columns[1].Comment)
	require.NotNil(t, table.PrimaryKey)
	assert.Equal(t, "users_pkey", table.PrimaryKey.Name)
	assert.Equal(t, []string{"id"}, table.PrimaryKey.Columns)
	require.Len(t, table.Indexes, 1)
	assert.Equal(t, "users_email_idx", table.Indexes[0].Name)
	require.Len(t, table.Triggers, 1)
	assert.Equal(t, "touch", table.Triggers[0].Name)

	seq := &ir.Sequence{}
	readYAML(t, filepath.Join(dest, "sequences", "app", "users_id_seq.yaml"), seq)
	assert.Equal(t, "app.users.id", seq.OwnedBy)
	assert.Equal(t, "integer", seq.DataType)

	fn := &ir.Meta{}
	readYAML(t, filepath.Join(dest, "functions", "app", "touch-0.yaml"), fn)
	assert.Equal(t, "touch()", fn.Name)
	assert.Contains(t, fn.SQL, "CREATE FUNCTION app.touch()")

	csv, err := os.ReadFile(filepath.Join(dest, "dml", "app", "users.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,email\n1,alice@example.com\n2,\\N\n", string(csv))

	reader := &ir.Role{}
	readYAML(t, filepath.Join(dest, "roles", "reader.yaml"), reader)
	assert.Equal(t, "read only", reader.Comment)
	require.NotNil(t, reader.Grants)
	assert.Equal(t, []string{"SELECT"}, reader.Grants.Tables["app.users"])

	writer := &ir.Role{}
	readYAML(t, filepath.Join(dest, "users", "writer.yaml"), writer)
	assert.True(t, writer.HasOption("LOGIN"))
	require.NotNil(t, writer.Grants)
	assert.Equal(t, []string{"reader"}, writer.Grants.Roles)
	assert.Equal(t, []string{"SELECT", "UPDATE"}, writer.Grants.Columns["app.users.email"])
	require.Len(t, writer.Settings, 1)
	assert.Equal(t, "search_path", writer.Settings[0].Name)

	remaining := []*archive.Entry{}
	readYAML(t, filepath.Join(dest, "remaining.yaml"), &remaining)
	require.Len(t, remaining, 1)
	assert.Equal(t, "POLICY", remaining[0].Desc)
	assert.Equal(t, "users p", remaining[0].Tag)
}

func TestGenerate_WithoutRoles(t *testing.T) {
	conf := testConfig()
	conf.SaveRemaining = true
	dest := generate(t, conf, plainDump, "")

	assert.NoFileExists(t, filepath.Join(dest, "roles", "reader.yaml"))
	remaining := []*archive.Entry{}
	readYAML(t, filepath.Join(dest, "remaining.yaml"), &remaining)
	descs := []string{}
	for _, e := range remaining {
		descs = append(descs, e.Desc)
	}
	assert.ElementsMatch(t, []string{"POLICY", "ACL"}, descs)
}

func TestGenerate_Switches(t *testing.T) {
	conf := testConfig()
	conf.NoOwner = true
	conf.NoPrivileges = true
	conf.Ignore = map[string]bool{
		filepath.Join("functions", "app", "touch-0.yaml"): true,
		filepath.Join("dml", "app", "users.csv"):          true,
	}
	dest := generate(t, conf, plainDump, rolesDump)

	assert.NoFileExists(t, filepath.Join(dest, "functions", "app", "touch-0.yaml"))
	assert.NoFileExists(t, filepath.Join(dest, "dml", "app", "users.csv"))
	assert.NoFileExists(t, filepath.Join(dest, "remaining.yaml"))

	table := &ir.Table{}
	readYAML(t, filepath.Join(dest, "tables", "app", "users.yaml"), table)
	assert.Empty(t, table.Owner)

	reader := &ir.Role{}
	readYAML(t, filepath.Join(dest, "roles", "reader.yaml"), reader)
	assert.Nil(t, reader.Grants)
}

func TestGenerate_ExistingDestination(t *testing.T) {
	dest := t.TempDir()
	err := lib.NewGenerator(testConfig(), loadDump(t, plainDump), dest).Run()
	assert.Equal(t, lib.ExitInvalidAction, exitCode(t, err))

	conf := testConfig()
	conf.Force = true
	require.NoError(t, lib.NewGenerator(conf, loadDump(t, plainDump), dest).Run())
	assert.FileExists(t, filepath.Join(dest, "tables", "app", "users.yaml"))
}

func TestGenerate_Gitkeep(t *testing.T) {
	conf := testConfig()
	conf.Gitkeep = true
	dest := generate(t, conf, plainDump, "")
	assert.NoFileExists(t, filepath.Join(dest, "tables", "app", ".gitkeep"))
	assert.NoFileExists(t, filepath.Join(dest, "tables", ".gitkeep"))
	assert.FileExists(t, filepath.Join(dest, "views", ".gitkeep"))

	conf = testConfig()
	conf.RemoveEmptyDirs = true
	dest = generate(t, conf, plainDump, "")
	assert.NoDirExists(t, filepath.Join(dest, "views"))
	assert.DirExists(t, filepath.Join(dest, "tables", "app"))
}

func TestGenerateThenBuild(t *testing.T) {
	conf := testConfig()
	conf.NoOwner = true
	dest := generate(t, conf, `--
-- Name: app; Type: SCHEMA; Schema: -; Owner: owner
--

CREATE SCHEMA app;

--
-- Name: users; Type: TABLE; Schema: app; Owner: owner
--

CREATE TABLE app.users (
    id integer NOT NULL,
    email text
);

--
-- Data for Name: users; Type: TABLE DATA; Schema: app; Owner: owner
--

COPY app.users (id, email) FROM stdin;
1	alice@example.com
\.

--
-- Name: users users_pkey; Type: CONSTRAINT; Schema: app; Owner: owner
--

ALTER TABLE ONLY app.users
    ADD CONSTRAINT users_pkey PRIMARY KEY (id);
`, "")

	a, err := lib.Build(testConfig(), dest, "")
	require.NoError(t, err)
	table := a.Lookup("TABLE", "app", "users")
	require.NotNil(t, table)
	assert.Contains(t, table.Defn, "PRIMARY KEY")
	data := a.Lookup(archive.DescTableData, "app", "users")
	require.NotNil(t, data)
	require.Len(t, data.Data.Rows, 1)
	assert.Equal(t, "alice@example.com", *data.Data.Rows[0][1])
}

const crossSchemaDump = `--
-- Name: app; Type: SCHEMA; Schema: -; Owner: owner
--

CREATE SCHEMA app;

--
-- Name: mood; Type: TYPE; Schema: app; Owner: owner
--

CREATE TYPE app.mood AS ENUM (
    'happy',
    'sad'
);

--
-- Name: email; Type: DOMAIN; Schema: public; Owner: owner
--

CREATE DOMAIN public.email AS text;

--
-- Name: users; Type: TABLE; Schema: app; Owner: owner
--

CREATE TABLE app.users (
    id integer NOT NULL,
    mood app.mood
);

--
-- Name: score(app.users); Type: FUNCTION; Schema: app; Owner: owner
--

CREATE FUNCTION app.score(app.users) RETURNS integer
    LANGUAGE sql
    AS $$SELECT 1$$;

--
-- Name: audit; Type: TABLE; Schema: public; Owner: owner
--

CREATE TABLE public.audit (
    id integer,
    email public.email
);

--
-- Name: v; Type: VIEW; Schema: public; Owner: owner
--

CREATE VIEW public.v AS
 SELECT users.id,
    audit.email
   FROM (app.users
     JOIN public.audit ON ((audit.id = users.id)));
`

func TestGenerateThenBuild_DependencyOrder(t *testing.T) {
	conf := testConfig()
	conf.NoOwner = true
	dest := generate(t, conf, crossSchemaDump, "")

	view := &ir.Meta{}
	readYAML(t, filepath.Join(dest, "views", "public", "v.yaml"), view)
	assert.ElementsMatch(t, []ir.Dependency{
		{Kind: ir.KindTable, Name: "app.users"},
		{Kind: ir.KindTable, Name: "public.audit"},
	}, view.Dependencies)

	users := &ir.Table{}
	readYAML(t, filepath.Join(dest, "tables", "app", "users.yaml"), users)
	assert.Equal(t, []ir.Dependency{{Kind: ir.KindType, Name: "app.mood"}}, users.Dependencies)

	a, err := lib.Build(testConfig(), dest, "")
	require.NoError(t, err)

	pos := map[int]int{}
	for i, e := range a.Entries() {
		pos[e.ID] = i
	}
	for _, e := range a.Entries() {
		for _, dep := range e.Dependencies {
			require.Contains(t, pos, dep)
			assert.Lessf(t, pos[dep], pos[e.ID], "%s %s.%s is ahead of its dependency %d", e.Desc, e.Namespace, e.Tag, dep)
		}
	}

	at := func(desc, namespace, tag string) int {
		for i, e := range a.Entries() {
			if e.Desc == desc && e.Namespace == namespace && strings.HasPrefix(e.Tag, tag) {
				return i
			}
		}
		t.Fatalf("no %s %s.%s entry", desc, namespace, tag)
		return -1
	}
	assert.Less(t, at("SCHEMA", "", "app"), at("TYPE", "app", "mood"))
	assert.Less(t, at("TYPE", "app", "mood"), at("TABLE", "app", "users"))
	assert.Less(t, at("DOMAIN", "public", "email"), at("TABLE", "public", "audit"))
	assert.Less(t, at("TABLE", "app", "users"), at("FUNCTION", "app", "score"))
	assert.Less(t, at("TABLE", "app", "users"), at("VIEW", "public", "v"))
	assert.Less(t, at("TABLE", "public", "audit"), at("VIEW", "public", "v"))
}

func TestReadIgnoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore")
	require.NoError(t, os.WriteFile(path, []byte("# skip these\ntables/app/users.yaml\n\n  dml/app/users.csv  \n"), 0o644))
	ignore, err := lib.ReadIgnoreFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		filepath.Join("tables", "app", "users.yaml"): true,
		filepath.Join("dml", "app", "users.csv"):     true,
	}, ignore)

	_, err = lib.ReadIgnoreFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
