package project_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsteward/pglifecycle/lib/inventory"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/project"
	"github.com/dbsteward/pglifecycle/lib/util"
	"github.com/dbsteward/pglifecycle/lib/validation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, root, rel, content string) {
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func load(t *testing.T, root string) (*ir.Project, *inventory.Inventory, error) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	p, err := project.Load(discardLogger(), root, inv)
	return p, inv, err
}

func TestFilePath(t *testing.T) {
	cases := []struct {
		kind   ir.Kind
		schema string
		name   string
		want   string
	}{
		{ir.KindTable, "app", "users", "tables/app/users.yaml"},
		{ir.KindTable, "", "users", "tables/public/users.yaml"},
		{ir.KindSchema, "", "app", "schemata/app.yaml"},
		{ir.KindRole, "", "reader", "roles/reader.yaml"},
		{ir.KindFunction, "app", "add(integer, integer)", "functions/app/add-2.yaml"},
		{ir.KindProcedure, "app", "vacuum_all()", "procedures/app/vacuum_all-0.yaml"},
		{ir.KindTextSearchDictionary, "app", "english_stem", "text_search/app.yaml"},
		{ir.KindUserMapping, "", "app", "user_mappings/app.yaml"},
	}
	for _, c := range cases {
		got, err := project.FilePath(c.kind, c.schema, c.name)
		require.NoError(t, err)
		assert.Equal(t, filepath.FromSlash(c.want), got, "%s %s.%s", c.kind, c.schema, c.name)
	}

	_, err := project.FilePath(ir.KindIndex, "app", "users_pkey")
	assert.Error(t, err)

	assert.Equal(t, filepath.FromSlash("dml/public/users.csv"), project.DMLPath("", "users"))
}

func TestLoad_RequiresProjectFile(t *testing.T) {
	root := t.TempDir()
	_, _, err := load(t, root)
	assert.Error(t, err)

	_, _, err = load(t, filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "project.yaml", `# PROJECT: app
---
name: app
superuser: postgres
extensions:
  - name: pgcrypto
    schema: public
languages:
  - name: plpgsql
`)
	writeFile(t, root, "schemata/app.yaml", "name: app\nowner: app\n")
	writeFile(t, root, "functions/app/touch-0.yaml", `name: touch
returns: trigger
language: plpgsql
definition: BEGIN NEW.updated = now(); RETURN NEW; END
`)
	writeFile(t, root, "sequences/app/users_id_seq.yaml", "name: users_id_seq\nowned_by: app.users.id\n")
	writeFile(t, root, "tables/app/users.yaml", `# TABLE: app.users
---
name: users
columns:
  - name: id
    data_type: integer
    nullable: false
  - name: org_id
    data_type: integer
primary_key:
  columns: [id]
foreign_keys:
  - name: users_org_fk
    columns: [org_id]
    references:
      name: orgs
      columns: [id]
indexes:
  - name: users_org_idx
    columns:
      - name: org_id
    comment: lookup by org
triggers:
  - name: touch
    when: BEFORE
    events: [UPDATE]
    for_each: ROW
    function: touch
`)
	writeFile(t, root, "tables/app/orgs.yaml", "name: orgs\ncolumns:\n  - name: id\n    data_type: integer\n")
	writeFile(t, root, "text_search/app.yaml", `schema: app
configurations:
  - name: english
    parser: pg_catalog.default
dictionaries:
  - name: english_stem
    template: snowball
    options:
      language: english
`)
	writeFile(t, root, "user_mappings/app.yaml", `name: app
servers:
  - name: remote
    options:
      user: app
  - name: archive
`)
	writeFile(t, root, "roles/reader.yaml", "name: reader\ngrants:\n  tables:\n    app.users: [SELECT]\n")
	writeFile(t, root, "users/app.yaml", "name: app\noptions: [LOGIN]\n")
	writeFile(t, root, "tables/app/README.txt", "ignored")

	p, inv, err := load(t, root)
	require.NoError(t, err)
	assert.Equal(t, "app", p.Name)
	assert.Equal(t, ir.DefaultEncode, p.Encoding)

	assert.True(t, inv.Has(ir.KindExtension, "", "pgcrypto"))
	assert.True(t, inv.Has(ir.KindProceduralLanguage, "", "plpgsql"))
	assert.True(t, inv.Has(ir.KindSchema, "", "app"))
	assert.True(t, inv.Has(ir.KindFunction, "app", "touch()"))
	assert.True(t, inv.Has(ir.KindTextSearchConfiguration, "app", "english"))
	assert.True(t, inv.Has(ir.KindTextSearchDictionary, "app", "english_stem"))
	assert.True(t, inv.Has(ir.KindUserMapping, "", "app SERVER remote"))
	assert.True(t, inv.Has(ir.KindUserMapping, "", "app SERVER archive"))
	assert.True(t, inv.Has(ir.KindRole, "", "reader"))
	assert.True(t, inv.Has(ir.KindUser, "", "app"))

	users, err := inv.Lookup(ir.KindTable, "app", "users")
	require.NoError(t, err)
	children := inv.Children(users.ID)
	require.Len(t, children, 3)
	assert.Equal(t, ir.KindIndex, children[0].Kind)
	assert.Equal(t, "users_org_idx", children[0].Name)
	assert.Equal(t, "lookup by org", children[0].Comment)
	assert.Equal(t, "users touch", children[1].Name)
	assert.Equal(t, []ir.Dependency{{Kind: ir.KindFunction, Name: "app.touch()"}}, children[1].Dependencies)
	assert.Equal(t, "users users_org_fk", children[2].Name)
	assert.Equal(t, []ir.Dependency{{Kind: ir.KindTable, Name: "app.orgs"}}, children[2].Dependencies)

	ownedBy, err := inv.Lookup(ir.KindSequenceOwnedBy, "app", "users_id_seq")
	require.NoError(t, err)
	assert.Equal(t, []ir.Dependency{
		{Kind: ir.KindTable, Name: "app.users"},
		{Kind: ir.KindSequence, Name: "app.users_id_seq"},
	}, ownedBy.Dependencies)

	mapping, err := inv.Lookup(ir.KindUserMapping, "", "app SERVER remote")
	require.NoError(t, err)
	assert.Contains(t, mapping.Dependencies, ir.Dependency{Kind: ir.KindServer, Name: "remote"})
}

func TestLoad_ReportsEveryBadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "project.yaml", "name: app\n")
	writeFile(t, root, "tables/public/a.yaml", "columns: []\n")
	writeFile(t, root, "tables/public/b.yaml", "name: b\ncolour: blue\n")
	writeFile(t, root, "views/public/v.yaml", "name: v\nquery: SELECT 1\n")
	writeFile(t, root, "views/public/w.yaml", "name: v\nquery: SELECT 2\n")

	_, inv, err := load(t, root)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)

	var verr *validation.Error
	assert.ErrorAs(t, merr.Errors[0], &verr)
	var dup *inventory.DuplicateObjectError
	assert.ErrorAs(t, merr.Errors[2], &dup)

	assert.True(t, inv.Has(ir.KindView, "public", "v"))
}

func TestWriteThenLoad_Table(t *testing.T) {
	root := filepath.Join(t.TempDir(), "app")
	w := project.NewWriter(discardLogger(), root, false)
	require.NoError(t, w.Prepare(false))
	require.NoError(t, w.WriteProject(&ir.Project{Name: "app", Encoding: "UTF8", StdStrings: true}))

	table := &ir.Table{
		Meta: ir.Meta{Name: "users", Schema: "public", Owner: "app", Comment: "people"},
		Columns: []*ir.Column{
			{Name: "id", DataType: "integer", Nullable: util.Ptr(false)},
			{Name: "email", DataType: "text", Comment: "login"},
		},
		PrimaryKey: &ir.KeyConstraint{Name: "users_pkey", Columns: []string{"id"}},
		CheckConstraints: []*ir.CheckConstraint{
			{Name: "email_len", Expression: "length(email) > 3"},
		},
		Indexes: []*ir.Index{{
			Name:    "users_email_idx",
			Columns: []*ir.IndexColumn{{Name: "email"}},
			Where:   "email IS NOT NULL",
		}},
	}
	rel, err := w.Write(ir.KindTable, "public", "users", table)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("tables/public/users.yaml"), rel)

	raw, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# TABLE: public.users\n---\n")

	p, inv, err := load(t, root)
	require.NoError(t, err)
	assert.True(t, p.StdStrings)

	rec, err := inv.Lookup(ir.KindTable, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, "app", rec.Owner)
	assert.Equal(t, "people", rec.Comment)
	assert.Equal(t, table, rec.Attributes)
	assert.True(t, inv.Has(ir.KindIndex, "public", "users_email_idx"))
}

func TestPrepare(t *testing.T) {
	root := filepath.Join(t.TempDir(), "app")
	w := project.NewWriter(discardLogger(), root, true)
	require.NoError(t, w.Prepare(false))
	assert.FileExists(t, filepath.Join(root, "tables", ".gitkeep"))
	assert.FileExists(t, filepath.Join(root, "dml", ".gitkeep"))

	assert.Error(t, w.Prepare(false))
	assert.NoError(t, w.Prepare(true))
}

func TestCleanup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "app")
	w := project.NewWriter(discardLogger(), root, true)
	require.NoError(t, w.Prepare(false))
	_, err := w.Write(ir.KindSchema, "", "app", &ir.Schema{Meta: ir.Meta{Name: "app"}})
	require.NoError(t, err)

	require.NoError(t, w.RemoveUnneededGitkeeps())
	assert.NoFileExists(t, filepath.Join(root, "schemata", ".gitkeep"))
	assert.FileExists(t, filepath.Join(root, "tables", ".gitkeep"))

	require.NoError(t, os.Remove(filepath.Join(root, "tables", ".gitkeep")))
	require.NoError(t, w.RemoveEmptyDirectories())
	assert.NoDirExists(t, filepath.Join(root, "tables"))
	assert.DirExists(t, filepath.Join(root, "schemata"))
}

func TestDML(t *testing.T) {
	root := t.TempDir()
	w := project.NewWriter(discardLogger(), root, false)
	rows := [][]*string{
		{util.Ptr("1"), util.Ptr("a,b")},
		{util.Ptr("2"), nil},
	}
	rel, err := w.WriteDML("public", "users", []string{"id", "note"}, rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("dml/public/users.csv"), rel)
	writeFile(t, root, "dml/app/orgs.csv", "id\n7\n")
	writeFile(t, root, "dml/app/notes.txt", "skipped")

	files, err := project.DMLFiles(root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "app", files[0].Schema)
	assert.Equal(t, "orgs", files[0].Table)
	assert.Equal(t, "users", files[1].Table)

	columns, got, err := project.ReadDML(files[1].Path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "note"}, columns)
	assert.Equal(t, rows, got)

	none, err := project.DMLFiles(filepath.Join(root, "missing"))
	assert.NoError(t, err)
	assert.Empty(t, none)
}
