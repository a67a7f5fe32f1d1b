package lib_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsteward/pglifecycle/lib"
	"github.com/dbsteward/pglifecycle/lib/archive"
)

func testConfig() lib.Config {
	return lib.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func writeFile(t *testing.T, root, rel, content string) {
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sampleProject(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "project.yaml", "name: app\nsuperuser: postgres\n")
	writeFile(t, root, "schemata/app.yaml", "name: app\n")
	writeFile(t, root, "sequences/app/users_id_seq.yaml", "name: users_id_seq\nowned_by: app.users.id\n")
	writeFile(t, root, "tables/app/users.yaml", `name: users
comment: people
columns:
  - name: id
    data_type: integer
    nullable: false
  - name: name
    data_type: text
primary_key:
  columns: [id]
`)
	writeFile(t, root, "roles/reader.yaml", "name: reader\ngrants:\n  tables:\n    app.users: [SELECT]\n")
	writeFile(t, root, "dml/app/users.csv", "id,name\n1,alice\n7,bob\n")
	return root
}

func exitCode(t *testing.T, err error) int {
	var exit *lib.ExitError
	require.ErrorAs(t, err, &exit)
	return exit.Code
}

func TestBuild(t *testing.T) {
	root := sampleProject(t)
	dest := filepath.Join(t.TempDir(), "app.dump")

	a, err := lib.Build(testConfig(), root, dest)
	require.NoError(t, err)
	assert.Equal(t, "app", a.DBName)
	assert.FileExists(t, dest)

	for _, e := range a.Entries() {
		if e.ID < archive.FirstID {
			assert.Contains(t, []string{archive.DescEncoding, archive.DescStdStrings, archive.DescSearchPath}, e.Desc)
		}
	}

	table := a.Lookup("TABLE", "app", "users")
	require.NotNil(t, table)
	assert.Contains(t, table.Defn, "CREATE TABLE app.users")
	assert.NotNil(t, a.Lookup("COMMENT", "app", "TABLE app.users"))
	assert.NotNil(t, a.Lookup("ACL", "app", "TABLE users"))

	data := a.Lookup(archive.DescTableData, "app", "users")
	require.NotNil(t, data)
	assert.Equal(t, archive.SectionData, data.Section)
	assert.Equal(t, []int{table.ID}, data.Dependencies)
	require.NotNil(t, data.Data)
	assert.Equal(t, []string{"id", "name"}, data.Data.Columns)
	assert.Len(t, data.Data.Rows, 2)

	restart := a.Lookup("SEQUENCE SET", "app", "users_id_seq")
	require.NotNil(t, restart)
	assert.Equal(t, "ALTER SEQUENCE app.users_id_seq RESTART WITH 8;\n", restart.Defn)
	assert.Contains(t, restart.Dependencies, data.ID)

	loaded, err := archive.Load(dest)
	require.NoError(t, err)
	assert.Equal(t, len(a.Entries()), len(loaded.Entries()))
}

func TestBuild_DefaultDestination(t *testing.T) {
	root := sampleProject(t)
	_, err := lib.Build(testConfig(), root, "")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "app.sql"))
	assert.NoFileExists(t, filepath.Join(root, "app.dump"))
}

func TestBuild_PlainOutput(t *testing.T) {
	root := sampleProject(t)
	dest := filepath.Join(t.TempDir(), "app.sql")
	_, err := lib.Build(testConfig(), root, dest)
	require.NoError(t, err)

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "COPY app.users (id, name) FROM stdin;\n1\talice\n7\tbob\n\\.\n")
}

func TestBuild_Errors(t *testing.T) {
	root := sampleProject(t)
	_, err := lib.Build(testConfig(), root, filepath.Join(t.TempDir(), "missing", "app.dump"))
	assert.Equal(t, lib.ExitInvalidAction, exitCode(t, err))

	writeFile(t, root, "dml/app/ghosts.csv", "id\n1\n")
	_, err = lib.Build(testConfig(), root, "")
	assert.Equal(t, lib.ExitBuildFailure, exitCode(t, err))

	_, err = lib.Build(testConfig(), t.TempDir(), "")
	assert.Equal(t, lib.ExitBuildFailure, exitCode(t, err))
}
