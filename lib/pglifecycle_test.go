package lib_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsteward/pglifecycle/lib"
	"github.com/dbsteward/pglifecycle/lib/config"
)

func run(args ...string) (int, string) {
	out := &bytes.Buffer{}
	code := lib.NewPGLifecycle(out).Run(args)
	return code, out.String()
}

func TestRun_Usage(t *testing.T) {
	code, out := run("--help")
	assert.Equal(t, lib.ExitOK, code)
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "generate")

	code, out = run("--version")
	assert.Equal(t, lib.ExitOK, code)
	assert.Contains(t, out, config.Version)

	code, _ = run()
	assert.Equal(t, lib.ExitInvalidAction, code)

	code, _ = run("build")
	assert.Equal(t, lib.ExitMissingArgument, code)

	code, _ = run("--bogus")
	assert.Equal(t, lib.ExitMissingArgument, code)
}

func TestRun_Build(t *testing.T) {
	root := sampleProject(t)
	dest := filepath.Join(t.TempDir(), "app.dump")
	code, _ := run("-q", "build", root, dest)
	assert.Equal(t, lib.ExitOK, code)
	assert.FileExists(t, dest)

	code, _ = run("-q", "build", t.TempDir())
	assert.Equal(t, lib.ExitBuildFailure, code)
}

func TestRun_BuildDefaultsToPlainSQL(t *testing.T) {
	root := sampleProject(t)
	code, _ := run("-q", "build", root)
	assert.Equal(t, lib.ExitOK, code)

	raw, err := os.ReadFile(filepath.Join(root, "app.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "CREATE TABLE app.users")
	assert.NoFileExists(t, filepath.Join(root, "app.dump"))
}

func TestRun_Generate(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "app.sql")
	require.NoError(t, os.WriteFile(dump, []byte(plainDump), 0o644))
	dest := filepath.Join(t.TempDir(), "project")

	code, _ := run("-q", "generate", dest)
	assert.Equal(t, lib.ExitMissingArgument, code)

	code, _ = run("-q", "generate", "--dump-file", dump, dest)
	assert.Equal(t, lib.ExitOK, code)
	assert.FileExists(t, filepath.Join(dest, "tables", "app", "users.yaml"))

	code, _ = run("-q", "generate", "--dump-file", dump, dest)
	assert.Equal(t, lib.ExitInvalidAction, code)

	code, _ = run("-q", "generate", "--force", "--dump-file", filepath.Join(t.TempDir(), "missing.dump"), dest)
	assert.Equal(t, lib.ExitInvalidAction, code)
}
