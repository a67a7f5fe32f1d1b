package pgdump_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsteward/pglifecycle/lib/pgdump"
)

func TestDumpCommand(t *testing.T) {
	opts := &pgdump.Options{
		Host:          "db",
		Port:          5433,
		DBName:        "app",
		Username:      "admin",
		Role:          "owner",
		NoOwner:       true,
		NoTablespaces: true,
	}
	assert.Equal(t, []string{
		"pg_dump", "-U", "admin", "-h", "db", "-p", "5433",
		"-d", "app", "-f", "/tmp/out.sql", "-Fp", "--schema-only",
		"--no-owner", "--no-tablespaces", "--role", "owner",
	}, opts.DumpCommand("/tmp/out.sql"))
}

func TestRolesCommand(t *testing.T) {
	opts := &pgdump.Options{DBName: "app", Username: "admin"}
	assert.Equal(t, []string{"pg_dumpall", "-U", "admin", "-f", "/tmp/roles.sql", "-r"},
		opts.RolesCommand("/tmp/roles.sql"))
}

func TestDump_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := pgdump.Dump(context.Background(), logger, &pgdump.Options{DBName: "app"}, "/tmp/out.sql")
	assert.ErrorContains(t, err, "pg_dump is not installed")
}
