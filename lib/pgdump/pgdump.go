// Package pgdump runs pg_dump and pg_dumpall to capture a database for
// project generation.
package pgdump

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Options are the connection and filtering settings shared by both
// commands
type Options struct {
	Host             string
	Port             uint
	DBName           string
	Username         string
	Password         string
	Role             string
	NoOwner          bool
	NoPrivileges     bool
	NoSecurityLabels bool
	NoTablespaces    bool
}

// CommandError is a dump command that exited unsuccessfully
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Command, e.ExitCode, e.Stderr)
}

func (self *Options) connectionArgs() []string {
	args := []string{}
	if self.Username != "" {
		args = append(args, "-U", self.Username)
	}
	if self.Host != "" {
		args = append(args, "-h", self.Host)
	}
	if self.Port != 0 {
		args = append(args, "-p", strconv.FormatUint(uint64(self.Port), 10))
	}
	return args
}

// DumpCommand is the pg_dump invocation writing a schema only plain
// script to path
func (self *Options) DumpCommand(path string) []string {
	cmd := append([]string{"pg_dump"}, self.connectionArgs()...)
	cmd = append(cmd, "-d", self.DBName, "-f", path, "-Fp", "--schema-only")
	for _, opt := range []struct {
		set  bool
		flag string
	}{
		{self.NoOwner, "--no-owner"},
		{self.NoPrivileges, "--no-privileges"},
		{self.NoSecurityLabels, "--no-security-labels"},
		{self.NoTablespaces, "--no-tablespaces"},
	} {
		if opt.set {
			cmd = append(cmd, opt.flag)
		}
	}
	if self.Role != "" {
		cmd = append(cmd, "--role", self.Role)
	}
	return cmd
}

// RolesCommand is the pg_dumpall invocation writing the role definitions
// to path
func (self *Options) RolesCommand(path string) []string {
	cmd := append([]string{"pg_dumpall"}, self.connectionArgs()...)
	cmd = append(cmd, "-f", path, "-r")
	if self.Role != "" {
		cmd = append(cmd, "--role", self.Role)
	}
	return cmd
}

// Dump writes the database schema to path
func Dump(ctx context.Context, logger *slog.Logger, opts *Options, path string) error {
	logger.Debug("dumping database", "host", opts.Host, "port", opts.Port, "dbname", opts.DBName, "path", path)
	return run(ctx, logger, opts, opts.DumpCommand(path))
}

// DumpRoles writes the cluster's roles to path
func DumpRoles(ctx context.Context, logger *slog.Logger, opts *Options, path string) error {
	logger.Debug("dumping roles", "host", opts.Host, "port", opts.Port, "path", path)
	return run(ctx, logger, opts, opts.RolesCommand(path))
}

func run(ctx context.Context, logger *slog.Logger, opts *Options, command []string) error {
	bin, err := exec.LookPath(command[0])
	if err != nil {
		return errors.Wrapf(err, "%s is not installed or not in PATH", command[0])
	}
	logger.Debug("executing", "command", strings.Join(command, " "))
	cmd := exec.CommandContext(ctx, bin, command[1:]...)
	cmd.Env = os.Environ()
	if opts.Password != "" {
		cmd.Env = append(cmd.Env, "PGPASSWORD="+opts.Password)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &CommandError{
			Command:  command[0],
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return nil
}
