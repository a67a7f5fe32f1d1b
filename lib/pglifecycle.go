package lib

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dbsteward/pglifecycle/lib/config"
)

// Process exit codes
const (
	ExitOK              = 0
	ExitInvalidAction   = 1
	ExitMissingArgument = 2
	ExitSubprocess      = 3
	ExitBuildFailure    = 4
)

// ExitError carries the process exit code for a failed run
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type Args = config.Args

type PGLifecycle struct {
	logger zerolog.Logger
	slog   *slog.Logger
	out    io.Writer
}

// NewPGLifecycle logs to stderr and writes usage to out
func NewPGLifecycle(out io.Writer) *PGLifecycle {
	self := &PGLifecycle{
		logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
		out:    out,
	}
	self.slog = slog.New(newLogHandler(&self.logger))
	return self
}

func (self *PGLifecycle) config() Config {
	return Config{Logger: self.slog}
}

// Run parses argv, runs the selected subcommand and returns the process
// exit code
func (self *PGLifecycle) Run(argv []string) int {
	args := &Args{}
	parser, err := arg.NewParser(arg.Config{Program: "pglifecycle"}, args)
	if err != nil {
		self.Error("%v", err)
		return ExitInvalidAction
	}
	switch err := parser.Parse(argv); {
	case err == arg.ErrHelp:
		parser.WriteHelp(self.out)
		return ExitOK
	case err == arg.ErrVersion:
		fmt.Fprintln(self.out, args.Version())
		return ExitOK
	case err != nil:
		parser.WriteUsage(self.out)
		self.Error("%v", err)
		return ExitMissingArgument
	}
	self.setVerbosity(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case args.Build != nil:
		err = self.doBuild(args.Build)
	case args.Generate != nil:
		err = self.doGenerate(ctx, args.Generate)
	default:
		parser.WriteUsage(self.out)
		self.Error("no action specified, use build or generate")
		return ExitInvalidAction
	}
	if err != nil {
		var exit *ExitError
		if errors.As(err, &exit) {
			self.Error("%v", exit.Err)
			return exit.Code
		}
		self.Error("%v", err)
		return ExitInvalidAction
	}
	self.Notice("Done")
	return ExitOK
}

func (self *PGLifecycle) doBuild(cmd *config.BuildCmd) error {
	self.Info("Building %s", cmd.Project)
	if cmd.Destination != "" && !strings.EqualFold(filepath.Ext(cmd.Destination), ".sql") {
		self.Warning("%s will be a pglifecycle container, which pg_restore cannot read", cmd.Destination)
	}
	_, err := Build(self.config(), cmd.Project, cmd.Destination)
	return err
}

func (self *PGLifecycle) Error(s string, args ...interface{}) {
	self.logger.Error().Msgf(s, args...)
}
func (self *PGLifecycle) Warning(s string, args ...interface{}) {
	self.logger.Warn().Msgf(s, args...)
}
func (self *PGLifecycle) Notice(s string, args ...interface{}) {
	self.logger.Info().Msgf(s, args...)
}
func (self *PGLifecycle) Info(s string, args ...interface{}) {
	self.logger.Debug().Msgf(s, args...)
}
func (self *PGLifecycle) Trace(s string, args ...interface{}) {
	self.logger.Trace().Msgf(s, args...)
}

func (self *PGLifecycle) setVerbosity(args *Args) {
	// remember, lower level is higher verbosity
	// we're abusing the fact that zerolog.LogLevel is defined as an int8
	level := zerolog.InfoLevel

	if args.Debug {
		level = zerolog.TraceLevel
	}

	for _, v := range args.Verbose {
		if v {
			level -= 1
		} else {
			level += 1
		}
	}
	for _, q := range args.Quiet {
		if q {
			level += 1
		} else {
			level -= 1
		}
	}

	// clamp it to valid values
	if level > zerolog.PanicLevel {
		level = zerolog.PanicLevel
	}
	if level < zerolog.TraceLevel {
		level = zerolog.TraceLevel
	}

	self.logger = self.logger.Level(level)
}
