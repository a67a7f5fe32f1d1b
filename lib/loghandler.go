package lib

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func newLogHandler(logger *zerolog.Logger) slog.Handler {
	buf := bytes.Buffer{}
	f := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &logHandler{
		logger:    logger,
		formatter: f,
		output:    &buf,
	}
}

// logHandler lets library packages log through slog while the
// application keeps a single zerolog output
type logHandler struct {
	logger    *zerolog.Logger
	formatter slog.Handler
	output    *bytes.Buffer
}

// Enabled always returns true and let zerolog decide
func (h *logHandler) Enabled(_ context.Context, level slog.Level) bool {
	return true
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logHandler{
		logger:    h.logger,
		output:    h.output,
		formatter: h.formatter.WithAttrs(attrs),
	}
}

func (h *logHandler) WithGroup(name string) slog.Handler {
	return &logHandler{
		logger:    h.logger,
		output:    h.output,
		formatter: h.formatter.WithGroup(name),
	}
}

// Handle formats the record with slog's TextHandler, then hands the
// resulting line to zerolog at the matching level. zerolog writes its
// own time and level.
func (h *logHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Time = time.Time{}
	if err := h.formatter.Handle(ctx, r); err != nil {
		return err
	}
	msg := trimPreamble(strings.TrimSpace(h.output.String()))
	h.output.Reset()
	if msg == "" {
		msg = "<<logHandler received empty message>>"
	}
	switch {
	case r.Level < slog.LevelDebug:
		h.logger.Trace().Msg(msg)
	case r.Level < slog.LevelInfo:
		h.logger.Debug().Msg(msg)
	case r.Level < slog.LevelWarn:
		h.logger.Info().Msg(msg)
	case r.Level < slog.LevelError:
		h.logger.Warn().Msg(msg)
	default:
		h.logger.Error().Msg(msg)
	}
	return nil
}

// trimPreamble removes the leading level= pair
func trimPreamble(line string) string {
	if !strings.HasPrefix(line, "level=") {
		return line
	}
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[i+1:]
	}
	return ""
}
