// Package slogger is the core's logging façade: package-level Tracef/
// Debugf/Infof/Warnf/Errorf calls backed by log/slog, a severity ladder
// (TRACE, DEBUG, INFO, WARNING, ERROR, OFF) matching internal/cfg's
// Severity type, and a choice of the mount tool's own text or json render.
package slogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Severity mirrors cfg.Severity without importing internal/cfg, so this
// package has no dependency on the config layer's binding machinery.
type Severity string

const (
	Trace   Severity = "TRACE"
	Debug   Severity = "DEBUG"
	Info    Severity = "INFO"
	Warning Severity = "WARNING"
	Error   Severity = "ERROR"
	Off     Severity = "OFF"
)

// severityLevels maps each Severity to the slog.Level it is gated at. TRACE
// sits one step below slog's built-in Debug since the core needs a level
// finer than slog ships with; OFF is set above any level ever logged.
var severityLevels = map[Severity]slog.Level{
	Trace:   slog.LevelDebug - 4,
	Debug:   slog.LevelDebug,
	Info:    slog.LevelInfo,
	Warning: slog.LevelWarn,
	Error:   slog.LevelError,
	Off:     slog.LevelError + 4,
}

func (s Severity) level() slog.Level {
	if lvl, ok := severityLevels[s]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// handlerFactory builds the slog.Handler for a given output format, mirroring
// the mount tool's defaultLoggerFactory.createJsonOrTextHandler.
type handlerFactory struct{}

var defaultHandlerFactory = handlerFactory{}

func (handlerFactory) createHandler(format string, w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	if format == "json" {
		return &jsonHandler{w: w, level: level, prefix: prefix}
	}
	return &textHandler{w: w, level: level, prefix: prefix}
}

// textHandler renders `time="..." severity=X message="..."`, matching the
// mount tool's own text format exactly (including the quoting).
type textHandler struct {
	w      io.Writer
	level  *slog.LevelVar
	prefix string
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n",
		r.Time.Format(time.RFC3339Nano), severityName(r.Level), h.prefix+r.Message)
	return err
}

func (h *textHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *textHandler) WithGroup(_ string) slog.Handler       { return h }

// jsonHandler renders `{"timestamp":{"seconds":N,"nanos":N},"severity":"X","message":"..."}`.
type jsonHandler struct {
	w      io.Writer
	level  *slog.LevelVar
	prefix string
}

func (h *jsonHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *jsonHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintf(h.w, "{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
		r.Time.Unix(), r.Time.Nanosecond(), severityName(r.Level), h.prefix+r.Message)
	return err
}

func (h *jsonHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *jsonHandler) WithGroup(_ string) slog.Handler       { return h }

func severityName(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return string(Trace)
	case level < slog.LevelInfo:
		return string(Debug)
	case level < slog.LevelWarn:
		return string(Info)
	case level < slog.LevelError:
		return string(Warning)
	default:
		return string(Error)
	}
}
