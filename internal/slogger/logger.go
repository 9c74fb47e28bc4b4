package slogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu            sync.RWMutex
	programLevel  = new(slog.LevelVar)
	defaultLogger = slog.New(defaultHandlerFactory.createHandler("text", os.Stderr, programLevel, ""))
)

// SetOutput redirects the default logger to w, rendering in format
// ("text" or "json"); used both by Init and directly by tests that want a
// buffer instead of a file.
func SetOutput(w io.Writer, format string) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = slog.New(defaultHandlerFactory.createHandler(format, w, programLevel, ""))
}

// SetLevel gates subsequent log calls at severity sev and above.
func SetLevel(sev Severity) {
	mu.Lock()
	defer mu.Unlock()
	programLevel.Set(sev.level())
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func Tracef(format string, v ...any) {
	logger().Log(context.Background(), severityLevels[Trace], fmt.Sprintf(format, v...))
}
func Debugf(format string, v ...any) { logger().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { logger().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { logger().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { logger().Error(fmt.Sprintf(format, v...)) }
