package slogger

import (
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateConfig carries the rotating-file-sink knobs the caller wants; it is
// a plain mirror of cfg.LogRotateLoggingConfig kept dependency-free here so
// slogger never imports internal/cfg.
type RotateConfig struct {
	MaxFileSizeMb   int
	BackupFileCount int
	Compress        bool
}

// Init wires the default logger per the resolved configuration: severity
// gates output, format picks text vs json, and a non-empty file path routes
// through a lumberjack-backed AsyncLogger instead of stderr. The returned
// closer must be called at shutdown to drain the async queue and release
// the file handle.
func Init(severity Severity, format, file string, rotate RotateConfig) (func() error, error) {
	SetLevel(severity)

	if file == "" {
		SetOutput(os.Stderr, format)
		return func() error { return nil }, nil
	}

	lj := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    rotate.MaxFileSizeMb,
		MaxBackups: rotate.BackupFileCount,
		Compress:   rotate.Compress,
	}
	async := NewAsyncLogger(lj, 1024)
	SetOutput(async, format)
	return async.Close, nil
}
