package logger

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// instance is read from every goroutine that logs and swapped by Init.
var instance atomic.Pointer[log.Logger]

type Options struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// Init configures the process logger. Calling it again replaces the previous logger.
func Init(opts Options) {
	instance.Store(newLogger(opts))
}

func newLogger(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	formatter := log.TextFormatter
	if opts.Format == "json" {
		formatter = log.JSONFormatter
	}

	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}

	return log.NewWithOptions(out, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
}

// get returns the configured logger, installing a default one when Init has
// not run. A concurrent Init always wins over the default.
func get() *log.Logger {
	if l := instance.Load(); l != nil {
		return l
	}
	instance.CompareAndSwap(nil, newLogger(Options{Level: "info", Format: "text"}))
	return instance.Load()
}

func Debug(msg string, keyvals ...any) {
	get().Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...any) {
	get().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...any) {
	get().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...any) {
	get().Error(msg, keyvals...)
}
