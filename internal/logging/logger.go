// Package logging builds the process-wide structured logger and bridges the
// application shell's own log output into it.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"deskweb/internal/config"
)

// Options describe how to configure a logger instance.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New creates a structured logger backed by Go's slog package.
func New(opts Options) (*slog.Logger, error) {
	lvl, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceTimeAttr,
	}

	format, err := config.NormalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(out, &handlerOpts)
	default:
		handler = slog.NewTextHandler(out, &handlerOpts)
	}

	return slog.New(handler), nil
}

func parseLevel(level string) (slog.Leveler, error) {
	trimmed, err := config.NormalizeLogLevel(level)
	if err != nil {
		return nil, err
	}

	var lvl slog.Level
	switch trimmed {
	case "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unhandled log level %q", trimmed)
	}

	var levelVar slog.LevelVar
	levelVar.Set(lvl)
	return &levelVar, nil
}

func replaceTimeAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.TimeKey && attr.Value.Kind() == slog.KindTime {
		attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
	}
	return attr
}

// WailsLevel maps a configured level onto the application shell's levels.
func WailsLevel(level string) logger.LogLevel {
	normalized, err := config.NormalizeLogLevel(level)
	if err != nil {
		return logger.INFO
	}
	switch normalized {
	case "debug":
		return logger.DEBUG
	case "warn":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// Wails adapts an slog logger to the application shell's logger interface
// so its runtime messages land in the same stream.
type Wails struct {
	log *slog.Logger
}

// NewWails wraps l. The shell's messages are tagged with component=wails.
func NewWails(l *slog.Logger) *Wails {
	if l == nil {
		l = slog.Default()
	}
	return &Wails{log: l.With("component", "wails")}
}

func (w *Wails) Print(message string)   { w.log.Info(strings.TrimSpace(message)) }
func (w *Wails) Trace(message string)   { w.log.Debug(strings.TrimSpace(message), "trace", true) }
func (w *Wails) Debug(message string)   { w.log.Debug(strings.TrimSpace(message)) }
func (w *Wails) Info(message string)    { w.log.Info(strings.TrimSpace(message)) }
func (w *Wails) Warning(message string) { w.log.Warn(strings.TrimSpace(message)) }
func (w *Wails) Error(message string)   { w.log.Error(strings.TrimSpace(message)) }

// Fatal logs and exits, as the shell's default logger does.
func (w *Wails) Fatal(message string) {
	w.log.Error(strings.TrimSpace(message), "fatal", true)
	os.Exit(1)
}

var _ logger.Logger = (*Wails)(nil)
