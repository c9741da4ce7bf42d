package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the structured logger passed through every layer.
// Calls chain: mylog.Action("order_created").Info("Order stored", "order_id", id)
type Logger interface {
	Action(action string) Logger
	With(args ...any) Logger
	WithGroup(name string) Logger

	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
}

type logger struct {
	sl *slog.Logger
}

// New creates a JSON logger for the given service writing to stdout.
func New(service, level string) Logger {
	return NewWithWriter(os.Stdout, service, level)
}

func NewWithWriter(w io.Writer, service, level string) Logger {
	hostname, _ := os.Hostname()

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
			}
			return a
		},
	})

	return &logger{
		sl: slog.New(h).With("service", service, "hostname", hostname),
	}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() Logger {
	return &logger{sl: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *logger) Action(action string) Logger {
	return &logger{sl: l.sl.With("action", action)}
}

func (l *logger) With(args ...any) Logger {
	return &logger{sl: l.sl.With(args...)}
}

func (l *logger) WithGroup(name string) Logger {
	return &logger{sl: l.sl.WithGroup(name)}
}

func (l *logger) Debug(msg string, args ...any) {
	l.sl.Log(context.Background(), slog.LevelDebug, msg, args...)
}

func (l *logger) Info(msg string, args ...any) {
	l.sl.Log(context.Background(), slog.LevelInfo, msg, args...)
}

func (l *logger) Warn(msg string, args ...any) {
	l.sl.Log(context.Background(), slog.LevelWarn, msg, args...)
}

func (l *logger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, slog.Group("error", "msg", err.Error()))
	}
	l.sl.Log(context.Background(), slog.LevelError, msg, args...)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
