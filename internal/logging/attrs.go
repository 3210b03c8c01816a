package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr is the attribute type accepted by every helper in this package.
type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Error records err under the "error" key; a nil error is written as "<nil>".
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func toArgs(attrs []Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

// NewComponentLogger tags logger with a component name. A nil logger yields
// a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const (
	defaultErrorHint = "run 'tonearm logs --grep' with the event type for details"
	defaultImpact    = "processing continues"
)

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Values supplied by the caller win over the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	emit(logger, slog.LevelWarn, msg, eventType, attrs, true)
}

// ErrorWithContext logs an error that always carries event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	emit(logger, slog.LevelError, msg, eventType, attrs, false)
}

func emit(logger *slog.Logger, level slog.Level, msg, eventType string, attrs []Attr, withImpact bool) {
	if logger == nil {
		return
	}
	var hasEvent, hasHint, hasImpact bool
	for _, a := range attrs {
		switch a.Key {
		case FieldEventType:
			hasEvent = true
		case FieldErrorHint:
			hasHint = true
		case FieldImpact:
			hasImpact = true
		}
	}
	if !hasEvent {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasHint {
		attrs = append(attrs, String(FieldErrorHint, defaultErrorHint))
	}
	if withImpact && !hasImpact {
		attrs = append(attrs, String(FieldImpact, defaultImpact))
	}
	logger.Log(context.Background(), level, msg, toArgs(attrs)...)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool { return false }

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }

func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h discardHandler) WithGroup(string) slog.Handler { return h }
