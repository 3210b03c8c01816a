package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

func consoleTime(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}

// plainValue renders v without quoting, for header fields.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return consoleTime(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// quotedValue renders v for a key=value pair, quoting when the text would
// otherwise be ambiguous.
func quotedValue(v slog.Value) string {
	s := plainValue(v)
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
