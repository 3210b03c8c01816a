package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// timeLayout is fixed width so that lexical order of stored values matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime reads a stored timestamp.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// NullableString maps the empty string to SQL NULL.
func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// NullableTime maps a nil time to SQL NULL.
func NullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return FormatTime(*value)
}

// NullableInt64 maps zero to SQL NULL.
func NullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

// Placeholders returns "?,?,..." with count markers.
func Placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
