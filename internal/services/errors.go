package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
)

// Wrap tags err with marker and prefixes it with "stage: operation: message",
// skipping blank parts. A nil marker is treated as ErrTransient and a nil err
// yields a leaf error carrying only the marker.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinDetail(stage, operation, message)
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// Retryable reports whether a failed enrichment job should be scheduled again.
// Validation and configuration failures never succeed on retry; everything
// else, including unmarked errors, is treated as transient.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// FailureKind returns a short label for the marker carried by err.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrExternalService):
		return "external_service"
	default:
		return "transient"
	}
}

func joinDetail(parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "unspecified failure"
	}
	return strings.Join(kept, ": ")
}
