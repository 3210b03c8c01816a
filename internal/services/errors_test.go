package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tonearm/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "resolve", "search", "musicbrainz request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"resolve", "search", "musicbrainz request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", services.Wrap(services.ErrValidation, "resolve", "decode", "bad payload", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "resolve", "", "no client", nil), false},
		{"external", services.Wrap(services.ErrExternalService, "resolve", "search", "503", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "resolve", "search", "", context.DeadlineExceeded), true},
		{"unmarked", errors.New("disk full"), true},
		{"canceled", fmt.Errorf("shutting down: %w", context.Canceled), false},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFailureKind(t *testing.T) {
	if kind := services.FailureKind(services.Wrap(services.ErrTimeout, "", "", "", nil)); kind != "timeout" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind := services.FailureKind(context.DeadlineExceeded); kind != "timeout" {
		t.Fatalf("deadline should map to timeout, got %q", kind)
	}
	if kind := services.FailureKind(errors.New("x")); kind != "transient" {
		t.Fatalf("unexpected default kind %q", kind)
	}
}
