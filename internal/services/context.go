package services

import "context"

// Each context value gets its own unexported key type.
type (
	jobIDKey struct{}
	stageKey struct{}
	runIDKey struct{}
)

// WithJobID tags ctx with the enrichment job being processed.
func WithJobID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey{}, id)
}

// JobIDFromContext returns the job id set by WithJobID.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(jobIDKey{}).(int64)
	return id, ok
}

// WithStage tags ctx with a pipeline stage such as "scan", "group" or
// "resolve". Blank stages leave ctx unchanged.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey{}, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey{})
}

// WithRunID tags ctx with the scan run id used to correlate log lines.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey{}, id)
}

func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey{})
}

func withString(ctx context.Context, key any, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key any) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
