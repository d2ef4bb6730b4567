package services

import "context"

type contextKey struct{ name string }

var (
	runIDKey = contextKey{"run_id"}
	stageKey = contextKey{"stage"}
	sideKey  = contextKey{"side"}
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRunID tags ctx with the comparison run identifier. Blank IDs leave ctx unchanged.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier set by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, runIDKey)
}

// WithStage tags ctx with the comparison stage (digest, probe, fingerprint...).
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithSide tags ctx with the video being processed, "reference" or "evidence".
func WithSide(ctx context.Context, side string) context.Context {
	return withString(ctx, sideKey, side)
}

func SideFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, sideKey)
}
