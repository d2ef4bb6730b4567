package logging

import (
	"context"
	"log/slog"

	"trustframe/internal/services"
)

// Standard structured keys shared by every component.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldStage     = "stage"
	// FieldSide names the video a line refers to: reference or evidence.
	FieldSide = "side"
	// FieldEventType classifies a line for filtering, e.g. "cache_miss".
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries services.Classify output for failures.
	FieldErrorKind = "error_kind"
	FieldAlert     = "alert"
)

// ContextFields returns the run, stage and side annotations carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	lookups := []struct {
		key string
		get func(context.Context) (string, bool)
	}{
		{FieldRunID, services.RunIDFromContext},
		{FieldStage, services.StageFromContext},
		{FieldSide, services.SideFromContext},
	}
	var fields []slog.Attr
	for _, l := range lookups {
		if v, ok := l.get(ctx); ok {
			fields = append(fields, slog.String(l.key, v))
		}
	}
	return fields
}

// WithContext returns logger extended with the fields from ContextFields.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
