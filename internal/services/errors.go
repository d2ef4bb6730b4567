package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trustframe/internal/alignment"
	"trustframe/internal/analysis"
	"trustframe/internal/fingerprint"
)

var (
	ErrExternalTool         = errors.New("external tool error")
	ErrValidation           = errors.New("validation error")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNotFound             = errors.New("not found")
)

// Error kinds reported by Classify.
const (
	KindIncompatibleWidth    = "incompatible_width"
	KindEmptySequence        = "empty_sequence"
	KindInvalidConfiguration = "invalid_configuration"
	KindExternalTool         = "external_tool"
	KindNotFound             = "not_found"
	KindValidation           = "validation"
	KindCanceled             = "canceled"
	KindInternal             = "internal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto one of the Kind constants. A nil error yields "".
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fingerprint.ErrIncompatibleWidth):
		return KindIncompatibleWidth
	case errors.Is(err, alignment.ErrEmptySequence):
		return KindEmptySequence
	case errors.Is(err, ErrInvalidConfiguration), errors.Is(err, analysis.ErrInvalidBuckets):
		return KindInvalidConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	case errors.Is(err, ErrValidation), errors.Is(err, fingerprint.ErrInvalidEncoding):
		return KindValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
