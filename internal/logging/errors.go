package logging

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Errors built with samber/oops anywhere in
// the chain contribute their code and context attributes.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if logger == nil || err == nil {
		return
	}
	attrs := []any{"error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if details := oopsErr.Context(); len(details) > 0 {
			attrs = append(attrs, "context", details)
		}
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
