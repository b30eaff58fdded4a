package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSender logs messages instead of sending them. Every message gets a fresh
// delivery id so callers that require one keep working.
type LogSender struct {
	logger *slog.Logger
	// IncludeBody logs the text body, which contains live verification links.
	IncludeBody bool
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (Delivery, error) {
	if msg.To == "" {
		return Delivery{}, ErrNoRecipient
	}
	id := uuid.NewString()
	attrs := []slog.Attr{
		slog.String("delivery_id", id),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	}
	if s.IncludeBody {
		attrs = append(attrs, slog.String("text", msg.Text))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "email queued", attrs...)
	return Delivery{ID: id}, nil
}
