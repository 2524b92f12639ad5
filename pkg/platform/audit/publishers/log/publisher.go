// Package log publishes audit events as structured log records.
package log

import (
	"context"
	"log/slog"

	audit "leaddesk/pkg/platform/audit"
)

// Publisher writes each event as one "audit" log record. Security events are
// logged at warn so they stand out in log-based alerting.
type Publisher struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	level := slog.LevelInfo
	if event.Category == audit.CategorySecurity {
		level = slog.LevelWarn
	}
	p.logger.LogAttrs(ctx, level, "audit",
		slog.String("category", string(event.Category)),
		slog.String("action", event.Action),
		slog.Time("timestamp", event.Timestamp),
		slog.String("subject", event.Subject),
		slog.String("actor_id", event.ActorID),
		slog.String("reason", event.Reason),
		slog.String("ip", event.IP),
		slog.String("request_id", event.RequestID),
	)
	return nil
}
