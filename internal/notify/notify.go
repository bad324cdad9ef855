// Package notify is the boundary to the external notification dispatcher.
// The engine only emits; delivery, templating and channels live elsewhere.
package notify

import (
	"context"
	"log/slog"

	"github.com/finlend/ledger-engine/internal/domain"
)

// Sink receives domain events fire-and-forget. Implementations must never
// block the calling operation or surface delivery errors into it.
type Sink interface {
	Publish(ctx context.Context, event domain.Event)
}

// LogSink writes events to the structured log. It stands in wherever a real
// dispatcher is not wired up.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Publish(_ context.Context, event domain.Event) {
	s.log.Info("domain event",
		"kind", event.Kind,
		"product_id", event.ProductID,
		"holder_id", event.HolderID,
		"amount", event.Amount,
	)
}
