package observability

import (
	"log/slog"

	"versemarket/core/events"
)

// LogEmitter adapts core/events.Emitter onto structured logging, so every
// domain event a process emits lands in the same JSON log stream as its
// request logs, keyed by event type.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter wraps logger as an events.Emitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs ev at info level under its EventType.
func (e *LogEmitter) Emit(ev events.Event) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Info("domain_event", slog.String("event_type", ev.EventType()), slog.Any("event", ev))
}
