package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and persists them. It keeps the
// request path free of storage latency: services send into the inbox and move
// on.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is cancelled. A failed append loses
// that one event, not the worker: the error is logged and consumption
// continues.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"actor", event.Actor, "action", event.Action, "error", err.Error())
			}
		}
	}
}

// Emitter is the channel-backed sending half used by services when the worker
// is wired. Emit drops events rather than blocking a ledger operation.
type Emitter struct {
	inbox chan<- Event
}

func NewEmitter(inbox chan<- Event) *Emitter {
	return &Emitter{inbox: inbox}
}

func (e *Emitter) Emit(_ context.Context, event Event) error {
	select {
	case e.inbox <- event:
	default:
	}
	return nil
}
