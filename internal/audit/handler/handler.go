package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradeledger/internal/audit"
	"tradeledger/internal/transport/http/shared"
)

// Reader lists recorded operation events.
type Reader interface {
	List(ctx context.Context, actor string) ([]audit.Event, error)
}

// Handler exposes the ledger-level operation audit trail.
type Handler struct {
	logger *slog.Logger
	events Reader
}

func New(events Reader, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, events: events}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/{actor}", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context(), chi.URLParam(r, "actor"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, events)
}
