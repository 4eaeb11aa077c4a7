package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradeledger/internal/transport/http/shared"
	"tradeledger/pkg/requestcontext"
)

// Service defines the signing-identity operations the transport layer needs.
type Service interface {
	PublicKeyB64(ctx context.Context) (string, error)
	Generate(ctx context.Context) error
}

// Handler exposes the ledger signing identity.
type Handler struct {
	logger *slog.Logger
	signer Service
}

func New(signer Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, signer: signer}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/keys/public", h.handlePublicKey)
	r.Post("/keys/reset", h.handleReset)
}

type publicKeyResponse struct {
	PublicKeyB64 string `json:"publicKeyB64"`
}

func (h *Handler) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.signer.PublicKeyB64(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, publicKeyResponse{PublicKeyB64: key})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.signer.Generate(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "signing identity reset failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(r.Context()))
		shared.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "signing identity reset",
		"sender", requestcontext.Sender(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
