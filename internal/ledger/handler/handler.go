package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradeledger/internal/domain"
	"tradeledger/internal/ledger"
	"tradeledger/internal/transport/http/shared"
	dErrors "tradeledger/pkg/domain-errors"
	"tradeledger/pkg/requestcontext"
)

// Service defines the ledger operations the transport layer needs.
type Service interface {
	CreateLedger(ctx context.Context, slid string) (string, error)
	ListLedgers(ctx context.Context) ([]string, error)
	LedgerContent(ctx context.Context, slid string) (*ledger.Content, error)
	SubmitTrade(ctx context.Context, slid string, in ledger.SubmitTradeInput) (*ledger.SubmitTradeResult, error)
	AddComment(ctx context.Context, slid string, in ledger.CommentInput) error
	RecordExactMatch(ctx context.Context, slid string, in ledger.ExactMatchInput) (bool, error)
	RecordBoundaryMatch(ctx context.Context, slid string, in ledger.BoundaryMatchInput) (bool, error)
	RecordLevenshteinMatch(ctx context.Context, slid string, in ledger.LevenshteinMatchInput) (bool, error)
	ListVisibleTrades(ctx context.Context, slid string) ([]ledger.TradeIdentification, error)
	TradeDetail(ctx context.Context, slid, uti, tokenB64 string) (*domain.Trade, error)
	MultipleTradeDetail(ctx context.Context, slid string, trades []ledger.TradeIdentification) []ledger.DetailResult
	RemoveTrade(ctx context.Context, slid, uti string) error
	Lock(ctx context.Context, slid string) error
	DeleteLedger(ctx context.Context, slid string) error
	VerifyTradeToken(ctx context.Context, uti, tokenB64 string) error
	UserContent(ctx context.Context) (*domain.User, error)
}

// Handler exposes shared-ledger operations over HTTP.
type Handler struct {
	logger  *slog.Logger
	ledgers Service
}

func New(ledgers Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, ledgers: ledgers}
}

// Register mounts the ledger routes. The caller applies the middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ledgers", h.handleCreate)
	r.Get("/ledgers", h.handleList)
	r.Get("/ledgers/{slid}/content", h.handleContent)
	r.Post("/ledgers/{slid}/lock", h.handleLock)
	r.Delete("/ledgers/{slid}", h.handleDelete)

	r.Post("/ledgers/{slid}/trades", h.handleSubmitTrade)
	r.Get("/ledgers/{slid}/trades", h.handleListTrades)
	r.Post("/ledgers/{slid}/trades/detail", h.handleTradeDetail)
	r.Post("/ledgers/{slid}/trades/details", h.handleMultipleTradeDetail)
	r.Post("/ledgers/{slid}/trades/comment", h.handleComment)
	r.Post("/ledgers/{slid}/trades/match/exact", h.handleExactMatch)
	r.Post("/ledgers/{slid}/trades/match/boundary", h.handleBoundaryMatch)
	r.Post("/ledgers/{slid}/trades/match/levenshtein", h.handleLevenshteinMatch)
	r.Delete("/ledgers/{slid}/trades/{uti}", h.handleRemoveTrade)

	r.Post("/trades/verify", h.handleVerifyToken)
	r.Get("/me", h.handleUserContent)
}

type createLedgerRequest struct {
	SLID string `json:"SLID"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	slid, err := h.ledgers.CreateLedger(r.Context(), req.SLID)
	if err != nil {
		h.logError(r, "create shared ledger failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, createLedgerRequest{SLID: slid})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.ledgers.ListLedgers(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, ids)
}

func (h *Handler) handleUserContent(w http.ResponseWriter, r *http.Request) {
	user, err := h.ledgers.UserContent(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, user)
}

func (h *Handler) handleContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.ledgers.LedgerContent(r.Context(), chi.URLParam(r, "slid"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, content)
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	if err := h.ledgers.Lock(r.Context(), chi.URLParam(r, "slid")); err != nil {
		h.logError(r, "lock shared ledger failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ledgers.DeleteLedger(r.Context(), chi.URLParam(r, "slid")); err != nil {
		h.logError(r, "delete shared ledger failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitTradeRequest struct {
	UTI   string           `json:"UTI"`
	Trade domain.TradeInfo `json:"trade"`
}

func (h *Handler) handleSubmitTrade(w http.ResponseWriter, r *http.Request) {
	var req submitTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	result, err := h.ledgers.SubmitTrade(r.Context(), chi.URLParam(r, "slid"), ledger.SubmitTradeInput{
		UTI:  req.UTI,
		Info: req.Trade,
	})
	if err != nil {
		h.logError(r, "submit trade failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, result)
}

func (h *Handler) handleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.ledgers.ListVisibleTrades(r.Context(), chi.URLParam(r, "slid"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, trades)
}

func (h *Handler) handleTradeDetail(w http.ResponseWriter, r *http.Request) {
	var req ledger.TradeIdentification
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	trade, err := h.ledgers.TradeDetail(r.Context(), chi.URLParam(r, "slid"), req.UTI, req.TokenB64)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, trade)
}

type multipleTradeDetailRequest struct {
	Trades []ledger.TradeIdentification `json:"trades"`
}

func (h *Handler) handleMultipleTradeDetail(w http.ResponseWriter, r *http.Request) {
	var req multipleTradeDetailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	results := h.ledgers.MultipleTradeDetail(r.Context(), chi.URLParam(r, "slid"), req.Trades)
	shared.WriteResult(w, r, results)
}

type commentRequest struct {
	UTI      string `json:"UTI"`
	TokenB64 string `json:"tokenB64"`
	Public   bool   `json:"public"`
	Metadata string `json:"metadata"`
}

func (h *Handler) handleComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	err := h.ledgers.AddComment(r.Context(), chi.URLParam(r, "slid"), ledger.CommentInput{
		UTI:      req.UTI,
		TokenB64: req.TokenB64,
		Public:   req.Public,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.logError(r, "add comment failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type matchResponse struct {
	Matched bool `json:"matched"`
}

type exactMatchRequest struct {
	UTI      string `json:"UTI"`
	TokenB64 string `json:"tokenB64"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

func (h *Handler) handleExactMatch(w http.ResponseWriter, r *http.Request) {
	var req exactMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	matched, err := h.ledgers.RecordExactMatch(r.Context(), chi.URLParam(r, "slid"), ledger.ExactMatchInput{
		UTI:      req.UTI,
		TokenB64: req.TokenB64,
		Key:      req.Key,
		Value:    req.Value,
	})
	if err != nil {
		h.logError(r, "exact match failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, matchResponse{Matched: matched})
}

type boundaryMatchRequest struct {
	UTI      string  `json:"UTI"`
	TokenB64 string  `json:"tokenB64"`
	Key      string  `json:"key"`
	Min      float64 `json:"minValue"`
	Max      float64 `json:"maxValue"`
}

func (h *Handler) handleBoundaryMatch(w http.ResponseWriter, r *http.Request) {
	var req boundaryMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	matched, err := h.ledgers.RecordBoundaryMatch(r.Context(), chi.URLParam(r, "slid"), ledger.BoundaryMatchInput{
		UTI:      req.UTI,
		TokenB64: req.TokenB64,
		Key:      req.Key,
		Min:      req.Min,
		Max:      req.Max,
	})
	if err != nil {
		h.logError(r, "boundary match failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, matchResponse{Matched: matched})
}

type levenshteinMatchRequest struct {
	UTI         string `json:"UTI"`
	TokenB64    string `json:"tokenB64"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	MaxDistance int    `json:"maxDistance"`
}

func (h *Handler) handleLevenshteinMatch(w http.ResponseWriter, r *http.Request) {
	var req levenshteinMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	matched, err := h.ledgers.RecordLevenshteinMatch(r.Context(), chi.URLParam(r, "slid"), ledger.LevenshteinMatchInput{
		UTI:         req.UTI,
		TokenB64:    req.TokenB64,
		Key:         req.Key,
		Value:       req.Value,
		MaxDistance: req.MaxDistance,
	})
	if err != nil {
		h.logError(r, "levenshtein match failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, matchResponse{Matched: matched})
}

func (h *Handler) handleRemoveTrade(w http.ResponseWriter, r *http.Request) {
	err := h.ledgers.RemoveTrade(r.Context(), chi.URLParam(r, "slid"), chi.URLParam(r, "uti"))
	if err != nil {
		h.logError(r, "remove trade failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyTokenRequest struct {
	UTI      string `json:"UTI"`
	TokenB64 string `json:"tokenB64"`
}

func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.ledgers.VerifyTradeToken(r.Context(), req.UTI, req.TokenB64); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, map[string]bool{"valid": true})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
