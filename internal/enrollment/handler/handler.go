package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tradeledger/internal/domain"
	"tradeledger/internal/enrollment"
	"tradeledger/internal/transport/http/shared"
	dErrors "tradeledger/pkg/domain-errors"
	"tradeledger/pkg/requestcontext"
)

// Service defines the enrollment operations the transport layer needs.
type Service interface {
	CreateSuperAdmin(ctx context.Context) (string, error)
	CreateUserRequest(ctx context.Context, slid string, role domain.RoleType, jurisdiction domain.JurisdictionType) (*enrollment.RequestResult, error)
	ListRequests(ctx context.Context) ([]string, error)
	GetRequest(ctx context.Context, id string) (*enrollment.Request, error)
	Approve(ctx context.Context, requestID string) error
	EnrollWithoutApproval(ctx context.Context, slid string, role domain.RoleType, jurisdiction domain.JurisdictionType) error
	VerifyCredential(ctx context.Context, userID, secret string) error
	ClearAll(ctx context.Context) error
}

// TokenIssuer mints access tokens after credential verification.
type TokenIssuer interface {
	GenerateAccessToken(sender string, expiresIn time.Duration) (string, error)
}

// Handler exposes onboarding and auth endpoints.
type Handler struct {
	logger     *slog.Logger
	enrollment Service
	tokens     TokenIssuer
	tokenTTL   time.Duration
}

func New(enrollment Service, tokens TokenIssuer, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, enrollment: enrollment, tokens: tokens, tokenTTL: tokenTTL}
}

// RegisterPublic mounts the endpoints that work without a bearer token:
// login and the two onboarding calls that create the credential in the first
// place. The sender address comes from the request body here; everywhere else
// it comes from the validated token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/token", h.handleLogin)
	r.Post("/enrollment/super-admin", h.handleCreateSuperAdmin)
	r.Post("/enrollment/requests", h.handleCreateRequest)
}

// Register mounts the authenticated enrollment routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/enrollment/requests", h.handleListRequests)
	r.Get("/enrollment/requests/{id}", h.handleGetRequest)
	r.Post("/enrollment/requests/{id}/approve", h.handleApprove)
	r.Post("/enrollment/direct", h.handleDirectEnroll)
	r.Post("/admin/clear", h.handleClearAll)
}

type loginRequest struct {
	UserID string `json:"userId"`
	Secret string `json:"secret"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.enrollment.VerifyCredential(r.Context(), req.UserID, req.Secret); err != nil {
		h.logger.WarnContext(r.Context(), "login rejected",
			"userId", req.UserID,
			"request_id", requestcontext.RequestID(r.Context()))
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}
	token, err := h.tokens.GenerateAccessToken(req.UserID, h.tokenTTL)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
	})
}

type bootstrapRequest struct {
	Sender string `json:"sender"`
}

type bootstrapResponse struct {
	Secret string `json:"secret"`
}

func (h *Handler) handleCreateSuperAdmin(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Sender == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "sender is required"))
		return
	}
	ctx := requestcontext.WithSender(r.Context(), req.Sender)
	secret, err := h.enrollment.CreateSuperAdmin(ctx)
	if err != nil {
		h.logError(r, "super admin bootstrap failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, bootstrapResponse{Secret: secret})
}

type createRequestRequest struct {
	Sender       string `json:"sender"`
	SLID         string `json:"SLID"`
	Role         string `json:"role"`
	Jurisdiction string `json:"jurisdiction"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Sender == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "sender is required"))
		return
	}
	ctx := requestcontext.WithSender(r.Context(), req.Sender)
	result, err := h.enrollment.CreateUserRequest(ctx, req.SLID,
		domain.ParseRole(req.Role), domain.ParseJurisdiction(req.Jurisdiction))
	if err != nil {
		h.logError(r, "create user request failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, result)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ids, err := h.enrollment.ListRequests(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, ids)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.enrollment.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteResult(w, r, req)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	if err := h.enrollment.Approve(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logError(r, "approve user request failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type directEnrollRequest struct {
	SLID         string `json:"SLID"`
	Role         string `json:"role"`
	Jurisdiction string `json:"jurisdiction"`
}

func (h *Handler) handleDirectEnroll(w http.ResponseWriter, r *http.Request) {
	var req directEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	err := h.enrollment.EnrollWithoutApproval(r.Context(), req.SLID,
		domain.ParseRole(req.Role), domain.ParseJurisdiction(req.Jurisdiction))
	if err != nil {
		h.logError(r, "direct enrollment failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.enrollment.ClearAll(r.Context()); err != nil {
		h.logError(r, "clear all failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
