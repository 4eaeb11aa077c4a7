package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradeledger/internal/enrollment"
	"tradeledger/internal/jwtauth"
	"tradeledger/internal/ledger"
	"tradeledger/internal/signer"
	"tradeledger/internal/storage"
	httptransport "tradeledger/internal/transport/http"
	"tradeledger/pkg/requestcontext"
)

func newTestRouter(t *testing.T) (http.Handler, *ledger.Service) {
	t.Helper()
	store := storage.NewInMemoryStore()
	repo := ledger.NewRepo(store)
	signing := signer.New(store)
	require.NoError(t, signing.Generate(context.Background()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledgers := ledger.NewService(repo, signing, ledger.WithLogger(logger))
	enrollSvc := enrollment.NewService(enrollment.NewRepo(store), repo, ledgers, signing, logger)
	jwtSvc := jwtauth.NewService("test-key", "test", "test")

	h := New(enrollSvc, jwtSvc, time.Hour, logger)
	router := httptransport.NewRouter(
		logger,
		jwtauth.NewMiddlewareAdapter(jwtSvc),
		[]httptransport.PublicRegistrar{h},
		[]httptransport.Registrar{h},
	)
	return router, ledgers
}

func post(t *testing.T, router http.Handler, path, bearer string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	require.NoError(t, json.NewEncoder(&body).Encode(payload))
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func resultOf(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Result, out))
}

func TestBootstrapAndLogin(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := post(t, router, "/enrollment/super-admin", "", map[string]string{"sender": "root"})
	require.Equal(t, http.StatusOK, rec.Code)
	var bootstrap struct {
		Secret string `json:"secret"`
	}
	resultOf(t, rec, &bootstrap)
	require.NotEmpty(t, bootstrap.Secret)

	// The bootstrap secret is one-time output; a second bootstrap is refused.
	rec = post(t, router, "/enrollment/super-admin", "", map[string]string{"sender": "other"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = post(t, router, "/auth/token", "", map[string]string{
		"userId": "root", "secret": bootstrap.Secret,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
		ExpiresIn   int64  `json:"expiresIn"`
	}
	resultOf(t, rec, &login)
	require.NotEmpty(t, login.AccessToken)
	require.Equal(t, "Bearer", login.TokenType)
	require.Equal(t, int64(3600), login.ExpiresIn)

	rec = post(t, router, "/auth/token", "", map[string]string{
		"userId": "root", "secret": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestApprovalFlow(t *testing.T) {
	router, ledgers := newTestRouter(t)

	rec := post(t, router, "/enrollment/super-admin", "", map[string]string{"sender": "root"})
	require.Equal(t, http.StatusOK, rec.Code)
	var bootstrap struct {
		Secret string `json:"secret"`
	}
	resultOf(t, rec, &bootstrap)

	rec = post(t, router, "/auth/token", "", map[string]string{
		"userId": "root", "secret": bootstrap.Secret,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	resultOf(t, rec, &login)

	rootCtx := requestcontext.WithSender(context.Background(), "root")
	_, err := ledgers.CreateLedger(rootCtx, "SL1")
	require.NoError(t, err)

	rec = post(t, router, "/enrollment/requests", "", map[string]string{
		"sender": "alice", "SLID": "SL1", "role": "trader", "jurisdiction": "uk",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var created enrollment.RequestResult
	resultOf(t, rec, &created)
	require.NotEmpty(t, created.RequestID)
	require.NotEmpty(t, created.Secret)

	rec = post(t, router, "/enrollment/requests/"+created.RequestID+"/approve", login.AccessToken, struct{}{})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The new credential works once approved.
	rec = post(t, router, "/auth/token", "", map[string]string{
		"userId": "alice", "secret": created.Secret,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestApproveRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := post(t, router, "/enrollment/requests/abc/approve", "", struct{}{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
