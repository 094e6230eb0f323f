package app

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coopledger/coopledger/internal/observability"
	"github.com/coopledger/coopledger/internal/shared"
	_ "github.com/coopledger/coopledger/testing"
)

func TestInTestModeDetectsFlag(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}

func TestConfigValidation(t *testing.T) {
	cfg := Config{AppEnv: "development", InvoiceNumberRetries: 5, InvoiceBlankItemPolicy: "skip", TrendMonths: 6}
	require.NoError(t, cfg.validate())

	bad := cfg
	bad.InvoiceBlankItemPolicy = "ignore"
	require.Error(t, bad.validate())

	bad = cfg
	bad.InvoiceNumberRetries = 0
	require.Error(t, bad.validate())

	bad = cfg
	bad.AppEnv = "production"
	require.Error(t, bad.validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("INVOICE_BLANK_ITEM_POLICY", "reject")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 5, cfg.InvoiceNumberRetries)
	require.Equal(t, "reject", cfg.InvoiceBlankItemPolicy)
	require.False(t, cfg.IsProduction())
}

func TestGatewayIdentity(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	var seen shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := GatewayIdentity(NewLogger(nil), string(hash))(next)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set(HeaderServiceKey, "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set(HeaderServiceKey, "s3cret")
	req.Header.Set(HeaderUserID, "42")
	req.Header.Set(HeaderUserRole, "treasurer")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, shared.Actor{ID: 42, Role: "treasurer"}, seen)

	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set(HeaderServiceKey, "s3cret")
	req.Header.Set(HeaderUserID, "abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:  NewLogger(nil),
		Config:  &Config{AppEnv: "development"},
		Metrics: observability.NewMetrics(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "coopledger_http_requests_total"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterLogsEachRequestOnce(t *testing.T) {
	var buf bytes.Buffer
	previous := middleware.DefaultLogger
	middleware.DefaultLogger = middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.New(&buf, "", 0), NoColor: true})
	t.Cleanup(func() { middleware.DefaultLogger = previous })

	router := NewRouter(RouterParams{Logger: NewLogger(nil), Config: &Config{AppEnv: "development"}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, strings.Count(buf.String(), "/healthz"))
}
