package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"principalcheck/internal/platform/metrics"
	"principalcheck/pkg/requestcontext"
	"principalcheck/pkg/testutil"
)

type stubValidator struct {
	subject string
	err     error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &JWTClaims{Subject: s.subject}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireAuth(t *testing.T) {
	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = requestcontext.Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("valid token", func(t *testing.T) {
		h := RequireAuth(stubValidator{subject: "alice"}, discard())(next)
		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/", nil), "tok")
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "alice", gotSubject)
	})

	t.Run("missing header", func(t *testing.T) {
		h := RequireAuth(stubValidator{subject: "alice"}, discard())(next)
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("rejected token", func(t *testing.T) {
		h := RequireAuth(stubValidator{err: errors.New("expired")}, discard())(next)
		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/", nil), "tok")
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("keeps an inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, "req-1", seen)
		assert.Equal(t, "req-1", rr.Header().Get(RequestIDHeader))
	})

	t.Run("mints a new id", func(t *testing.T) {
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})
}

func TestClientMetadata(t *testing.T) {
	var ip, ua string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "matrix-ui")
	testutil.DoRequest(h, req)

	assert.Equal(t, "203.0.113.9", ip)
	assert.Equal(t, "matrix-ui", ua)
}

func TestClientIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIPFromRequest(req))

	req.Header.Set("X-Real-IP", " 198.51.100.2 ")
	assert.Equal(t, "198.51.100.2", clientIPFromRequest(req))
}

func TestInstrument(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(Instrument(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/items/2", nil))

	require.InDelta(t, 2, promtestutil.ToFloat64(m.Requests.WithLabelValues("/items/{id}", "418")), 0)
	assert.Equal(t, 1, promtestutil.CollectAndCount(m.RequestDuration))
}
