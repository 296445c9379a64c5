package generation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordgarden/gateway/internal/auth"
	"github.com/wordgarden/gateway/internal/governance/limits"
)

func post(t *testing.T, h *Handler, body string, withClaims bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(body))
	if withClaims {
		claims := &auth.Claims{UserID: "u1", Email: "u1@example.com"}
		req = req.WithContext(context.WithValue(req.Context(), auth.UserClaimsKey, claims))
	}
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	return rec
}

func TestGenerateHandler(t *testing.T) {
	e := setupService(t)
	h := NewHandler(e.svc)

	t.Run("success", func(t *testing.T) {
		rec := post(t, h, `{"prompt":"hello","max_tokens":64}`, true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":"generated"}`, rec.Body.String())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, post(t, h, `{"prompt":"hello"}`, false).Code)
	})

	t.Run("missing prompt", func(t *testing.T) {
		rec := post(t, h, `{"prompt":"   "}`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"missing prompt"}`, rec.Body.String())
	})

	t.Run("bad max_tokens", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post(t, h, `{"prompt":"x","max_tokens":0}`, true).Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post(t, h, `{"prompt":`, true).Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		e.backend.err = errors.New("boom")
		defer func() { e.backend.err = nil }()
		rec := post(t, h, `{"prompt":"hello"}`, true)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"generation failed"}`, rec.Body.String())
	})

	t.Run("quota exceeded", func(t *testing.T) {
		one := 1
		require.NoError(t, e.resolver.SetOverride(context.Background(), "u1", limits.Override{Monthly: &one}))
		rec := post(t, h, `{"prompt":"hello"}`, true)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.JSONEq(t, `{"error":"monthly quota exceeded","reason":"monthly"}`, rec.Body.String())
	})
}

