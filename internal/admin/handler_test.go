package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordgarden/gateway/internal/auth"
)

func call(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	claims := &auth.Claims{UserID: "uid-admin", Email: "admin@example.com"}
	req = req.WithContext(context.WithValue(req.Context(), auth.UserClaimsKey, claims))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestAdminHandlers(t *testing.T) {
	f := setup(t)
	h := NewHandler(f.svc)

	t.Run("add user", func(t *testing.T) {
		rec := call(h.AddUser, http.MethodPost, "/api/user-add", `{"email":"new@example.com","name":"New","monthly":5}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var body struct {
			User struct {
				ID            string `json:"id"`
				Email         string `json:"email"`
				ManuallyAdded bool   `json:"manuallyAdded"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "new@example.com", body.User.Email)
		assert.True(t, strings.HasPrefix(body.User.ID, "manual-"))
		assert.True(t, body.User.ManuallyAdded)
	})

	t.Run("add duplicate", func(t *testing.T) {
		rec := call(h.AddUser, http.MethodPost, "/api/user-add", `{"email":"new@example.com"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("add invalid email", func(t *testing.T) {
		rec := call(h.AddUser, http.MethodPost, "/api/user-add", `{"email":"not-an-email"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("user limit", func(t *testing.T) {
		rec := call(h.SetUserLimits, http.MethodPost, "/api/user-limit", `{"email":"new@example.com","daily":3}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"limits":{"monthly":50,"daily":3}}`, rec.Body.String())
	})

	t.Run("user limit negative", func(t *testing.T) {
		rec := call(h.SetUserLimits, http.MethodPost, "/api/user-limit", `{"email":"new@example.com","daily":-1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("user limit unknown user", func(t *testing.T) {
		rec := call(h.SetUserLimits, http.MethodPost, "/api/user-limit", `{"email":"ghost@example.com","daily":3}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("global limits", func(t *testing.T) {
		rec := call(h.SetGlobalLimits, http.MethodPost, "/api/global-limits", `{"monthly":0,"daily":0}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"limits":{"monthly":0,"daily":0}}`, rec.Body.String())
	})

	t.Run("global limits missing field", func(t *testing.T) {
		rec := call(h.SetGlobalLimits, http.MethodPost, "/api/global-limits", `{"monthly":10}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("dashboard", func(t *testing.T) {
		rec := call(h.Dashboard, http.MethodGet, "/api/dashboard?sort=usage", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var snap struct {
			Users        []map[string]any `json:"users"`
			SystemLimits map[string]int   `json:"systemLimits"`
			DailyStats   []map[string]any `json:"dailyStats"`
			Summary      map[string]int   `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		require.Len(t, snap.Users, 1)
		assert.Equal(t, "new@example.com", snap.Users[0]["email"])
		assert.Equal(t, "Never", snap.Users[0]["lastActive"])
		assert.Equal(t, map[string]int{"monthly": 0, "daily": 0}, snap.SystemLimits)
		assert.Len(t, snap.DailyStats, StatsWindowDays)
		assert.Equal(t, 1, snap.Summary["totalUsers"])
	})

	t.Run("dashboard bad sort", func(t *testing.T) {
		rec := call(h.Dashboard, http.MethodGet, "/api/dashboard?sort=shoesize", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("remove", func(t *testing.T) {
		rec := call(h.RemoveUser, http.MethodPost, "/api/user-delete", `{"email":"new@example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	})

	t.Run("remove unknown", func(t *testing.T) {
		rec := call(h.RemoveUser, http.MethodPost, "/api/user-delete", `{"email":"new@example.com"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
