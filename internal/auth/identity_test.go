package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirebaseVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "api-key", r.URL.Query().Get("key"))

		var req lookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.IDToken {
		case "good":
			w.Write([]byte(`{"users":[{"localId":"uid-1","email":"a@example.com","displayName":"Ada"}]}`))
		case "orphan":
			w.Write([]byte(`{"users":[]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"INVALID_ID_TOKEN"}}`))
		}
	}))
	t.Cleanup(srv.Close)

	v := NewFirebaseVerifier(srv.URL, "api-key", 5*time.Second)
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		id, err := v.Verify(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, &Identity{SubjectID: "uid-1", Email: "a@example.com", DisplayName: "Ada"}, id)
	})

	t.Run("rejected token", func(t *testing.T) {
		_, err := v.Verify(ctx, "bad")
		assert.ErrorIs(t, err, ErrIdentityVerificationFailed)
	})

	t.Run("no account", func(t *testing.T) {
		_, err := v.Verify(ctx, "orphan")
		assert.ErrorIs(t, err, ErrIdentityVerificationFailed)
	})

	t.Run("network error", func(t *testing.T) {
		down := NewFirebaseVerifier("http://127.0.0.1:1", "api-key", time.Second)
		_, err := down.Verify(ctx, "good")
		assert.ErrorIs(t, err, ErrIdentityVerificationFailed)
	})
}
