package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wordgarden/gateway/internal/api"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

// Middleware rejects requests without a valid session token and stores the
// claims in the request context.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := jwtMgr.Verify(token)
			if err != nil {
				slog.Debug("session rejected", "reason", rejectReason(err), "path", r.URL.Path)
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(UserClaimsKey).(*Claims)
	return claims
}

// TrackActivity refreshes the caller's last-active time. A directory failure
// is logged and the request proceeds.
func TrackActivity(dir Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims := GetUserClaims(r.Context()); claims != nil {
				if err := dir.Touch(r.Context(), claims.SubjectID(), claims.Email, ""); err != nil {
					slog.Warn("recording activity", "subject", claims.SubjectID(), "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin allows only sessions whose email is in the allow-list.
// Emails compare case-insensitively.
func RequireAdmin(adminEmails []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		allowed[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserClaims(r.Context())
			if claims == nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}
			if _, ok := allowed[strings.ToLower(claims.Email)]; !ok || claims.Email == "" {
				slog.Info("admin access denied", "subject", claims.SubjectID(), "email", claims.Email, "path", r.URL.Path)
				api.HandleError(w, api.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "other"
	}
}
