package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "wordgarden"

// Verification failures. All of them are rejected as unauthenticated; they
// stay distinct so the logs show why a token was refused.
var (
	ErrTokenMalformed = errors.New("session token malformed")
	ErrTokenSignature = errors.New("session token signature invalid")
	ErrTokenExpired   = errors.New("session token expired")
)

// Session is what a successful exchange hands back to the caller.
type Session struct {
	Token     string    `json:"sessionToken"`
	ExpiresIn int64     `json:"expiresIn"`
	ExpiresAt time.Time `json:"-"`
}

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SubjectID prefers the explicit uid claim and falls back to sub.
func (c *Claims) SubjectID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// JWTManager signs and verifies session tokens with a single process-wide
// HMAC secret. There is no key id, so rotating the secret invalidates every
// outstanding session.
type JWTManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue signs a token for the subject valid for the configured expiry.
func (m *JWTManager) Issue(subjectID, email string) (*Session, error) {
	now := m.now()
	expiresAt := now.Add(m.expiry)

	claims := Claims{
		UserID: subjectID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("signing session token: %w", err)
	}

	return &Session{
		Token:     signed,
		ExpiresIn: int64(m.expiry.Seconds()),
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (m *JWTManager) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SubjectID() == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// Expiry is the lifetime given to newly issued tokens.
func (m *JWTManager) Expiry() time.Duration {
	return m.expiry
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
