package client

import "time"

// refreshBuffer is how long before expiry a session stops being reused.
const refreshBuffer = 5 * time.Minute

// Session is a gateway session token. Callers hold it and exchange a fresh
// identity assertion once Valid reports false.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the session can still be sent at now.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return now.Add(refreshBuffer).Before(s.ExpiresAt)
}
