package users

import (
	"errors"
	"time"
)

// NeverActive is shown for users an admin registered who have not signed in yet.
const NeverActive = "Never"

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name,omitempty"`
	LastActiveAt  *time.Time `json:"lastActiveAt,omitempty"`
	ManuallyAdded bool       `json:"manuallyAdded"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// LastActive renders LastActiveAt for display, or NeverActive.
func (u *User) LastActive() string {
	if u.LastActiveAt == nil {
		return NeverActive
	}
	return u.LastActiveAt.UTC().Format(time.RFC3339)
}
