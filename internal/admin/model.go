package admin

import (
	"time"

	"github.com/wordgarden/gateway/internal/governance/limits"
	"github.com/wordgarden/gateway/internal/governance/stats"
)

// StatsWindowDays is the length of the dashboard's global usage series.
const StatsWindowDays = 30

// Sort orders for the dashboard user list.
const (
	SortEmail      = "email"
	SortUsage      = "usage"
	SortLastActive = "lastActive"
)

// Row is one user as the dashboard shows it.
type Row struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	MonthlyUsage  int    `json:"monthlyUsage"`
	DailyUsage    int    `json:"dailyUsage"`
	MonthlyLimit  int    `json:"monthlyLimit"`
	DailyLimit    int    `json:"dailyLimit"`
	LastActive    string `json:"lastActive"`
	ManuallyAdded bool   `json:"manuallyAdded"`
	HasOverride   bool   `json:"hasOverride"`

	lastActiveAt *time.Time
}

type Summary struct {
	TotalUsers      int `json:"totalUsers"`
	ActiveToday     int `json:"activeToday"`
	MonthlyRequests int `json:"monthlyRequests"`
}

type Snapshot struct {
	Users        []Row             `json:"users"`
	SystemLimits limits.Limits     `json:"systemLimits"`
	DailyStats   []stats.DailyStat `json:"dailyStats"`
	Summary      Summary           `json:"summary"`
}

// Query narrows and orders the dashboard user list.
type Query struct {
	Search string
	Sort   string
}

type AddUserRequest struct {
	Email   string `json:"email" validate:"required,email,max=320"`
	Name    string `json:"name" validate:"max=200"`
	Monthly *int   `json:"monthly,omitempty" validate:"omitempty,min=0"`
	Daily   *int   `json:"daily,omitempty" validate:"omitempty,min=0"`
}

type RemoveUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserLimitRequest replaces a user's override. Omitted fields follow the
// system limits.
type UserLimitRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Monthly *int   `json:"monthly,omitempty" validate:"omitempty,min=0"`
	Daily   *int   `json:"daily,omitempty" validate:"omitempty,min=0"`
}

type GlobalLimitsRequest struct {
	Monthly *int `json:"monthly" validate:"required,min=0"`
	Daily   *int `json:"daily" validate:"required,min=0"`
}
