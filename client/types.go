package client

// Identity is the caller's claimed identity sent alongside the assertion.
type Identity struct {
	SubjectID string `json:"subjectId"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
}

// GenerateOptions tunes a single generation. Nil fields use server defaults.
type GenerateOptions struct {
	MaxTokens   *int
	Temperature *float64
}

type QuotaStatus struct {
	Usage      int    `json:"usage"`
	Limit      int    `json:"limit"`
	DailyUsage int    `json:"dailyUsage"`
	DailyLimit int    `json:"dailyLimit"`
	Month      string `json:"month"`
	Day        string `json:"day"`
}

type Limits struct {
	Monthly int `json:"monthly"`
	Daily   int `json:"daily"`
}

type DashboardUser struct {
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
}

type DailyStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DashboardSummary struct {
	TotalUsers      int `json:"totalUsers"`
	ActiveToday     int `json:"activeToday"`
	MonthlyRequests int `json:"monthlyRequests"`
}

type Dashboard struct {
	Users        []DashboardUser  `json:"users"`
	SystemLimits Limits           `json:"systemLimits"`
	DailyStats   []DailyStat      `json:"dailyStats"`
	Summary      DashboardSummary `json:"summary"`
}
