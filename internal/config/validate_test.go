package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Redis:  RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			Secret: "session-secret-that-is-at-least-32-chars",
			Expiry: time.Hour,
		},
		Identity: IdentityConfig{APIKey: "firebase-key"},
		AI:       AIConfig{AccountID: "acct", APIToken: "token"},
		Admin:    AdminConfig{Emails: []string{"admin@example.com"}},
		Limits:   LimitsConfig{Monthly: 50, Daily: 10},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got: %v", err)
	}
}

func TestValidate_IdentityKeyRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Identity.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "IDENTITY_API_KEY") {
		t.Fatalf("expected IDENTITY_API_KEY error, got: %v", err)
	}
}

func TestValidate_NegativeLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Limits.Daily = -1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "LIMITS_DAILY") {
		t.Fatalf("expected limits error, got: %v", err)
	}
}

func TestValidate_DBPasswordOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled DB should not need a password: %v", err)
	}

	cfg.DB = DBConfig{Host: "db", Port: 5432}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Redis.Port = 99999
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected port validation errors")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "REDIS_PORT") {
		t.Errorf("expected REDIS_PORT error in: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 0},
		Redis:  RedisConfig{Port: 6379},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"JWT_SECRET", "IDENTITY_API_KEY", "AI_ACCOUNT_ID", "AI_API_TOKEN", "SERVER_PORT"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}
