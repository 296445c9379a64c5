package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	DB        DBConfig
	NATS      NATSConfig
	JWT       JWTConfig
	Identity  IdentityConfig
	AI        AIConfig
	Admin     AdminConfig
	Limits    LimitsConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DBConfig describes the optional Postgres database holding the audit trail.
// An empty Host disables audit persistence.
type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// NATSConfig is optional. An empty URL records audit events without JetStream.
type NATSConfig struct {
	URL string
}

func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type IdentityConfig struct {
	APIKey    string
	LookupURL string
	Timeout   time.Duration
}

type AIConfig struct {
	BaseURL   string
	AccountID string
	APIToken  string
	Model     string
	Timeout   time.Duration
}

type AdminConfig struct {
	Emails []string
}

// LimitsConfig holds the built-in caps used until an admin stores system limits.
type LimitsConfig struct {
	Monthly int
	Daily   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	ExchangeMax       int
	ExchangeWindowSec int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			Secret: k.String("jwt.secret"),
		},
		Identity: IdentityConfig{
			APIKey:    k.String("identity.api.key"),
			LookupURL: k.String("identity.lookup.url"),
		},
		AI: AIConfig{
			BaseURL:   k.String("ai.base.url"),
			AccountID: k.String("ai.account.id"),
			APIToken:  k.String("ai.api.token"),
			Model:     k.String("ai.model"),
		},
		Admin: AdminConfig{
			Emails: splitList(k.String("admin.emails")),
		},
		Limits: LimitsConfig{
			Monthly: k.Int("limits.monthly"),
			Daily:   k.Int("limits.daily"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		RateLimit: RateLimitConfig{
			ExchangeMax:       k.Int("ratelimit.exchange.max"),
			ExchangeWindowSec: k.Int("ratelimit.exchange.window"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "wordgarden"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "wordgarden"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 10
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Identity.LookupURL == "" {
		cfg.Identity.LookupURL = "https://identitytoolkit.googleapis.com/v1/accounts:lookup"
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://api.cloudflare.com/client/v4"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "@cf/meta/llama-3.1-8b-instruct"
	}
	// Zero is a valid cap, so only unset limits take the default.
	if !isSet(k, "limits.monthly") {
		cfg.Limits.Monthly = 50
	}
	if !isSet(k, "limits.daily") {
		cfg.Limits.Daily = 10
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.RateLimit.ExchangeMax == 0 {
		cfg.RateLimit.ExchangeMax = 20
	}
	if cfg.RateLimit.ExchangeWindowSec == 0 {
		cfg.RateLimit.ExchangeWindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	var err error
	cfg.JWT.Expiry, err = durationOr(k, "jwt.expiry", "1h")
	if err != nil {
		return nil, fmt.Errorf("parsing jwt expiry: %w", err)
	}
	cfg.Identity.Timeout, err = durationOr(k, "identity.timeout", "10s")
	if err != nil {
		return nil, fmt.Errorf("parsing identity timeout: %w", err)
	}
	cfg.AI.Timeout, err = durationOr(k, "ai.timeout", "30s")
	if err != nil {
		return nil, fmt.Errorf("parsing ai timeout: %w", err)
	}

	return cfg, nil
}

func durationOr(k *koanf.Koanf, key, fallback string) (time.Duration, error) {
	s := k.String(key)
	if s == "" {
		s = fallback
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isSet(k *koanf.Koanf, key string) bool {
	return k.Exists(key) && strings.TrimSpace(k.String(key)) != ""
}
