package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/wordgarden/gateway/internal/admin"
	"github.com/wordgarden/gateway/internal/api"
	"github.com/wordgarden/gateway/internal/auth"
	"github.com/wordgarden/gateway/internal/config"
	"github.com/wordgarden/gateway/internal/database"
	"github.com/wordgarden/gateway/internal/generation"
	"github.com/wordgarden/gateway/internal/governance"
	"github.com/wordgarden/gateway/internal/governance/audit"
	"github.com/wordgarden/gateway/internal/governance/limits"
	"github.com/wordgarden/gateway/internal/governance/quota"
	"github.com/wordgarden/gateway/internal/governance/stats"
	"github.com/wordgarden/gateway/internal/kv"
	"github.com/wordgarden/gateway/internal/middleware"
	inats "github.com/wordgarden/gateway/internal/nats"
	iredis "github.com/wordgarden/gateway/internal/redis"
	"github.com/wordgarden/gateway/internal/server"
	"github.com/wordgarden/gateway/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Redis backs every durable record
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	store := kv.NewRedisStore(redisClient)

	// Users, limits and quota
	userSvc := users.NewService(users.NewRepository(store))
	resolver := limits.NewResolver(store, limits.Limits{
		Monthly: cfg.Limits.Monthly,
		Daily:   cfg.Limits.Daily,
	})
	userSvc.OnClaim(resolver.MoveOverride)

	dailyStats := stats.NewRecorder(store)
	ledger := quota.NewLedger(store, resolver, dailyStats)

	healthChecks := []api.HealthCheck{
		{
			Name:     "redis",
			Required: true,
			Check: func(ctx context.Context) error {
				return iredis.HealthCheck(ctx, redisClient)
			},
		},
	}

	// PostgreSQL (optional audit trail)
	var auditRepo *audit.Repository
	pgCheck := api.HealthCheck{Name: "postgres"}
	if cfg.DB.Enabled() {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}

		pool, err := database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		auditRepo = audit.NewRepository(pool)
		pgCheck.Check = func(ctx context.Context) error {
			return database.HealthCheck(ctx, pool)
		}
	}
	healthChecks = append(healthChecks, pgCheck)

	// NATS JetStream (optional audit transport)
	var natsClient *inats.Client
	natsCheck := api.HealthCheck{Name: "nats"}
	if cfg.NATS.Enabled() {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		natsCheck.Check = func(context.Context) error {
			if !natsClient.Healthy() {
				return inats.ErrDisconnected
			}
			return nil
		}
	}
	healthChecks = append(healthChecks, natsCheck)

	// Audit recorder: publish when NATS is up, write straight to Postgres
	// when only the database is, and fall back to the log otherwise.
	var recorder audit.Recorder = audit.LogRecorder{}
	var auditLister governance.AuditLister
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	switch {
	case natsClient != nil:
		recorder = audit.NewPublishingRecorder(inats.NewPublisher(natsClient.JetStream()))
		if auditRepo != nil {
			consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
			go func() {
				if err := consumer.Start(consumerCtx); err != nil {
					slog.Error("audit consumer stopped", "error", err)
				}
			}()
		}
	case auditRepo != nil:
		recorder = audit.NewDirectRecorder(auditRepo)
	}
	if auditRepo != nil {
		auditLister = auditRepo
	}

	// Auth
	verifier := auth.NewFirebaseVerifier(cfg.Identity.LookupURL, cfg.Identity.APIKey, cfg.Identity.Timeout)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	authSvc := auth.NewService(verifier, jwtManager, userSvc, recorder)
	authHandler := auth.NewHandler(authSvc)

	// Generation
	genSvc := generation.NewService(ledger, generation.NewWorkersAI(cfg.AI), recorder)
	genHandler := generation.NewHandler(genSvc)

	// Governance and admin
	govHandler := governance.NewHandler(ledger, auditLister)
	adminSvc := admin.NewService(userSvc, ledger, resolver, dailyStats, recorder)
	adminHandler := admin.NewHandler(adminSvc)

	exchangeLimiter := middleware.NewRateLimiter(redisClient, "exchange", cfg.RateLimit.ExchangeMax, cfg.RateLimit.ExchangeWindowSec)

	// Router
	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins:  cfg.CORS.AllowedOrigins,
		ExchangeRateLimiter: exchangeLimiter.Middleware,
		HealthChecks:        healthChecks,
	}, api.HandlerSet{
		ExchangeToken: authHandler.ExchangeToken,

		Generate:     genHandler.Generate,
		GetUserQuota: govHandler.GetQuota,

		Dashboard:       adminHandler.Dashboard,
		AddUser:         adminHandler.AddUser,
		RemoveUser:      adminHandler.RemoveUser,
		SetUserLimits:   adminHandler.SetUserLimits,
		SetGlobalLimits: adminHandler.SetGlobalLimits,
		ListAuditLogs:   govHandler.ListAuditLogs,

		AuthMiddleware:     auth.Middleware(jwtManager),
		ActivityMiddleware: auth.TrackActivity(userSvc),
		AdminMiddleware:    auth.RequireAdmin(cfg.Admin.Emails),
	})

	// Start server
	srv := server.New(cfg.Server, router, cfg.AI.Timeout+5*time.Second)
	srv.OnShutdown(stopConsumer)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
