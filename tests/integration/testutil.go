//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wordgarden/gateway/client"
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
	"github.com/wordgarden/gateway/internal/users"
)

const adminEmail = "admin@example.com"

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Client      *client.Client
	Users       *users.Service
	Ledger      *quota.Ledger
}

var testEnv *TestEnv

// identities maps identity assertions accepted by the fake provider to the
// account they resolve to.
var identities = map[string]auth.Identity{
	"tok-admin": {SubjectID: "admin-uid", Email: adminEmail, DisplayName: "Admin"},
	"tok-alice": {SubjectID: "alice-uid", Email: "alice@example.com", DisplayName: "Alice"},
	"tok-bob":   {SubjectID: "bob-uid", Email: "bob@example.com", DisplayName: "Bob"},
	"tok-carol": {SubjectID: "carol-uid", Email: "carol@example.com", DisplayName: "Carol"},
	"tok-dave":  {SubjectID: "dave-uid", Email: "dave@example.com", DisplayName: "Dave"},
}

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "gateway_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Start NATS container
	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--jetstream", "--store_dir", "/data"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting nats container: %v", err)
	}

	natsHost, _ := natsContainer.Host(ctx)
	natsPort, _ := natsContainer.MappedPort(ctx, "4222")

	// PostgreSQL and migrations
	dbCfg := config.DBConfig{
		Host:     pgHost,
		Port:     pgPort.Int(),
		User:     "test",
		Password: "test",
		Name:     "gateway_test",
		SSLMode:  "disable",
		MaxConns: 5,
	}
	if err := database.RunMigrations(dbCfg.DSN(), getMigrationsPath()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	pool, err := database.NewPostgresPool(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})

	// NATS
	natsClient, err := inats.NewClient(ctx, config.NATSConfig{
		URL: fmt.Sprintf("nats://%s:%s", natsHost, natsPort.Port()),
	})
	if err != nil {
		t.Fatalf("connecting to nats: %v", err)
	}

	// Fake identity provider and model backend
	identitySrv := httptest.NewServer(http.HandlerFunc(fakeIdentityLookup))
	aiSrv := httptest.NewServer(http.HandlerFunc(fakeWorkersAI))

	// Services, wired the same way cmd/api does
	store := kv.NewRedisStore(redisClient)
	userSvc := users.NewService(users.NewRepository(store))
	resolver := limits.NewResolver(store, limits.Limits{Monthly: 50, Daily: 10})
	userSvc.OnClaim(resolver.MoveOverride)
	dailyStats := stats.NewRecorder(store)
	ledger := quota.NewLedger(store, resolver, dailyStats)

	auditRepo := audit.NewRepository(pool)
	recorder := audit.NewPublishingRecorder(inats.NewPublisher(natsClient.JetStream()))
	consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
	go consumer.Start(ctx)

	verifier := auth.NewFirebaseVerifier(identitySrv.URL, "test-key", 5*time.Second)
	jwtManager := auth.NewJWTManager("integration-secret-at-least-32-bytes!", time.Hour)
	authHandler := auth.NewHandler(auth.NewService(verifier, jwtManager, userSvc, recorder))

	genHandler := generation.NewHandler(generation.NewService(ledger, generation.NewWorkersAI(config.AIConfig{
		BaseURL:   aiSrv.URL,
		AccountID: "test-account",
		APIToken:  "test-token",
		Model:     "@cf/meta/llama-3.1-8b-instruct",
		Timeout:   5 * time.Second,
	}), recorder))

	govHandler := governance.NewHandler(ledger, auditRepo)
	adminHandler := admin.NewHandler(admin.NewService(userSvc, ledger, resolver, dailyStats, recorder))

	router := api.NewRouter(api.RouterConfig{
		ExchangeRateLimiter: middleware.NewRateLimiter(redisClient, "exchange", 1000, 60).Middleware,
		HealthChecks: []api.HealthCheck{
			{Name: "redis", Required: true, Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}},
			{Name: "postgres", Check: func(ctx context.Context) error {
				return database.HealthCheck(ctx, pool)
			}},
		},
	}, api.HandlerSet{
		ExchangeToken:   authHandler.ExchangeToken,
		Generate:        genHandler.Generate,
		GetUserQuota:    govHandler.GetQuota,
		Dashboard:       adminHandler.Dashboard,
		AddUser:         adminHandler.AddUser,
		RemoveUser:      adminHandler.RemoveUser,
		SetUserLimits:   adminHandler.SetUserLimits,
		SetGlobalLimits: adminHandler.SetGlobalLimits,
		ListAuditLogs:   govHandler.ListAuditLogs,

		AuthMiddleware:     auth.Middleware(jwtManager),
		ActivityMiddleware: auth.TrackActivity(userSvc),
		AdminMiddleware:    auth.RequireAdmin([]string{adminEmail}),
	})

	server := httptest.NewServer(router)

	// Containers are shared by every test in the package and removed by Ryuk
	// when the test binary exits.
	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Client:      client.New(server.URL),
		Users:       userSvc,
		Ledger:      ledger,
	}

	return testEnv
}

func getMigrationsPath() string {
	// Try relative paths from test directory
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

func fakeIdentityLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	id, ok := identities[req.IDToken]
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"INVALID_ID_TOKEN"}}`))
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"users": []map[string]string{{
			"localId":     id.SubjectID,
			"email":       id.Email,
			"displayName": id.DisplayName,
		}},
	})
}

// fakeWorkersAI echoes the prompt, or fails when the prompt is "fail".
func fakeWorkersAI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Prompt == "fail" {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"result":null,"success":false,"errors":[{"code":3001,"message":"internal error"}]}`))
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"result":  map[string]string{"response": "echo: " + req.Prompt},
		"success": true,
		"errors":  []any{},
	})
}

// Login exchanges the fake provider token for a session.
func Login(t *testing.T, env *TestEnv, token string) *client.Session {
	t.Helper()
	id := identities[token]
	s, err := env.Client.Exchange(context.Background(), token, client.Identity{
		SubjectID: id.SubjectID,
		Email:     id.Email,
		Name:      id.DisplayName,
	})
	if err != nil {
		t.Fatalf("exchange for %s: %v", token, err)
	}
	return s
}

// PostJSON sends an authenticated JSON request and decodes the reply.
func PostJSON(t *testing.T, env *TestEnv, s *client.Session, path string, body any) (int, map[string]any) {
	t.Helper()
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, env.Server.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s != nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	return send(t, req)
}

func GetJSON(t *testing.T, env *TestEnv, s *client.Session, path string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, env.Server.URL+path, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if s != nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return resp.StatusCode, result
}
