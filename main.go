package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/audit"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/config"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/database"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/face"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/middleware"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/monitoring"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/redisclient"
	v1database "github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/database"
	v1handlers "github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/handlers"
	v1services "github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/services"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "lysa-identity"

func main() {
	// Load .env file if it exists (optional - fails silently if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	slog.Info("Starting identity service initialization")

	settings, err := config.LoadSettings(config.GetEnvOrDefault("CONFIG_PATH", config.DefaultSettingsPath))
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	dbConfig := database.NewDatabaseConfig()
	gormDB, err := database.ConnectGormDB(dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	var repo *v1database.GormRepository
	if config.GetEnvBoolOrDefault("DB_AUTO_MIGRATE", true) {
		repo, err = v1database.NewGormRepository(gormDB)
		if err != nil {
			slog.Error("Failed to initialize user repository", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("DB_AUTO_MIGRATE disabled, expecting an existing users table")
		repo = v1database.NewGormRepositoryWithoutMigration(gormDB)
	}

	if err := monitoring.Initialize(monitoring.DefaultConfig(serviceName)); err != nil {
		// Metrics are optional; the service runs without them
		slog.Warn("Failed to initialize metrics", "error", err)
	}

	encoder, err := newEncoder()
	if err != nil {
		slog.Error("Failed to configure face encoder", "error", err)
		os.Exit(1)
	}

	tokens, err := newTokenIssuer(settings.Token)
	if err != nil {
		slog.Error("Failed to configure verification tokens", "error", err)
		os.Exit(1)
	}

	redisClient := connectRedis()
	auditClient := newAuditClient(redisClient)
	limiter := newLimiter(settings.RateLimit, redisClient)

	service := v1services.NewIdentityService(repo, encoder, settings.Verification, tokens, auditClient)
	identityHandler := v1handlers.NewIdentityHandler(service, settings.Verification.MaxImageBytes)
	healthHandler := v1handlers.NewHealthHandler(serviceName, func(ctx context.Context) error {
		return database.Ping(ctx, gormDB, 5*time.Second)
	})

	router := v1handlers.NewRouter(identityHandler, healthHandler, v1handlers.RouterOptions{
		Limiter:           limiter,
		TrustProxyHeaders: config.GetEnvBoolOrDefault("TRUST_PROXY_HEADERS", false),
	})

	port := config.GetEnvOrDefault("PORT", "8000")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Identity service starting",
			"port", port,
			"database", dbConfig.Type,
			"faceTolerance", settings.Verification.FaceTolerance,
			"tokensEnabled", tokens != nil,
			"rateLimited", limiter != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down identity service")
	shutdown(server, auditClient, redisClient, gormDB)
	slog.Info("Identity service exited")
}

// newEncoder configures the client for the face embedding service
func newEncoder() (face.Encoder, error) {
	var scopes []string
	if raw := config.GetEnvOrDefault("FACE_ENCODER_SCOPES", ""); raw != "" {
		scopes = strings.Fields(strings.ReplaceAll(raw, ",", " "))
	}
	return face.NewHTTPEncoder(face.HTTPEncoderConfig{
		BaseURL:      config.GetEnvOrDefault("FACE_ENCODER_URL", "http://localhost:8001"),
		Timeout:      config.GetEnvDurationOrDefault("FACE_ENCODER_TIMEOUT", 10*time.Second),
		ClientID:     config.GetEnvOrDefault("FACE_ENCODER_CLIENT_ID", ""),
		ClientSecret: config.GetEnvOrDefault("FACE_ENCODER_CLIENT_SECRET", ""),
		TokenURL:     config.GetEnvOrDefault("FACE_ENCODER_TOKEN_URL", ""),
		Scopes:       scopes,
	})
}

// newTokenIssuer returns nil when no signing secret is configured
func newTokenIssuer(settings config.TokenSettings) (*v1services.TokenIssuer, error) {
	secret := config.GetEnvOrDefault("VERIFICATION_TOKEN_SECRET", "")
	if secret == "" {
		slog.Info("VERIFICATION_TOKEN_SECRET not set, verification tokens disabled")
		return nil, nil
	}
	return v1services.NewTokenIssuer(secret, settings.Issuer, settings.TTL)
}

// connectRedis returns nil when Redis is not configured or unreachable
func connectRedis() *redis.Client {
	cfg := redisclient.NewConfigFromEnv()
	if !cfg.Enabled() {
		return nil
	}
	client, err := redisclient.NewClient(cfg)
	if err != nil {
		slog.Warn("Redis unavailable, continuing without it", "addr", cfg.Addr, "error", err)
		return nil
	}
	slog.Info("Connected to Redis", "addr", cfg.Addr)
	return client
}

// newAuditClient prefers the audit service, then a Redis stream, then a no-op client
func newAuditClient(redisClient *redis.Client) audit.Client {
	if url := config.GetEnvOrDefault("AUDIT_SERVICE_URL", ""); url != "" || redisClient == nil {
		return audit.NewClient(url)
	}
	stream := config.GetEnvOrDefault("AUDIT_REDIS_STREAM", "")
	if stream == "" {
		return audit.NewClient("")
	}
	slog.Info("Publishing audit events to Redis stream", "stream", stream)
	return audit.NewRedisStreamClient(redisClient, stream, int64(config.GetEnvIntOrDefault("AUDIT_REDIS_STREAM_MAXLEN", 100000)))
}

// newLimiter prefers a limiter shared through Redis and falls back to an in-process one
func newLimiter(settings config.RateLimitSettings, redisClient *redis.Client) middleware.Limiter {
	if !settings.Enabled {
		slog.Info("Rate limiting disabled")
		return nil
	}
	if redisClient == nil {
		return middleware.NewMemoryLimiter(settings.MaxRequests, settings.Window)
	}
	return middleware.NewRedisLimiter(redisClient, "lysa:ratelimit:", settings.MaxRequests, settings.Window)
}

func shutdown(server *http.Server, auditClient audit.Client, redisClient *redis.Client, db *gorm.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if err := auditClient.Close(ctx); err != nil {
		slog.Warn("Audit events still in flight at shutdown", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Warn("Failed to close Redis client", "error", err)
		}
	}
	if err := database.Close(db); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
