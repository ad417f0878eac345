// Package main is the entrypoint for the ytvaala API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ytvaala/ytvaala/internal/auth"
	"github.com/ytvaala/ytvaala/internal/cache"
	"github.com/ytvaala/ytvaala/internal/config"
	"github.com/ytvaala/ytvaala/internal/generation"
	"github.com/ytvaala/ytvaala/internal/handler"
	"github.com/ytvaala/ytvaala/internal/handler/dto"
	"github.com/ytvaala/ytvaala/internal/ledger"
	"github.com/ytvaala/ytvaala/internal/metered"
	"github.com/ytvaala/ytvaala/internal/metrics"
	"github.com/ytvaala/ytvaala/internal/middleware"
	"github.com/ytvaala/ytvaala/internal/repository"
	"github.com/ytvaala/ytvaala/internal/repository/memory"
	"github.com/ytvaala/ytvaala/internal/router"
	"github.com/ytvaala/ytvaala/internal/server"
	"github.com/ytvaala/ytvaala/internal/service"
	"github.com/ytvaala/ytvaala/internal/storage"
	"github.com/ytvaala/ytvaala/internal/validation"
)

const serviceName = "ytvaala"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// stores groups the persistence backends selected by STORE_DRIVER.
type stores struct {
	accounts   service.AccountStore
	operations metered.OperationStore
	reader     service.OperationReader
	ledger     ledger.Store
	checks     map[string]handler.HealthChecker
	closers    []closer
}

type closer struct {
	name string
	fn   server.ShutdownFunc
}

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Metrics
	recorder, metricsHandler := initMetrics(cfg)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		os.Exit(1)
	}

	// Operation cache (optional)
	var opCache service.OperationCache
	if cfg.RedisURL != "" {
		cacheClient, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		st.closers = append(st.closers, closer{"redis", func(ctx context.Context) error { return cacheClient.Close() }})
		st.checks["redis"] = cacheClient
		opCache = cacheClient
		logger.Info("connected to Redis")
	} else {
		st.checks["redis"] = nil
	}

	// Providers and storage
	catalog, seo := initProviders(cfg)
	if len(catalog.Names()) == 0 {
		logger.Warn("no image providers configured; paid endpoints will reject every request")
	}
	uploader, err := initUploader(cfg, logger)
	if err != nil {
		logger.Error("failed to configure object storage", "error", err)
		os.Exit(1)
	}

	// Services
	credits := ledger.New(st.ledger, recorder)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	runner := metered.New(st.operations, credits, metered.Config{
		Logger:        logger,
		Metrics:       recorder,
		MaxConcurrent: cfg.MaxConcurrentGenerations,
	})
	accountService := service.NewAccountService(
		st.accounts,
		credits,
		auth.NewArgon2Hasher(auth.DefaultArgon2Params),
		tokens,
		cfg.SignupBonus,
		logger,
	)
	imageConfig := service.ImageConfig{
		Catalog:  catalog,
		Uploader: uploader,
		Runner:   runner,
		Reader:   st.reader,
		Cache:    opCache,
		Metrics:  recorder,
		Logger:   logger,
	}
	if seo != nil {
		imageConfig.SEO = seo
	}
	imageService := service.NewImageService(imageConfig)

	// Handlers
	v := validation.New()
	dto.RegisterValidations(v)

	rt := router.New(router.Config{
		Logger:    logger,
		CORS:      corsConfig(cfg),
		RequestID: middleware.GetRequestID,
	})
	handler.Routes{
		Root:     handler.New(serviceName, version),
		Health:   handler.NewHealthHandler(st.checks),
		Auth:     handler.NewAuthHandler(accountService, v, logger),
		Credits:  handler.NewCreditsHandler(credits, v, logger),
		Images:   handler.NewImageHandler(imageService, v, logger),
		AuthGate: middleware.AuthGate(middleware.AuthConfig{Logger: logger, Verifier: tokens}),
	}.Register(rt)

	srv := server.New(
		setupRouter(rt, metricsHandler, recorder, cfg, logger),
		server.Config{
			Port:            cfg.AppPort,
			ReadTimeout:     cfg.ReadTimeout,
			WriteTimeout:    cfg.WriteTimeout,
			ShutdownTimeout: cfg.ShutdownTimeout,
		},
		logger,
	)
	for _, c := range st.closers {
		srv.OnShutdown(c.name, c.fn)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"providers", catalog.Names(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", serviceName)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initMetrics picks the recorder and the /metrics handler. The handler is
// nil when metrics are disabled.
func initMetrics(cfg *config.Config) (metrics.Recorder, http.Handler) {
	if !cfg.MetricsEnabled {
		return metrics.NewNoop(), nil
	}
	if cfg.MetricsBackend == config.MetricsBackendMemory {
		recorder := metrics.NewInMemory()
		return recorder, http.HandlerFunc(handler.NewMetricsHandler(recorder).Metrics)
	}
	recorder := metrics.NewPrometheus()
	return recorder, recorder.Handler()
}

// openStores connects the persistence layer. Accounts and operations go
// through the pgx pool; the ledger uses its own database/sql handle.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.New()
		return &stores{
			accounts:   store,
			operations: store,
			reader:     store,
			ledger:     store,
			checks:     map[string]handler.HealthChecker{"store": store},
		}, nil
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, err
	}

	ledgerStore, err := ledger.OpenSQLStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to open ledger database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		repo.Close()
		return nil, err
	}
	logger.Info("connected to database")

	return &stores{
		accounts:   repo,
		operations: repo,
		reader:     repo,
		ledger:     ledgerStore,
		checks: map[string]handler.HealthChecker{
			"postgres": repo,
			"ledger":   ledgerStore,
		},
		closers: []closer{
			{"postgres", func(ctx context.Context) error {
				repo.Close()
				return nil
			}},
			{"ledger", func(ctx context.Context) error { return ledgerStore.Close() }},
		},
	}, nil
}

// initProviders registers every provider with an API key. Gemini also
// writes SEO copy; it is returned separately so a missing key leaves the
// SEO endpoint unavailable.
func initProviders(cfg *config.Config) (*generation.Catalog, *generation.Gemini) {
	client := generation.NewHTTPClient()
	catalog := generation.NewCatalog()

	if cfg.OpenAIAPIKey != "" {
		catalog.Register(generation.NewOpenAI(generation.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			HTTPClient: client,
		}), cfg.OpenAIImageCost)
	}
	if cfg.ReplicateAPIKey != "" {
		catalog.Register(generation.NewReplicate(generation.ReplicateConfig{
			APIKey:     cfg.ReplicateAPIKey,
			Model:      cfg.ReplicateModel,
			HTTPClient: client,
		}), cfg.ReplicateImageCost)
	}

	var gemini *generation.Gemini
	if cfg.GeminiAPIKey != "" {
		gemini = generation.NewGemini(generation.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			HTTPClient: client,
		})
		catalog.Register(gemini, cfg.GeminiImageCost)
	}

	return catalog, gemini
}

// initUploader selects Spaces when a bucket is configured.
func initUploader(cfg *config.Config, logger *slog.Logger) (storage.Uploader, error) {
	if !cfg.SpacesEnabled() {
		logger.Warn("DO_SPACES_BUCKET not set; generated assets are kept in memory")
		return storage.NewMemory(""), nil
	}
	return storage.NewSpaces(storage.SpacesConfig{
		Endpoint:        cfg.SpacesEndpoint,
		Region:          cfg.SpacesRegion,
		Bucket:          cfg.SpacesBucket,
		AccessKeyID:     cfg.SpacesAccessKeyID,
		SecretAccessKey: cfg.SpacesSecretAccessKey,
		Logger:          logger,
	})
}

func corsConfig(cfg *config.Config) router.CORSConfig {
	cors := router.DefaultCORSConfig()
	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		cors.AllowedOrigins = origins
	}
	return cors
}

// setupRouter wraps the API router in the net/http middleware chain.
func setupRouter(
	api *router.Router,
	metricsHandler http.Handler,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger, cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Everything else, including 404 and 405, is answered by the API router.
	r.Handle("/*", api)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
