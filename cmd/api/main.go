package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rvk/skycommerce/internal/cart"
	"github.com/rvk/skycommerce/internal/client"
	"github.com/rvk/skycommerce/internal/config"
	"github.com/rvk/skycommerce/internal/health"
	"github.com/rvk/skycommerce/internal/obs"
	"github.com/rvk/skycommerce/internal/pricing"
	"github.com/rvk/skycommerce/internal/ratelimit"
	"github.com/rvk/skycommerce/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	if cfg.TracingEnabled {
		shutdown, err := obs.SetupTracing(context.Background(), "skycommerce-api", cfg.AppEnv, cfg.TracingEndpoint, cfg.TracingRatio)
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := connectDB(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}
	redisClient := connectRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	clientStore, cartStore, ruleSource := buildStores(pool)

	resolver, err := buildResolver(cfg, ruleSource, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise pricing")
	}

	clientSvc := &client.Service{Store: clientStore, Log: logger}
	cartSvc := &cart.Service{
		Carts:   cartStore,
		Clients: clientStore,
		Pricer:  resolver,
		Cache:   cart.NewCache(redisClient, cfg.CartCacheTTL, logger),
		Log:     logger,
	}

	validate := validator.New()
	clientHandler := &client.Handler{Svc: clientSvc, Validate: validate}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: validate}

	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware("skycommerce-api"))
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if cfg.RateLimitEnabled {
		lim, err := ratelimit.New(redisClient, cfg.RateLimitRPM)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise rate limiter")
		}
		r.Use(ratelimit.Middleware(lim, logger))
	}

	healthHandler := health.Handler{DB: pool, Redis: redisClient}
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		clientHandler.Register(api)
		cartHandler.Register(api)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("pricing_mode", string(cfg.PricingMode)).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

// connectDB opens the pool and applies pending migrations. A missing
// DATABASE_URL is allowed: the server runs on in-memory storage then.
func connectDB(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL unset; using in-memory storage")
		return nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.QueryTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "skycommerce-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	return pool
}

func runMigrations(databaseURL string) error {
	url := databaseURL
	if strings.HasPrefix(url, "postgres://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgres://")
	} else if strings.HasPrefix(url, "postgresql://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgresql://")
	}
	m, err := migrate.New("file://migrations", url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL unset; result caching disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return rdb
}

func buildStores(pool *pgxpool.Pool) (client.Store, cart.Store, pricing.RuleSource) {
	if pool != nil {
		pg := repo.NewPostgres(pool)
		return pg, pg, pg
	}
	mem := repo.NewMemory()
	mem.SeedDefaultRules()
	return mem, mem, mem
}

func buildResolver(cfg *config.Config, rules pricing.RuleSource, rdb *redis.Client, logger zerolog.Logger) (pricing.Resolver, error) {
	switch cfg.PricingMode {
	case config.PricingModeDB:
		cached := pricing.NewCachedRules(rules, rdb, cfg.RuleCacheTTL, logger)
		return pricing.NewRuleResolver(cached, logger), nil
	default:
		table, err := pricing.LoadTable(cfg.PricingFile)
		if err != nil {
			return nil, err
		}
		return pricing.NewStaticResolver(table, logger), nil
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
