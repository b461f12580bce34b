package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/decantory/backend-decantory/internal/bundle"
	"github.com/decantory/backend-decantory/internal/cart"
	"github.com/decantory/backend-decantory/internal/catalog"
	"github.com/decantory/backend-decantory/internal/checkout"
	"github.com/decantory/backend-decantory/internal/common"
	"github.com/decantory/backend-decantory/internal/config"
	"github.com/decantory/backend-decantory/internal/db"
	"github.com/decantory/backend-decantory/internal/health"
	"github.com/decantory/backend-decantory/internal/lock"
	"github.com/decantory/backend-decantory/internal/notify"
	"github.com/decantory/backend-decantory/internal/obs"
	"github.com/decantory/backend-decantory/internal/order"
	"github.com/decantory/backend-decantory/internal/ratelimit"
	"github.com/decantory/backend-decantory/internal/shipping"
	"github.com/decantory/backend-decantory/internal/store"
)

const serviceName = "decantory-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics("decantory", nil)
	httpMetrics := obs.NewHTTPMetrics("decantory", nil, nil)

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   serviceName,
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
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

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() { _ = redisClient.Close() }()

	locker := lock.Locker{R: redisClient}

	// only one replica runs migrations at a time; the others wait for it
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 2*time.Minute)
	err = locker.WithLock(migrateCtx, "migrate:schema", 2*time.Minute, func(context.Context) error {
		return db.Migrate(cfg.DatabaseURL)
	})
	cancelMigrate()
	if err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, serviceName)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() { _ = taskClient.Close() }()

	queries := store.New(pool)
	catalogSvc := &catalog.Service{
		Store: queries,
		Cache: catalog.NewCache(redisClient, 5*time.Minute),
	}

	sessions := bundle.Sessions{R: redisClient, TTL: cfg.BuilderTTL}
	bundleHandler := &bundle.Handler{Catalog: catalogSvc, Sessions: sessions}

	cartSvc := &cart.Service{
		Store:   cart.RedisStore{R: redisClient, TTL: cfg.CartTTL},
		Catalog: catalogSvc,
	}
	cartHandler := &cart.Handler{Carts: cartSvc, Sessions: sessions, TaxBps: cfg.TaxRateBPS}

	checkoutSvc := &checkout.Service{
		Carts:       cartSvc,
		Resolver:    checkout.Resolver{Catalog: catalogSvc, Logger: logger},
		Orders:      orderPersister{queries: queries, pool: pool},
		Locks:       locker,
		Validate:    validator.New(),
		Notify:      notify.Enqueuer{Client: taskClient, Logger: logger},
		Logger:      logger,
		Currency:    cfg.CurrencyCode,
		TaxBps:      cfg.TaxRateBPS,
		Concurrency: cfg.ResolverConcurrency,
		LockTTL:     cfg.CheckoutLockTTL,
	}
	checkoutHandler := &checkout.Handler{Checkout: checkoutSvc}
	orderHandler := &order.Handler{Orders: queries}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	checkoutLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:checkout:"},
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP,
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateMax,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	checker := health.Checker{Pool: pool, Redis: redisClient}
	r.Get("/health/live", checker.Live)
	r.Get("/health/ready", checker.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/shipping/methods", shipping.ListMethods)

		v.Get("/sets", bundleHandler.ListSets)
		v.Get("/sets/{configId}", bundleHandler.GetSet)
		v.Post("/sets/{configId}/builder", bundleHandler.CreateBuilder)

		v.Route("/builders/{builderId}", func(b chi.Router) {
			b.Get("/", bundleHandler.GetBuilder)
			b.Post("/slots", bundleHandler.AutoAssign)
			b.Put("/slots/{slot}", bundleHandler.AssignSlot)
			b.Delete("/slots/{slot}", bundleHandler.ClearSlot)
		})

		v.Post("/carts", cartHandler.Create)
		v.Route("/carts/{cartId}", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Post("/items", cartHandler.AddItem)
			c.Post("/sets", cartHandler.AddFixedSet)
			c.Post("/custom-sets", cartHandler.AddCustomSet)
			c.Patch("/lines/{lineId}", cartHandler.UpdateLine)
			c.Delete("/lines/{lineId}", cartHandler.RemoveLine)
		})

		v.Group(func(co chi.Router) {
			co.Use(checkoutLimit.Middleware)
			co.Use(idem.Middleware)
			co.Post("/checkout", checkoutHandler.Create)
		})

		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{orderId}", orderHandler.Get)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

// orderPersister binds the store's transactional order insert to the pool.
type orderPersister struct {
	queries *store.Store
	pool    *pgxpool.Pool
}

func (p orderPersister) CreateOrderWithItems(ctx context.Context, params store.CreateOrderParams, items []store.CreateOrderItemParams) (store.Order, error) {
	return p.queries.CreateOrderWithItems(ctx, p.pool, params, items)
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
