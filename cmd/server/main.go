package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/config"
	"storefront-be/internal/coupon"
	"storefront-be/internal/db"
	"storefront-be/internal/graph"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/outbox"
	"storefront-be/internal/payment"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/product"
	"storefront-be/internal/session"
	"storefront-be/internal/telemetry"
	"storefront-be/internal/transport"
	"storefront-be/internal/user"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const (
	serviceName    = "storefront-be"
	serviceVersion = "1.0.0"
	breakerTimeout = 30 * time.Second
)

// routes is everything the router mounts besides the ambient middlewares.
type routes struct {
	Checkout *checkout.Handler
	Payment  *payment.PageHandler
	Webhook  http.HandlerFunc
	Cart     *transport.CartHandler
	Orders   *transport.OrderHandler
	Auth     *transport.AuthHandler
	GraphQL  http.Handler
	Metrics  http.Handler
}

type server struct {
	handler    http.Handler
	dispatcher *outbox.Dispatcher
	orders     order.Service
	limiter    *middleware.RateLimiter
	closers    []io.Closer
	cfg        *config.Config
}

func setupRouter(cfg *config.Config, rt routes, tokens middleware.TokenParser, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(logger.LoggingMiddleware)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics)
	}

	secure := cfg.AppEnv == "production"
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(tokens))
		r.Use(limiter.Middleware)

		r.Post("/webhook/mockpay", rt.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(session.Middleware(secure))
			rt.Cart.Routes(r)
			rt.Checkout.Routes(r)
			rt.Orders.Routes(r)
			rt.Payment.Routes(r)
			rt.Auth.Routes(r)

			r.Method(http.MethodGet, "/query", rt.GraphQL)
			r.Method(http.MethodPost, "/query", rt.GraphQL)
			if !secure {
				r.Get("/playground", playground.Handler("Storefront GraphQL", "/query"))
			}
		})
	})

	return otelhttp.NewHandler(r, serviceName)
}

func newSessionStore(cfg *config.Config) (session.Store, io.Closer) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return session.NewRedisStore(client, cfg.SessionTTL), client
}

func newPublisher(cfg *config.Config) (outbox.Publisher, io.Closer) {
	if len(cfg.KafkaBrokers) == 0 {
		return outbox.NewLogPublisher(logger.L()), nil
	}
	kafka := outbox.NewKafkaPublisher(cfg.OrderEventsTopic, cfg.KafkaBrokers...)
	return outbox.NewBreakerPublisher(kafka, breakerTimeout), kafka
}

func newServer(cfg *config.Config, database *sql.DB, metricsHandler http.Handler) (*server, error) {
	if cfg.JWTSecret == "" {
		return nil, user.ErrMissingSecret
	}
	signer, err := payment.NewSigner(cfg.MockPayWebhookSecret)
	if err != nil {
		return nil, err
	}

	srv := &server{cfg: cfg}

	store, closer := newSessionStore(cfg)
	if closer != nil {
		srv.closers = append(srv.closers, closer)
	}
	pub, closer := newPublisher(cfg)
	if closer != nil {
		srv.closers = append(srv.closers, closer)
	}

	srv.dispatcher = outbox.NewDispatcher(outbox.NewRepository(database), pub, cfg.OutboxPollInterval)

	cartSvc := cart.NewService(cart.NewRepository(database), product.NewRepository(database))
	couponSvc := coupon.NewService(coupon.NewRepository(database))
	srv.orders = order.NewService(order.NewRepository(database), cartSvc, couponSvc, srv.dispatcher, order.Options{
		Currency:    cfg.Currency,
		ShippingFee: cfg.ShippingFee,
	})
	userSvc := user.NewService(user.NewRepository(database), cartSvc, user.Options{JWTSecret: cfg.JWTSecret})
	checkoutSvc := checkout.NewService(cartSvc, couponSvc, srv.orders, store, checkout.Options{Currency: cfg.Currency})
	paymentSvc := payment.NewService(srv.orders, signer, payment.NewRepository(database))

	resolver := &graph.Resolver{
		CartSvc:      cartSvc,
		OrderSvc:     srv.orders,
		UserSvc:      userSvc,
		SecureCookie: cfg.AppEnv == "production",
	}

	srv.limiter = middleware.NewRateLimiter(cfg.InternalSecretKey)
	srv.handler = setupRouter(cfg, routes{
		Checkout: checkout.NewHandler(checkoutSvc),
		Payment:  payment.NewPageHandler(paymentSvc),
		Webhook:  webhook.NewWebhookHandler(paymentSvc).MockPayWebhookHandler,
		Cart:     transport.NewCartHandler(cartSvc),
		Orders:   transport.NewOrderHandler(srv.orders),
		Auth:     transport.NewAuthHandler(userSvc, cfg.AppEnv == "production"),
		GraphQL:  graph.NewHandler(resolver),
		Metrics:  metricsHandler,
	}, userSvc, srv.limiter)

	return srv, nil
}

// start launches the background loops; they stop with ctx.
func (s *server) start(ctx context.Context) {
	go s.dispatcher.Run(ctx)
	go s.limiter.Run(ctx)
	go runReminders(ctx, s.orders, s.cfg.ReminderInterval)
}

func (s *server) close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logger.L().Warn("failed to close dependency", zap.Error(err))
		}
	}
}

func runReminders(ctx context.Context, orders order.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orders.SendPaymentReminders(ctx); err != nil {
				logger.L().Warn("payment reminder run failed", zap.Error(err))
			}
		}
	}
}

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsHandler, shutdownMetrics, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		log.Fatal("failed to init meter provider", zap.Error(err))
	}
	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		log.Fatal("failed to init tracer provider", zap.Error(err))
	}
	rec, err := metrics.New(otel.GetMeterProvider())
	if err != nil {
		log.Fatal("failed to create metric instruments", zap.Error(err))
	}
	metrics.SetDefault(rec)

	database := db.InitDB(cfg)
	defer database.Close()

	srv, err := newServer(cfg, database, metricsHandler)
	if err != nil {
		log.Fatal("failed to build server", zap.Error(err))
	}
	srv.start(ctx)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("storefront server listening", zap.String("port", cfg.AppPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	srv.close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", zap.Error(err))
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.Warn("meter shutdown failed", zap.Error(err))
	}
}
