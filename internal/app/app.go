// Package app wires configuration, storage, domain services, and the HTTP
// server into a runnable storefront API.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/weeraset/conduit-store/internal/domain/auth"
	"github.com/weeraset/conduit-store/internal/domain/coupon"
	"github.com/weeraset/conduit-store/internal/domain/order"
	"github.com/weeraset/conduit-store/internal/domain/product"
	"github.com/weeraset/conduit-store/internal/handler"
	"github.com/weeraset/conduit-store/internal/memstore"
	"github.com/weeraset/conduit-store/internal/postgres"
	"github.com/weeraset/conduit-store/pkg/health"
	"github.com/weeraset/conduit-store/pkg/httpmiddleware"
)

// repositories groups one backend's repository set. Both backends satisfy the
// same contracts, so everything past this point is backend-agnostic.
type repositories struct {
	products product.Repository
	coupons  coupon.Repository
	orders   order.Repository
	payments order.PaymentRepository
	apikeys  auth.Repository
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))

	var repos repositories
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})

		repos = repositories{
			products: postgres.NewProductRepository(pool),
			coupons:  postgres.NewCouponRepository(pool),
			orders:   postgres.NewOrderRepository(pool),
			payments: postgres.NewPaymentRepository(pool),
			apikeys:  postgres.NewAPIKeyRepository(pool),
		}
		lg.Info("Using PostgreSQL backend")
	} else {
		store := memstore.New()
		seedDemoData(store)
		repos = repositories{
			products: store.Products(),
			coupons:  store.Coupons(),
			orders:   store.Orders(),
			payments: store.Payments(),
			apikeys:  store.APIKeys(),
		}
		lg.Info("Using in-memory backend with demo catalog")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	policy, err := cfg.UsagePolicy()
	if err != nil {
		return err
	}
	applier := coupon.NewApplier(repos.coupons, policy)
	orderSvc := order.NewService(repos.products, applier, repos.orders, repos.payments, cfg.InvoiceBaseURL)

	h, err := handler.NewHandler(repos.products, applier, repos.orders, orderSvc, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	admin := handler.NoAuth
	if cfg.APIKeyPepper != "" {
		admin = handler.APIKeyAuth(repos.apikeys, []byte(cfg.APIKeyPepper))
	} else {
		lg.Warn("No API key pepper configured, admin routes are open")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, admin)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(mux, "conduit-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Requests: cfg.RateLimit.Max,
				Window:   cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
