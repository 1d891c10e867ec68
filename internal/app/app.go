package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/seoulglow/kbeauty-store/internal/cache"
	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
	"github.com/seoulglow/kbeauty-store/internal/domain/notify"
	"github.com/seoulglow/kbeauty-store/internal/domain/order"
	"github.com/seoulglow/kbeauty-store/internal/handler"
	"github.com/seoulglow/kbeauty-store/internal/mail"
	"github.com/seoulglow/kbeauty-store/internal/repository"
	"github.com/seoulglow/kbeauty-store/pkg/health"
	"github.com/seoulglow/kbeauty-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// View cache.
	var store cache.Store
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = rdb.Close() }()
		store = rdb
	} else {
		lg.Warn("No Redis configured, using in-process view cache")
		mem := cache.NewMemory()
		go mem.Sweep(ctx, time.Minute)
		store = mem
	}
	views := cache.NewViews(store, cfg.Orders.ViewCacheTTL)

	// Mail transport.
	var transport notify.Transport = mail.Log{}
	if cfg.Mail.Host != "" {
		transport = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
		})
	} else {
		lg.Warn("No SMTP host configured, emails are logged only")
	}
	dispatcher, err := notify.NewDispatcher(transport, notify.Config{
		From:          mail.Address(cfg.Mail.FromName, cfg.Mail.From),
		StoreName:     cfg.Mail.FromName,
		MeterProvider: m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create notification dispatcher")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("cache", 2*time.Second, health.PingCheck(store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	// Domain services.
	orderService := order.NewService(orderRepo, dispatcher, views, order.ServiceConfig{
		EnforceTransitions: cfg.Orders.EnforceTransitions,
		ImageBaseURL:       cfg.ImageBaseURL,
		TracerProvider:     m.TracerProvider(),
	})
	if !cfg.Orders.EnforceTransitions {
		lg.Warn("Order status transitions are not enforced")
	}

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		productRepo,
		orderService,
		views,
	)
	securityHandler := handler.NewSecurityHandler(auth.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL))

	router := chi.NewRouter()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Mount(router, securityHandler)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.Instrument("glow-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Methods:          []string{http.MethodGet, http.MethodPatch, http.MethodOptions},
				Headers:          []string{"Content-Type", "Authorization"},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
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
