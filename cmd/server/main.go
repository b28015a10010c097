package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/auth"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/config"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/handlers"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/metrics"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/orders"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/payment"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/ratelimit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

func main() {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}

	if err := db.Migrate("migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Background collaborators
	recorder := audit.NewRecorder(db, cfg.AuditBuffer, cfg.AuditRetention)
	limiter := ratelimit.New()
	guard := &auth.Guard{Audit: recorder}

	paymentClient := payment.NewClient(payment.Config{
		BaseURL:   cfg.PaymentBaseURL,
		StoreID:   cfg.PaymentStoreID,
		StorePass: cfg.PaymentStorePass,
		Timeout:   cfg.PaymentTimeout,
	}, logger)

	orderService := orders.NewService(db, paymentClient)

	// 5. Setup Handlers
	authHandler := &handlers.AuthHandler{Store: db, Sessions: sessionStore, Audit: recorder}
	orderHandler := &handlers.OrderHandler{Orders: orderService, Audit: recorder}
	adminOrderHandler := &handlers.AdminOrderHandler{Orders: orderService, Audit: recorder}
	productHandler := &handlers.ProductHandler{Store: db, Audit: recorder}
	paymentHandler := &handlers.PaymentHandler{Orders: orderService, Audit: recorder}

	authLimit := handlers.RateLimit(limiter, 10, time.Minute)
	createLimit := handlers.RateLimit(limiter, 5, 5*time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", authLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	mux.HandleFunc("GET /api/orders", guard.Auth(orderHandler.List))
	mux.HandleFunc("POST /api/orders", guard.Auth(createLimit(orderHandler.Create)))
	mux.HandleFunc("DELETE /api/orders", guard.Auth(orderHandler.Clear))
	mux.HandleFunc("GET /api/orders/{id}", guard.Auth(orderHandler.Get))
	mux.HandleFunc("PUT /api/orders/{id}", guard.Admin(adminOrderHandler.Update))

	mux.HandleFunc("PUT /api/admin/orders", guard.Admin(adminOrderHandler.BulkUpdate))
	mux.HandleFunc("PUT /api/admin/orders/{id}", guard.Admin(adminOrderHandler.Update))
	mux.HandleFunc("PUT /api/admin/products", guard.Admin(productHandler.BulkUpdate))

	mux.HandleFunc("POST /api/products/{id}/reviews", guard.Auth(productHandler.AddReview))
	mux.HandleFunc("DELETE /api/products/{id}/reviews/{reviewId}", guard.Auth(productHandler.DeleteReview))

	// 6. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)
	sessionAuth := &handlers.SessionAuth{Sessions: sessionStore, Store: db}

	// Chain: Logger -> Security Headers -> Metrics -> CSRF -> Session -> Mux.
	// The payment callback and metrics scrape come from non-browser callers
	// holding no session, so they bypass the CSRF layer.
	protected := CSRF(sessionAuth.Middleware(mux))

	outer := http.NewServeMux()
	outer.HandleFunc("POST /api/payments/callback", paymentHandler.Callback)
	outer.Handle("GET /metrics", promhttp.Handler())
	outer.Handle("/", protected)

	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			metrics.Middleware(outer),
		),
	)

	// 7. Start server and workers with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := recorder.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exited gracefully.")
}
