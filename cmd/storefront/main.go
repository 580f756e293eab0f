package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kukuhub/storefront/internal/auth"
	"github.com/kukuhub/storefront/internal/backend"
	"github.com/kukuhub/storefront/internal/cart"
	"github.com/kukuhub/storefront/internal/checkout"
	"github.com/kukuhub/storefront/internal/notify"
	"github.com/kukuhub/storefront/internal/orders"
	"github.com/kukuhub/storefront/internal/storage"
	"github.com/kukuhub/storefront/internal/storefront"
	"github.com/kukuhub/storefront/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	providers, err := telemetry.Setup(ctx, "storefront", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = providers.Shutdown(ctx) }()

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		logger.Error("BACKEND_URL environment variable is required")
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	snapshots, err := openSnapshotStore(logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   15 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	// The M-Pesa path keeps the request open while the gateway pushes
	// the prompt to the handset; it needs more room than other calls.
	client := backend.New(backendURL, httpClient, logger,
		backend.WithPaymentTimeout(30*time.Second))

	notifier := notify.NewLogNotifier(logger)
	sessions := auth.NewManager(ctx, snapshots, logger)
	cartStore := cart.NewStore(ctx, snapshots, notifier, logger)
	orderStore := orders.NewStore(ctx, snapshots, client, logger)

	metrics, err := checkout.NewMetrics()
	if err != nil {
		logger.Error("failed to create checkout metrics", "error", err)
		os.Exit(1)
	}

	orchestrator := checkout.NewOrchestrator(
		client, client, newConfirmer(client, logger),
		cartStore, orderStore, sessions,
		notifier, metrics, logger,
	)

	handler := storefront.NewHandler(cartStore, orderStore, sessions, orchestrator, logger)
	proxy := storefront.NewBackendProxy(backendURL, httpClient, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(handler.HandleGetCart))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(handler.HandleAddToCart))
	mux.HandleFunc("PATCH /cart/items/{productId}", telemetry.WithHTTPRoute(handler.HandleUpdateQuantity))
	mux.HandleFunc("DELETE /cart/items/{productId}", telemetry.WithHTTPRoute(handler.HandleRemoveFromCart))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(handler.HandleClearCart))
	mux.HandleFunc("POST /auth/login", telemetry.WithHTTPRoute(handler.HandleLogin))
	mux.HandleFunc("POST /auth/logout", telemetry.WithHTTPRoute(handler.HandleLogout))
	mux.HandleFunc("GET /auth/sessions", telemetry.WithHTTPRoute(handler.HandleGetSessions))
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleListOrders))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleUpdateOrderStatus))
	mux.Handle("/products/", proxy)
	mux.Handle("/products", proxy)
	mux.Handle("/messages/", proxy)
	mux.Handle("/messages", proxy)
	mux.Handle("GET /metrics", providers.MetricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "storefront",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting storefront", "port", port, "backend", backendURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// openSnapshotStore picks Postgres when POSTGRES_URL is set and falls
// back to the on-disk store otherwise.
func openSnapshotStore(logger *slog.Logger) (storage.SnapshotStore, error) {
	if postgresURL := os.Getenv("POSTGRES_URL"); postgresURL != "" {
		db, err := telemetry.OpenDB("postgres", postgresURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			return nil, err
		}
		logger.Info("using postgres snapshot store")
		return storage.NewPostgresStore(db), nil
	}

	dir := os.Getenv("SNAPSHOT_DIR")
	if dir == "" {
		dir = "data"
	}
	logger.Info("using file snapshot store", "dir", dir)
	return storage.NewFileStore(dir)
}

// newConfirmer selects how payment confirmation is decided. The default
// mirrors the production storefront: wait a fixed interval after a
// successful initiation and assume the payment settled. Set
// CONFIRMATION_MODE=poll to ask the backend for the real status.
func newConfirmer(client *backend.Client, logger *slog.Logger) checkout.Confirmer {
	if os.Getenv("CONFIRMATION_MODE") == "poll" {
		interval := 5 * time.Second
		attempts := 24
		if raw := os.Getenv("CONFIRMATION_POLL_ATTEMPTS"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				attempts = n
			}
		}
		logger.Info("payment confirmation via status polling", "interval", interval, "attempts", attempts)
		return checkout.NewPollingConfirmer(client, interval, attempts)
	}

	logger.Info("payment confirmation via fixed delay")
	return checkout.NewDelayConfirmer(3 * time.Second)
}
