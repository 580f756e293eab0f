//go:build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kukuhub/storefront/internal/auth"
	"github.com/kukuhub/storefront/internal/backend"
	"github.com/kukuhub/storefront/internal/cart"
	"github.com/kukuhub/storefront/internal/checkout"
	"github.com/kukuhub/storefront/internal/domain"
	"github.com/kukuhub/storefront/internal/notify"
	"github.com/kukuhub/storefront/internal/orders"
	"github.com/kukuhub/storefront/internal/storage"
)

func TestPostgresSnapshotStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	store := storage.NewPostgresStore(db)

	if err := store.Put(ctx, storage.KeyCart, []byte(`[{"product_id":"p1"}]`)); err != nil {
		t.Fatalf("failed to put snapshot: %v", err)
	}

	raw, ok, err := store.Get(ctx, storage.KeyCart)
	if err != nil {
		t.Fatalf("failed to get snapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot to exist")
	}
	if string(raw) != `[{"product_id":"p1"}]` {
		t.Fatalf("unexpected snapshot content: %s", raw)
	}

	// Overwrite instead of duplicate.
	if err := store.Put(ctx, storage.KeyCart, []byte(`[]`)); err != nil {
		t.Fatalf("failed to overwrite snapshot: %v", err)
	}
	raw, _, err = store.Get(ctx, storage.KeyCart)
	if err != nil {
		t.Fatalf("failed to re-read snapshot: %v", err)
	}
	if string(raw) != `[]` {
		t.Fatalf("expected overwritten content, got %s", raw)
	}

	if err := store.Delete(ctx, storage.KeyCart); err != nil {
		t.Fatalf("failed to delete snapshot: %v", err)
	}
	_, ok, err = store.Get(ctx, storage.KeyCart)
	if err != nil {
		t.Fatalf("failed to get after delete: %v", err)
	}
	if ok {
		t.Fatal("expected snapshot to be gone after delete")
	}

	if err := store.Delete(ctx, storage.KeyCart); err != nil {
		t.Fatalf("expected deleting a missing key to be a no-op, got %v", err)
	}
}

func TestStoresRehydrateFromPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	snapshots := storage.NewPostgresStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := notify.NewLogNotifier(logger)

	cartStore := cart.NewStore(ctx, snapshots, notifier, logger)
	cartStore.Add(ctx, domain.Product{ID: "p1", Name: "Free Range Chicken", UnitPrice: decimal.NewFromInt(450)})
	cartStore.Add(ctx, domain.Product{ID: "p1", Name: "Free Range Chicken", UnitPrice: decimal.NewFromInt(450)})

	sessions := auth.NewManager(ctx, snapshots, logger)
	if err := sessions.Login(ctx, auth.Session{UserID: "u-1", Email: "buyer@example.com", Role: auth.RoleBuyer}); err != nil {
		t.Fatalf("failed to log in: %v", err)
	}

	// A fresh process over the same database sees the same state.
	reloadedCart := cart.NewStore(ctx, snapshots, notifier, logger)
	if reloadedCart.Len() != 1 {
		t.Fatalf("expected 1 cart line after rehydration, got %d", reloadedCart.Len())
	}
	if got := reloadedCart.Total(); !got.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("expected total 900, got %s", got)
	}

	reloadedSessions := auth.NewManager(ctx, snapshots, logger)
	buyer, ok := reloadedSessions.Buyer()
	if !ok {
		t.Fatal("expected buyer session to survive restart")
	}
	if buyer.UserID != "u-1" {
		t.Fatalf("unexpected buyer: %+v", buyer)
	}
}

func TestCheckoutAgainstBackend(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	backendMux := http.NewServeMux()
	backendMux.HandleFunc("POST /mpesa/stkpush", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":           true,
			"message":           "STK push sent",
			"checkoutRequestID": "ws_CO_1",
		})
	})
	backendMux.HandleFunc("POST /orders/create", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Order created",
		})
	})
	backendServer := httptest.NewServer(backendMux)
	defer backendServer.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := notify.NewLogNotifier(logger)
	snapshots := storage.NewPostgresStore(db)

	client := backend.New(backendServer.URL, backendServer.Client(), logger)
	cartStore := cart.NewStore(ctx, snapshots, notifier, logger)
	orderStore := orders.NewStore(ctx, snapshots, client, logger)
	sessions := auth.NewManager(ctx, snapshots, logger)

	if err := sessions.Login(ctx, auth.Session{UserID: "u-1", Role: auth.RoleBuyer}); err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	cartStore.Add(ctx, domain.Product{ID: "p1", Name: "Free Range Chicken", UnitPrice: decimal.NewFromInt(450)})

	orchestrator := checkout.NewOrchestrator(
		client, client, checkout.NewDelayConfirmer(10*time.Millisecond),
		cartStore, orderStore, sessions,
		notifier, nil, logger,
	)

	outcome := orchestrator.Run(ctx, "0712345678")
	if !outcome.Completed() {
		t.Fatalf("expected completed checkout, got %+v", outcome)
	}

	if cartStore.Len() != 0 {
		t.Fatal("expected empty cart after checkout")
	}

	// The order record survives a process restart via Postgres.
	reloadedOrders := orders.NewStore(ctx, snapshots, client, logger)
	got := reloadedOrders.Orders()
	if len(got) != 1 {
		t.Fatalf("expected 1 cached order, got %d", len(got))
	}
	if got[0].Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", got[0].Status)
	}
}
