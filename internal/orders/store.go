// Package orders keeps the client-side order cache: the locally
// created orders merged with what the backend reports, persisted as a
// snapshot so the list survives restarts and backend outages.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kukuhub/storefront/internal/domain"
	"github.com/kukuhub/storefront/internal/storage"
)

var ErrNotFound = errors.New("order not found")

// Backend is the slice of the marketplace API the store needs.
type Backend interface {
	FetchOrders(ctx context.Context, buyerID string) ([]domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) error
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

const syncTimeout = 15 * time.Second

// Store is an optimistic client cache. Local mutations are visible
// immediately and synced to the backend best-effort in the background;
// a failed sync is logged, never rolled back. That at-least-once,
// no-compensation policy is deliberate: the next Refresh reconciles.
type Store struct {
	mu        sync.Mutex
	orders    []domain.Order
	snapshots storage.SnapshotStore
	backend   Backend
	logger    *slog.Logger

	// synced receives one signal per finished background sync. Nil
	// outside of tests.
	synced chan struct{}
}

func NewStore(ctx context.Context, snapshots storage.SnapshotStore, backend Backend, logger *slog.Logger) *Store {
	s := &Store{
		snapshots: snapshots,
		backend:   backend,
		logger:    logger,
	}

	raw, ok, err := snapshots.Get(ctx, storage.KeyOrders)
	if err != nil {
		logger.Warn("failed to read orders snapshot", "error", err)
		return s
	}
	if !ok {
		return s
	}
	if err := json.Unmarshal(raw, &s.orders); err != nil {
		logger.Warn("discarding unreadable orders snapshot", "error", err)
		s.orders = nil
	}

	return s
}

// Orders returns a copy of the cached list, newest first.
func (s *Store) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *Store) Get(orderID string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderID == orderID {
			return o, true
		}
	}
	return domain.Order{}, false
}

// Refresh replaces the cache wholesale with the backend's list. On
// failure the cache degrades to last-known-good instead of clearing.
func (s *Store) Refresh(ctx context.Context, buyerID string) error {
	fetched, err := s.backend.FetchOrders(ctx, buyerID)
	if err != nil {
		s.logger.Warn("orders refresh failed, keeping cached list", "error", err)
		return err
	}

	s.mu.Lock()
	s.orders = fetched
	s.persistLocked(ctx)
	s.mu.Unlock()
	return nil
}

// Insert prepends an order that the backend already knows about (the
// checkout path, where submission happened synchronously).
func (s *Store) Insert(ctx context.Context, order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append([]domain.Order{order}, s.orders...)
	s.persistLocked(ctx)
}

// Add prepends an order optimistically and pushes it to the backend in
// the background. A sync failure does not retract the visible order.
func (s *Store) Add(ctx context.Context, order domain.Order) {
	s.Insert(ctx, order)

	go func() {
		syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncTimeout)
		defer cancel()
		defer s.signalSynced()

		if err := s.backend.CreateOrder(syncCtx, order); err != nil {
			s.logger.Error("background order sync failed", "error", err, "order_id", order.OrderID)
		}
	}()
}

// UpdateStatus applies a status change locally, then syncs it
// best-effort. Illegal transitions and unknown orders are refused
// before anything mutates or leaves the process.
func (s *Store) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	s.mu.Lock()
	idx := -1
	for i := range s.orders {
		if s.orders[i].OrderID == orderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !domain.CanTransition(s.orders[idx].Status, status) {
		s.mu.Unlock()
		return domain.ErrIllegalTransition
	}

	s.orders[idx].Status = status
	s.persistLocked(ctx)
	s.mu.Unlock()

	go func() {
		syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncTimeout)
		defer cancel()
		defer s.signalSynced()

		if err := s.backend.UpdateOrderStatus(syncCtx, orderID, status); err != nil {
			s.logger.Error("background status sync failed", "error", err, "order_id", orderID, "status", status)
		}
	}()

	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(s.orders)
	if err != nil {
		s.logger.Error("failed to marshal orders", "error", err)
		return
	}
	if err := s.snapshots.Put(ctx, storage.KeyOrders, raw); err != nil {
		s.logger.Warn("failed to persist orders snapshot", "error", err)
	}
}

func (s *Store) signalSynced() {
	if s.synced != nil {
		s.synced <- struct{}{}
	}
}
