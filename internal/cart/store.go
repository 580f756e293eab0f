package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kukuhub/storefront/internal/domain"
	"github.com/kukuhub/storefront/internal/notify"
	"github.com/kukuhub/storefront/internal/storage"
)

// Store holds the cart lines and mirrors every mutation to the
// snapshot store under the "cart" key. It rehydrates from that key at
// construction and silently starts empty when the snapshot is missing
// or unreadable.
type Store struct {
	mu        sync.Mutex
	lines     []domain.CartLine
	snapshots storage.SnapshotStore
	notifier  notify.Notifier
	logger    *slog.Logger
}

func NewStore(ctx context.Context, snapshots storage.SnapshotStore, notifier notify.Notifier, logger *slog.Logger) *Store {
	s := &Store{
		snapshots: snapshots,
		notifier:  notifier,
		logger:    logger,
	}

	raw, ok, err := snapshots.Get(ctx, storage.KeyCart)
	if err != nil {
		logger.Warn("failed to read cart snapshot", "error", err)
		return s
	}
	if !ok {
		return s
	}
	if err := json.Unmarshal(raw, &s.lines); err != nil {
		logger.Warn("discarding unreadable cart snapshot", "error", err)
		s.lines = nil
	}

	return s
}

// Add puts one unit of the product in the cart. An existing line for
// the same product id gains a unit instead of a second line appearing.
func (s *Store) Add(ctx context.Context, p domain.Product) {
	s.mu.Lock()
	found := false
	for i := range s.lines {
		if s.lines[i].ProductID == p.ID {
			s.lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		s.lines = append(s.lines, domain.NewCartLine(p))
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.Notify("Added to cart", p.Name)
}

// UpdateQuantity sets a line's quantity verbatim. Zero or below acts
// as removal; a quantity below 1 is never persisted. There is no upper
// bound: stock is validated server-side at order creation, not here.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, qty int) {
	if qty <= 0 {
		s.Remove(ctx, productID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Quantity = qty
			s.persistLocked(ctx)
			return
		}
	}
}

// Remove drops the line for the product id. Removing something that
// is not in the cart is a no-op and stays silent.
func (s *Store) Remove(ctx context.Context, productID string) {
	s.mu.Lock()
	var removed *domain.CartLine
	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.ProductID == productID {
			removed = &l
			continue
		}
		kept = append(kept, l)
	}
	s.lines = kept
	if removed != nil {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if removed != nil {
		s.notifier.Notify("Removed from cart", removed.Name)
	}
}

// Clear empties the cart and erases the persisted snapshot.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	if err := s.snapshots.Delete(ctx, storage.KeyCart); err != nil {
		s.logger.Warn("failed to erase cart snapshot", "error", err)
	}
}

// Total recomputes the cart total on every read, rounded to 2 decimal
// places.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

// Lines returns a copy of the current cart lines.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// persistLocked mirrors the full cart to the snapshot store. Snapshot
// failures are logged and swallowed: losing durability must not break
// the live cart.
func (s *Store) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(s.lines)
	if err != nil {
		s.logger.Error("failed to marshal cart", "error", err)
		return
	}
	if err := s.snapshots.Put(ctx, storage.KeyCart, raw); err != nil {
		s.logger.Warn("failed to persist cart snapshot", "error", err)
	}
}
