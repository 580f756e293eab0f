package storage

import "context"

// Snapshot keys shared by the stores. Each key maps to one JSON blob.
const (
	KeyCart          = "cart"
	KeyOrders        = "orders"
	KeyBuyerSession  = "buyerSession"
	KeySellerSession = "sellerSession"
	KeyAdminSession  = "adminSession"
)

// SnapshotStore is the durable local storage contract: fixed string
// keys mapped to JSON blobs, best-effort semantics. Missing keys are
// reported as absence, not as errors; callers treat corrupt payloads
// the same way. Nothing stored here is allowed to crash a caller.
type SnapshotStore interface {
	Put(ctx context.Context, key string, raw []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}
