package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusDispatched OrderStatus = "Dispatched"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// legalTransitions maps each status to the statuses a seller or admin
// may move an order into. Terminal statuses have no outgoing edges.
var legalTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending: {
		OrderStatusProcessing: true,
		OrderStatusDispatched: true,
		OrderStatusCancelled:  true,
	},
	OrderStatusProcessing: {
		OrderStatusDispatched: true,
		OrderStatusCancelled:  true,
	},
	OrderStatusDispatched: {
		OrderStatusDelivered: true,
		OrderStatusCancelled: true,
	},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

var ErrIllegalTransition = errors.New("illegal order status transition")

// CanTransition reports whether an order may move from one status to
// another. Unknown source statuses have no legal transitions.
func CanTransition(from, to OrderStatus) bool {
	return legalTransitions[from][to]
}

// OrderItem is a snapshot copy of a cart line taken at submission time.
// Price, name and image are frozen and independent of later product edits.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
	SellerID  string          `json:"seller_id,omitempty"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a placed order. Total is fixed at creation time and never
// recomputed. Orders are never deleted, only status-transitioned.
type Order struct {
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []OrderItem     `json:"items"`
}

// FreezeItems converts cart lines into order items, copying values so
// the order stays untouched by later cart or catalog changes.
func FreezeItems(lines []CartLine) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			ImageRef:  l.ImageRef,
			SellerID:  l.SellerID,
		})
	}
	return items
}

// ItemsTotal sums unit price times quantity over the given items.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, i := range items {
		total = total.Add(i.Subtotal())
	}
	return total
}
