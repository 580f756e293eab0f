package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kukuhub/storefront/internal/domain"
)

var (
	ErrLoginRequired = errors.New("login required")
	ErrEmptyCart     = errors.New("cart is empty")
)

// orderPayload is the wire shape of POST /orders/create.
type orderPayload struct {
	OrderID string             `json:"order_id"`
	UserID  string             `json:"user_id"`
	Total   decimal.Decimal    `json:"total"`
	Status  domain.OrderStatus `json:"status"`
	Items   []itemPayload      `json:"items"`
}

type itemPayload struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url"`
	SellerID  string          `json:"seller_id,omitempty"`
}

type createOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

// SubmitOrder builds a fresh order from the cart lines and creates it
// on the backend. Prices and names are sent as held locally; the
// backend is trusted to validate stock, not prices. Preconditions are
// checked before any network traffic.
func (c *Client) SubmitOrder(ctx context.Context, lines []domain.CartLine, buyerID string) (domain.Order, error) {
	if buyerID == "" {
		return domain.Order{}, ErrLoginRequired
	}
	if len(lines) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	items := domain.FreezeItems(lines)
	order := domain.Order{
		OrderID:   uuid.New().String(),
		UserID:    buyerID,
		Total:     domain.ItemsTotal(items).Round(2),
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now().UTC(),
		Items:     items,
	}

	if err := c.CreateOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}

	c.logger.Info("order submitted", "order_id", order.OrderID, "total", order.Total.String())
	return order, nil
}

// CreateOrder sends an already-built order to the backend verbatim.
// Used directly by the orders store for its background sync.
func (c *Client) CreateOrder(ctx context.Context, order domain.Order) error {
	payload := orderPayload{
		OrderID: order.OrderID,
		UserID:  order.UserID,
		Total:   order.Total,
		Status:  order.Status,
		Items:   toItemPayloads(order.Items),
	}

	var resp createOrderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/orders/create", payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return domain.NewFailure(domain.FailureBackend, orDefault(resp.Message, "Order could not be created."))
	}
	return nil
}

// serverOrder and serverItem mirror the backend's field names, which
// differ from the local order shape.
type serverOrder struct {
	OrderID   string             `json:"order_id"`
	UserID    string             `json:"user_id"`
	Total     decimal.Decimal    `json:"total"`
	Status    domain.OrderStatus `json:"status"`
	CreatedAt string             `json:"created_at"`
	Items     []serverItem       `json:"items"`
}

type serverItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url"`
	SellerID  string          `json:"seller_id"`
}

type listOrdersResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Orders  []serverOrder `json:"orders"`
}

// FetchOrders lists the buyer's orders from the backend and remaps
// them into the local order shape.
func (c *Client) FetchOrders(ctx context.Context, buyerID string) ([]domain.Order, error) {
	if buyerID == "" {
		return nil, ErrLoginRequired
	}

	var resp listOrdersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/orders", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, domain.NewFailure(domain.FailureBackend, orDefault(resp.Message, "Could not fetch orders."))
	}

	orders := make([]domain.Order, 0, len(resp.Orders))
	for _, so := range resp.Orders {
		orders = append(orders, remapOrder(so))
	}
	return orders, nil
}

type updateStatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UpdateOrderStatus asks the backend to move an order to a new status.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	body := map[string]domain.OrderStatus{"status": status}

	var resp updateStatusResponse
	path := fmt.Sprintf("/orders/update-status/%s", orderID)
	if err := c.doJSON(ctx, http.MethodPut, path, body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return domain.NewFailure(domain.FailureBackend, orDefault(resp.Message, "Order status could not be updated."))
	}
	return nil
}

func toItemPayloads(items []domain.OrderItem) []itemPayload {
	out := make([]itemPayload, 0, len(items))
	for _, i := range items {
		out = append(out, itemPayload{
			ProductID: i.ProductID,
			Name:      i.Name,
			Price:     i.UnitPrice,
			Quantity:  i.Quantity,
			ImageURL:  i.ImageRef,
			SellerID:  i.SellerID,
		})
	}
	return out
}

func remapOrder(so serverOrder) domain.Order {
	items := make([]domain.OrderItem, 0, len(so.Items))
	for _, si := range so.Items {
		items = append(items, domain.OrderItem{
			ProductID: si.ProductID,
			Name:      si.Name,
			UnitPrice: si.Price,
			Quantity:  si.Quantity,
			ImageRef:  si.ImageURL,
			SellerID:  si.SellerID,
		})
	}
	return domain.Order{
		OrderID:   so.OrderID,
		UserID:    so.UserID,
		Total:     so.Total,
		Status:    so.Status,
		CreatedAt: parseServerTime(so.CreatedAt),
		Items:     items,
	}
}

// parseServerTime accepts both RFC3339 and the backend's bare ISO
// format without a zone. A blank or unparseable value becomes the zero
// time rather than an error; display code tolerates it.
func parseServerTime(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
