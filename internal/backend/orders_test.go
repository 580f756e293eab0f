package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kukuhub/storefront/internal/domain"
)

func sampleLines() []domain.CartLine {
	return []domain.CartLine{
		{ProductID: "p1", Name: "Free Range Chicken", UnitPrice: decimal.NewFromInt(100), Quantity: 2, ImageRef: "/static/p1.jpg", SellerID: "s-1"},
		{ProductID: "p2", Name: "Kienyeji Eggs", UnitPrice: decimal.NewFromInt(250), Quantity: 1},
	}
}

func TestSubmitOrder(t *testing.T) {
	t.Run("refuses without a buyer and makes no network call", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		_, err := testClient(t, server).SubmitOrder(t.Context(), sampleLines(), "")
		if !errors.Is(err, ErrLoginRequired) {
			t.Errorf("expected ErrLoginRequired, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no network call, got %d", calls.Load())
		}
	})

	t.Run("refuses an empty cart and makes no network call", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		_, err := testClient(t, server).SubmitOrder(t.Context(), nil, "u-1")
		if !errors.Is(err, ErrEmptyCart) {
			t.Errorf("expected ErrEmptyCart, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no network call, got %d", calls.Load())
		}
	})

	t.Run("sends the frozen payload and returns a pending order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders/create" || r.Method != http.MethodPost {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}

			var payload struct {
				OrderID string `json:"order_id"`
				UserID  string `json:"user_id"`
				Total   string `json:"total"`
				Status  string `json:"status"`
				Items   []struct {
					ProductID string `json:"product_id"`
					Price     string `json:"price"`
					Quantity  int    `json:"quantity"`
					ImageURL  string `json:"image_url"`
				} `json:"items"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("failed to decode payload: %v", err)
			}
			if payload.OrderID == "" {
				t.Error("expected a generated order id")
			}
			if payload.UserID != "u-1" {
				t.Errorf("expected user u-1, got %s", payload.UserID)
			}
			if payload.Total != "450" {
				t.Errorf("expected total 450, got %s", payload.Total)
			}
			if payload.Status != "Pending" {
				t.Errorf("expected Pending, got %s", payload.Status)
			}
			if len(payload.Items) != 2 || payload.Items[0].ImageURL != "/static/p1.jpg" {
				t.Errorf("unexpected items: %+v", payload.Items)
			}

			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "orderId": payload.OrderID})
		}))
		defer server.Close()

		order, err := testClient(t, server).SubmitOrder(t.Context(), sampleLines(), "u-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.Status != domain.OrderStatusPending {
			t.Errorf("expected pending order, got %s", order.Status)
		}
		if !order.Total.Equal(decimal.NewFromInt(450)) {
			t.Errorf("expected total 450, got %s", order.Total)
		}
		if len(order.Items) != 2 {
			t.Errorf("expected 2 frozen items, got %d", len(order.Items))
		}
	})

	t.Run("surfaces a body-level decline verbatim", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "No items in order"})
		}))
		defer server.Close()

		_, err := testClient(t, server).SubmitOrder(t.Context(), sampleLines(), "u-1")
		if class := failureClass(t, err); class != domain.FailureBackend {
			t.Errorf("expected backend class, got %s", class)
		}
		if err.Error() != "No items in order" {
			t.Errorf("expected the server message verbatim, got %q", err.Error())
		}
	})

	t.Run("connectivity failure is generic", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := New(server.URL, &http.Client{}, testLogger())
		_, err := client.SubmitOrder(t.Context(), sampleLines(), "u-1")
		if class := failureClass(t, err); class != domain.FailureNetwork {
			t.Errorf("expected network class, got %s", class)
		}
	})
}

func TestFetchOrders(t *testing.T) {
	t.Run("remaps server field names", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"orders": []map[string]any{{
					"order_id":   "ord-1",
					"user_id":    "u-1",
					"total":      850.0,
					"status":     "Dispatched",
					"created_at": "2026-04-10T12:30:45.123456",
					"items": []map[string]any{{
						"product_id": "p1",
						"name":       "Free Range Chicken",
						"price":      425.0,
						"quantity":   2,
						"image_url":  "/static/p1.jpg",
						"seller_id":  "s-1",
					}},
				}},
			})
		}))
		defer server.Close()

		orders, err := testClient(t, server).FetchOrders(t.Context(), "u-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(orders) != 1 {
			t.Fatalf("expected one order, got %d", len(orders))
		}

		o := orders[0]
		if o.OrderID != "ord-1" || o.Status != domain.OrderStatusDispatched {
			t.Errorf("unexpected order: %+v", o)
		}
		if o.CreatedAt.IsZero() {
			t.Error("expected created_at to parse")
		}
		if len(o.Items) != 1 || o.Items[0].ImageRef != "/static/p1.jpg" || !o.Items[0].UnitPrice.Equal(decimal.NewFromInt(425)) {
			t.Errorf("unexpected items: %+v", o.Items)
		}
	})

	t.Run("refuses without a buyer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}))
		defer server.Close()

		_, err := testClient(t, server).FetchOrders(t.Context(), "")
		if !errors.Is(err, ErrLoginRequired) {
			t.Errorf("expected ErrLoginRequired, got %v", err)
		}
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("puts the new status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders/update-status/ord-1" || r.Method != http.MethodPut {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["status"] != "Dispatched" {
				t.Errorf("expected Dispatched, got %s", body["status"])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
		}))
		defer server.Close()

		if err := testClient(t, server).UpdateOrderStatus(t.Context(), "ord-1", domain.OrderStatusDispatched); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("surfaces a decline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Order not found"})
		}))
		defer server.Close()

		err := testClient(t, server).UpdateOrderStatus(t.Context(), "ghost", domain.OrderStatusCancelled)
		if class := failureClass(t, err); class != domain.FailureBackend {
			t.Errorf("expected backend class, got %s", class)
		}
	})
}
