// Package storefront exposes the local stores and the checkout flow
// over HTTP, plus a passthrough proxy for the backend resources the
// process does not own (product catalog, messaging).
package storefront

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kukuhub/storefront/internal/auth"
	"github.com/kukuhub/storefront/internal/cart"
	"github.com/kukuhub/storefront/internal/checkout"
	"github.com/kukuhub/storefront/internal/domain"
	"github.com/kukuhub/storefront/internal/orders"
)

type Handler struct {
	cart     *cart.Store
	orders   *orders.Store
	sessions *auth.Manager
	checkout *checkout.Orchestrator
	logger   *slog.Logger
}

func NewHandler(cartStore *cart.Store, orderStore *orders.Store, sessions *auth.Manager, orchestrator *checkout.Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		cart:     cartStore,
		orders:   orderStore,
		sessions: sessions,
		checkout: orchestrator,
		logger:   logger,
	}
}

type cartView struct {
	Lines []domain.CartLine `json:"lines"`
	Total string            `json:"total"`
	Count int               `json:"count"`
}

func (h *Handler) cartSnapshot() cartView {
	lines := h.cart.Lines()
	return cartView{Lines: lines, Total: h.cart.Total().StringFixed(2), Count: len(lines)}
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

func (h *Handler) HandleAddToCart(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.ID == "" {
		h.writeError(w, http.StatusBadRequest, "product id is required")
		return
	}

	h.cart.Add(r.Context(), p)
	h.logger.Info("product added to cart", "product_id", p.ID)
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.cart.UpdateQuantity(r.Context(), productID, req.Quantity)
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

func (h *Handler) HandleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	h.cart.Remove(r.Context(), productID)
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

func (h *Handler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var s auth.Session
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sessions.Login(r.Context(), s); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("session opened", "role", s.Role, "user_id", s.UserID)
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	h.logger.Info("all sessions closed")
	w.WriteHeader(http.StatusNoContent)
}

type sessionsView struct {
	Buyer  *auth.Session `json:"buyer,omitempty"`
	Seller *auth.Session `json:"seller,omitempty"`
	Admin  *auth.Session `json:"admin,omitempty"`
}

func (h *Handler) HandleGetSessions(w http.ResponseWriter, r *http.Request) {
	var view sessionsView
	if s, ok := h.sessions.Buyer(); ok {
		view.Buyer = &s
	}
	if s, ok := h.sessions.Seller(); ok {
		view.Seller = &s
	}
	if s, ok := h.sessions.Admin(); ok {
		view.Admin = &s
	}
	h.writeJSON(w, http.StatusOK, view)
}

type checkoutRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type checkoutResponse struct {
	State                   checkout.State  `json:"state"`
	Order                   *domain.Order   `json:"order,omitempty"`
	Failure                 *domain.Failure `json:"failure,omitempty"`
	Cancelled               bool            `json:"cancelled,omitempty"`
	OrderFailedAfterPayment bool            `json:"orderFailedAfterPayment,omitempty"`
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome := h.checkout.Run(r.Context(), req.PhoneNumber)

	resp := checkoutResponse{
		State:                   outcome.State,
		Order:                   outcome.Order,
		Failure:                 outcome.Failure,
		Cancelled:               outcome.Cancelled,
		OrderFailedAfterPayment: outcome.OrderFailedAfterPayment,
	}

	switch {
	case outcome.Completed():
		h.writeJSON(w, http.StatusCreated, resp)
	case outcome.Cancelled:
		h.writeJSON(w, http.StatusOK, resp)
	default:
		h.writeJSON(w, statusForFailure(outcome.Failure), resp)
	}
}

// statusForFailure maps the failure taxonomy onto HTTP statuses: only
// user_input blames the request, everything else is an upstream or
// configuration problem.
func statusForFailure(failure *domain.Failure) int {
	if failure == nil {
		return http.StatusInternalServerError
	}
	switch failure.Class {
	case domain.FailureUserInput:
		return http.StatusBadRequest
	case domain.FailureTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	buyer, ok := h.sessions.Buyer()
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "buyer login required")
		return
	}

	// Refresh failures degrade to the cached list instead of erroring.
	stale := false
	if err := h.orders.Refresh(r.Context(), buyer.UserID); err != nil {
		h.logger.Warn("order refresh failed, serving cached orders", "error", err)
		stale = true
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"orders": h.orders.Orders(),
		"stale":  stale,
	})
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, domain.ErrIllegalTransition):
		h.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	order, _ := h.orders.Get(id)
	h.logger.Info("order status updated", "order_id", id, "status", req.Status)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
