package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-marketplace.git/internal/engine"
	"github.com/ariefcatur/go-marketplace.git/internal/fanout"
	"github.com/ariefcatur/go-marketplace.git/internal/ledger"
	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OrdersHandler adapts HTTP to the engine's narrow interface. It carries no
// business logic: decode, call, map the failure kind to a status code.
type OrdersHandler struct {
	Engine *engine.Engine
	Redis  *redis.Client // optional read cache; nil disables it
	Log    *zap.Logger
}

type PlaceOrderReq struct {
	UserID          string               `json:"user_id"`
	Items           []engine.ItemInput   `json:"items"`
	ShippingAddress market.Address       `json:"shipping_address"`
	PaymentMethod   market.PaymentMethod `json:"payment_method"`
}

type SetStatusReq struct {
	Status market.Status `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Patch("/orders/{id}/status", h.setStatus)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders", h.listOrders)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFailure maps the engine's failure kinds onto status codes with enough
// detail for the caller to show a precise message.
func writeFailure(w http.ResponseWriter, err error) {
	var (
		unavailable  *market.ProductUnavailableError
		insufficient *market.InsufficientStockError
		transition   *market.InvalidTransitionError
		persistence  *market.PersistenceError
	)
	switch {
	case errors.Is(err, market.ErrEmptyOrder), errors.Is(err, market.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":      "product unavailable",
			"product_id": unavailable.ProductID,
			"reason":     unavailable.Reason.Error(),
		})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient stock",
			"product_id": insufficient.ProductID,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		})
	case errors.Is(err, market.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "invalid status transition",
			"from":  string(transition.From),
			"to":    string(transition.To),
		})
	case errors.As(err, &persistence):
		// retryable, unlike the availability conflicts above
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage unavailable, retry later"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *OrdersHandler) identity(r *http.Request) fanout.Identity {
	return fanout.Identity{
		UserID: r.Header.Get("X-User-Id"),
		Role:   market.Role(r.Header.Get("X-Role")),
	}
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id required"})
		return
	}

	o, err := h.Engine.PlaceOrder(r.Context(), engine.PlaceOrderRequest{
		UserID:          req.UserID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}

	h.cacheOrder(r, o)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	o, err := h.Engine.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status, h.identity(r))
	if err != nil {
		writeFailure(w, err)
		return
	}

	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrder, orderID)
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Engine.GetOrder(r.Context(), orderID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	f := ledger.Filter{
		Status: market.Status(q.Get("status")),
		UserID: q.Get("user_id"),
	}
	out, err := h.Engine.ListOrders(r.Context(), f, page, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out, "page": maxInt(page, 1)})
}

// cacheOrder refreshes the read cache; failures are ignored, the ledger is
// the source of truth.
func (h *OrdersHandler) cacheOrder(r *http.Request, o market.Order) {
	if h.Redis == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrder, o.ID)
	if err := h.Redis.Set(r.Context(), key, b, redisx.TTLOrderCache).Err(); err != nil && h.Log != nil {
		h.Log.Debug("order cache set failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
