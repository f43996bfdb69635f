package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/delivery"
	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-core.git/internal/orders"
	"github.com/ariefcatur/go-commerce-core.git/internal/redisx"
	"github.com/ariefcatur/go-commerce-core.git/internal/reservation"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	Reservations *reservation.Manager
	Availability *inventory.Calculator
	Assembler    *orders.Assembler
	Orders       *orders.Service
	OrderStore   orders.Store
	Payments     *orders.PaymentHandler
	Delivery     *delivery.Machine
	Redis        *redis.Client
}

func (h *Handler) Register(r *chi.Mux) {
	r.Post("/reservations", h.reserve)
	r.Delete("/reservations/{id}", h.releaseReservation)
	r.Put("/reservations/{id}/extend", h.extendReservation)
	r.Post("/stock/check", h.checkStock)
	r.Get("/stock/{productID}", h.availableStock)
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/transition", h.transitionOrder)
	r.Post("/orders/{id}/delivery", h.recordDeliveryEvent)
	r.Post("/payments/webhook", h.paymentWebhook)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// userID disuplai auth middleware di depan; core percaya apa adanya.
func userID(r *http.Request) string { return r.Header.Get("X-User-Id") }

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reservation.ErrInsufficientStock), errors.Is(err, inventory.ErrOutOfStock):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "not enough stock"})
	case errors.Is(err, reservation.ErrExpired):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "reservation expired, add to cart again"})
	case errors.Is(err, reservation.ErrNotActive), errors.Is(err, orders.ErrInvalidCart):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrIllegalTransition), errors.Is(err, delivery.ErrIllegalTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "action not allowed in current order state"})
	case errors.Is(err, delivery.ErrEvidenceRequired):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, reservation.ErrNotFound), errors.Is(err, orders.ErrNotFound),
		errors.Is(err, delivery.ErrNotFound), errors.Is(err, inventory.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// ---- reservations ----

type reserveReq struct {
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id,omitempty"`
	Qty        int    `json:"qty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

type reservationResp struct {
	ReservationID string    `json:"reservation_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	Status        string    `json:"status"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	uid := userID(r)
	if uid == "" || req.ProductID == "" || req.Qty <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key := inventory.Key{ProductID: req.ProductID, VariantID: req.VariantID}
	res, err := h.Reservations.Reserve(ctx, uid, key, req.Qty, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservationResp{ReservationID: res.ID, ExpiresAt: res.ExpiresAt, Status: string(res.Status)})
}

func (h *Handler) releaseReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Reservations.Release(ctx, id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) extendReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		TTLSeconds int `json:"ttl_seconds,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.Extend(ctx, id, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResp{ReservationID: res.ID, ExpiresAt: res.ExpiresAt, Status: string(res.Status)})
}

// ---- stock ----

type checkStockReq struct {
	Items []struct {
		ProductID string `json:"product_id"`
		VariantID string `json:"variant_id,omitempty"`
		Qty       int    `json:"qty"`
	} `json:"items"`
}

func (h *Handler) checkStock(w http.ResponseWriter, r *http.Request) {
	var req checkStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing items"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items := make([]inventory.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, inventory.Item{
			Key: inventory.Key{ProductID: it.ProductID, VariantID: it.VariantID},
			Qty: it.Qty,
		})
	}
	ok, err := h.Availability.CheckStock(ctx, items)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}

func (h *Handler) availableStock(w http.ResponseWriter, r *http.Request) {
	key := inventory.Key{
		ProductID: chi.URLParam(r, "productID"),
		VariantID: r.URL.Query().Get("variant"),
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	avail, err := h.Availability.AvailableStock(ctx, key)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": key.ProductID, "variant_id": key.VariantID, "available": avail})
}

// ---- orders ----

type placeOrderReq struct {
	ExternalID string            `json:"external_id"`
	Items      []orders.CartItem `json:"items"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	uid := userID(r)
	if uid == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Assembler.PlaceOrder(ctx, req.ExternalID, uid, req.Items)
	if err != nil {
		writeErr(w, err)
		return
	}

	// shortcut idempotency + cache status, DB tetap kebenaran
	if h.Redis != nil {
		if req.ExternalID != "" {
			idemKey := fmt.Sprintf(redisx.KeyIdemOrderPlace, req.ExternalID)
			_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
		}
		h.cacheStatus(ctx, o)
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	// 2) fallback DB
	o, err := h.OrderStore.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		h.cacheStatus(ctx, o)
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": o.ID, "status": o.Status, "payment_status": o.Payment})
}

func (h *Handler) cacheStatus(ctx context.Context, o orders.Order) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	b, _ := json.Marshal(map[string]any{"order_id": o.ID, "status": o.Status, "payment_status": o.Payment})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

type transitionReq struct {
	Target         string `json:"target"`
	Note           string `json:"note,omitempty"`
	ProcessingType string `json:"processing_type,omitempty"`
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req transitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing target"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.Transition(ctx, orderID, orders.Status(req.Target), orders.TransitionContext{
		Note:           req.Note,
		ProcessingType: req.ProcessingType,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		h.cacheStatus(ctx, o)
	}
	writeJSON(w, http.StatusOK, o)
}

// ---- delivery ----

func (h *Handler) recordDeliveryEvent(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var ev delivery.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing event type"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Delivery.Record(ctx, orderID, ev)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---- payments ----

func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var res orders.PaymentResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil || res.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Payments.Apply(ctx, res); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
