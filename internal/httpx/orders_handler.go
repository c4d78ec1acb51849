package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/domain"
	kafkax "github.com/ariefcatur/club-portal/internal/kafka"
	"github.com/ariefcatur/club-portal/internal/logging"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/redisx"
)

// Publisher is the event sink; *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header) error
}

// Idempotency is implemented by redisx.Idempotency.
type Idempotency interface {
	Begin(ctx context.Context, memberID, key string) (claimed bool, orderID string, err error)
	Complete(ctx context.Context, memberID, key, orderID string) error
	Abort(ctx context.Context, memberID, key string) error
}

// StatusCache is implemented by redisx.StatusCache.
type StatusCache interface {
	Put(ctx context.Context, orderID string, s redisx.CachedStatus) error
	Get(ctx context.Context, orderID string) (redisx.CachedStatus, bool, error)
}

// OrdersHandler serves placement and the order register. Producer, Idem and
// Status are optional.
type OrdersHandler struct {
	Orders   *orders.Service
	Producer Publisher
	Idem     Idempotency
	Status   StatusCache
	Service  string
}

type placeOrderReq struct {
	StrainID      string          `json:"strain_id"`
	QuantityGrams decimal.Decimal `json:"quantity_grams"`
}

type placeOrderResp struct {
	Order      orders.Order    `json:"order"`
	Remaining  decimal.Decimal `json:"monthly_limit_remaining"`
	Idempotent bool            `json:"idempotent"`
}

type setStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) RegisterMember(r chi.Router) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.myOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Get("/allowance", h.allowance)
	r.Get("/strains/{id}/limit", h.orderLimit)
}

func (h *OrdersHandler) RegisterStaff(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.setStatus)
	r.Post("/strains/{id}/restock", h.restock)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.StrainID == "" {
		writeError(w, r, domain.Invalid("strain_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actor := auth.Actor(ctx)
	log := logging.FromContext(ctx)

	idemKey := r.Header.Get("Idempotency-Key")
	if h.Idem != nil && idemKey != "" {
		claimed, prevID, err := h.Idem.Begin(ctx, actor.ID, idemKey)
		if err != nil {
			// Redis is a fast path only; carry on without it
			log.Warn("idempotency unavailable", "err", err)
			idemKey = ""
		} else if !claimed {
			h.replay(w, r, actor, prevID)
			return
		}
	} else {
		idemKey = ""
	}

	o, err := h.Orders.PlaceOrder(ctx, actor.ID, req.StrainID, req.QuantityGrams)
	if err != nil {
		if idemKey != "" {
			h.settleKey(ctx, func(ctx context.Context) error { return h.Idem.Abort(ctx, actor.ID, idemKey) })
		}
		writeError(w, r, err)
		return
	}
	if idemKey != "" {
		h.settleKey(ctx, func(ctx context.Context) error { return h.Idem.Complete(ctx, actor.ID, idemKey, o.ID) })
	}
	h.cacheStatus(ctx, o)
	h.publish(ctx, r, orders.TopicOrderPlaced, orders.EventOrderPlaced, o.ID, orders.PlacedPayload(o))

	rem, err := h.Orders.RemainingAllowance(ctx, actor.ID)
	if err != nil {
		log.Warn("read allowance after placement", "err", err)
	}
	log.Info("order placed", "order_id", o.ID, "strain_id", o.ProductID, "grams", o.Quantity.String())
	writeJSON(w, http.StatusCreated, placeOrderResp{Order: o, Remaining: rem})
}

// settleKey runs fn detached from the request deadline so a timed-out
// placement still settles its idempotency key.
func (h *OrdersHandler) settleKey(ctx context.Context, fn func(context.Context) error) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := fn(sctx); err != nil {
		logging.FromContext(ctx).Warn("settle idempotency key", "err", err)
	}
}

func (h *OrdersHandler) replay(w http.ResponseWriter, r *http.Request, actor domain.Actor, orderID string) {
	if orderID == "" {
		writeError(w, r, domain.Conflict("a request with this Idempotency-Key is still in progress"))
		return
	}
	o, err := h.Orders.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rem, _ := h.Orders.RemainingAllowance(r.Context(), actor.ID)
	writeJSON(w, http.StatusOK, placeOrderResp{Order: o, Remaining: rem, Idempotent: true})
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.MemberOrders(ctx, auth.Actor(ctx).ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, auth.Actor(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getStatus serves staff from the status cache. Members always go through
// the register so ownership is checked.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor := auth.Actor(ctx)
	if h.Status != nil && domain.IsStaff(actor.Role) {
		if s, ok, err := h.Status.Get(ctx, orderID); err == nil && ok {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	o, err := h.Orders.GetOrder(ctx, actor, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, redisx.CachedStatus{Status: string(o.Status), UpdatedAt: o.UpdatedAt})
}

func (h *OrdersHandler) allowance(w http.ResponseWriter, r *http.Request) {
	rem, err := h.Orders.RemainingAllowance(r.Context(), auth.Actor(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"monthly_limit_remaining": rem,
		"max_per_order":           domain.MaxOrderGrams,
	})
}

func (h *OrdersHandler) orderLimit(w http.ResponseWriter, r *http.Request) {
	limit, err := h.Orders.OrderLimit(r.Context(), auth.Actor(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"max_grams": limit})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListOrders(ctx, auth.Actor(ctx), orders.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ch, err := h.Orders.SetStatus(ctx, auth.Actor(ctx), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cacheStatus(ctx, ch.Order)
	h.publish(ctx, r, orders.TopicOrderStatusChanged, orders.EventOrderStatusChanged, ch.Order.ID, orders.StatusChangedPayload(ch))

	logging.FromContext(ctx).Info("order status changed",
		"order_id", ch.Order.ID, "from", ch.From, "to", ch.Order.Status,
		"refunded", ch.Refunded.String(), "restocked", ch.Restocked.String())
	writeJSON(w, http.StatusOK, ch)
}

type restockReq struct {
	Grams decimal.Decimal `json:"grams"`
}

func (h *OrdersHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req restockReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	stock, err := h.Orders.Restock(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "id"), req.Grams)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_grams": stock})
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order) {
	if h.Status == nil {
		return
	}
	if err := h.Status.Put(ctx, o.ID, redisx.CachedStatus{Status: string(o.Status), UpdatedAt: o.UpdatedAt}); err != nil {
		logging.FromContext(ctx).Warn("cache order status", "order_id", o.ID, "err", err)
	}
}

// publish emits an event after the transaction committed. Delivery is best
// effort; the register stays the source of truth.
func (h *OrdersHandler) publish(ctx context.Context, r *http.Request, topic, eventType, orderID string, payload any) {
	if h.Producer == nil {
		return
	}
	log := logging.FromContext(ctx)
	ev, err := orders.NewEnvelope(eventType, h.Service, middleware.GetReqID(r.Context()), orderID, payload)
	if err != nil {
		log.Error("build event", "event_type", eventType, "err", err)
		return
	}
	err = h.Producer.Publish(ctx, topic, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(orders.EventVersion))},
	)
	if err != nil {
		log.Warn("publish event", "event_type", eventType, "order_id", orderID, "err", err)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
