// Package engine orchestrates order placement as one atomic unit across the
// inventory store and the order ledger. Storage backends that cannot give us
// cross-entity atomicity are compensated explicitly: every reservation made
// in a call is released, in reverse order, the moment any later step fails.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/fanout"
	"github.com/ariefcatur/go-marketplace.git/internal/inventory"
	"github.com/ariefcatur/go-marketplace.git/internal/ledger"
	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Publisher is the slice of the fanout bus the engine needs. Delivery is
// fire-and-forget relative to the transaction that triggered it.
type Publisher interface {
	Publish(topic string, ev market.Envelope)
}

type Engine struct {
	inv inventory.Store
	led ledger.Ledger
	bus Publisher
	log *zap.Logger

	// producer names this service in event envelopes.
	producer string
}

func New(inv inventory.Store, led ledger.Ledger, bus Publisher, log *zap.Logger, producer string) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{inv: inv, led: led, bus: bus, log: log, producer: producer}
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type PlaceOrderRequest struct {
	UserID          string
	Items           []ItemInput
	ShippingAddress market.Address
	PaymentMethod   market.PaymentMethod
}

// reservation remembers what to undo, plus the snapshot the line item and
// the seller routing are built from.
type reservation struct {
	qty  int
	snap inventory.Snapshot
}

// PlaceOrder reserves stock item-by-item, computes the total from prices
// captured at reservation time, appends the order to the ledger, and only
// then (outside any lock) fans out seller-scoped creation events.
func (e *Engine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (market.Order, error) {
	// Validation failures must have no side effects, so they run before any
	// reservation is attempted.
	if len(req.Items) == 0 {
		return market.Order{}, market.ErrEmptyOrder
	}
	for _, it := range req.Items {
		if it.Qty < 1 {
			return market.Order{}, fmt.Errorf("product %s: %w", it.ProductID, market.ErrInvalidQuantity)
		}
	}
	if !req.PaymentMethod.Valid() {
		return market.Order{}, fmt.Errorf("unknown payment method %q", req.PaymentMethod)
	}

	var reserved []reservation
	items := make([]market.LineItem, 0, len(req.Items))
	total := decimal.Zero

	for _, it := range req.Items {
		snap, err := e.inv.Reserve(ctx, it.ProductID, it.Qty)
		if err != nil {
			e.compensate(ctx, reserved)
			return market.Order{}, err
		}
		reserved = append(reserved, reservation{qty: it.Qty, snap: snap})
		items = append(items, market.LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Qty,
			UnitPrice: snap.UnitPrice,
		})
		total = total.Add(snap.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}

	now := time.Now().UTC()
	o := market.Order{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Items:           items,
		TotalAmount:     total,
		Status:          market.StatusPending,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   paymentStatusFor(req.PaymentMethod),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The ledger write is the final step, so a failure here is the one case
	// that needs compensation even on a transactional store.
	if err := e.led.Append(ctx, o); err != nil {
		e.compensate(ctx, reserved)
		return market.Order{}, &market.PersistenceError{Op: "append order", Err: err}
	}

	e.publishNewOrder(o, reserved)
	return o, nil
}

// compensate releases every reservation made so far, newest first. Release
// is additive, so a failed release is logged and retried-by-caller safe
// rather than escalated; it must never corrupt global inventory state.
func (e *Engine) compensate(ctx context.Context, reserved []reservation) {
	// Releases still run when the caller's ctx is already cancelled.
	ctx = context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if err := e.inv.Release(ctx, r.snap.ProductID, r.qty); err != nil {
			e.log.Error("release reservation failed",
				zap.String("product_id", r.snap.ProductID),
				zap.Int("qty", r.qty),
				zap.Error(err))
		}
	}
}

func paymentStatusFor(m market.PaymentMethod) market.PaymentStatus {
	if m == market.PaymentCashOnDelivery {
		return market.PaymentPending
	}
	return market.PaymentPaid
}

// publishNewOrder routes one creation event to every distinct seller owning
// a line item, each scoped to that seller's own items.
func (e *Engine) publishNewOrder(o market.Order, reserved []reservation) {
	type group struct {
		items  []market.LineItem
		amount decimal.Decimal
	}
	bySeller := make(map[string]*group)
	order := make([]string, 0, len(reserved))

	for i, r := range reserved {
		g, ok := bySeller[r.snap.SellerID]
		if !ok {
			g = &group{amount: decimal.Zero}
			bySeller[r.snap.SellerID] = g
			order = append(order, r.snap.SellerID)
		}
		g.items = append(g.items, o.Items[i])
		g.amount = g.amount.Add(o.Items[i].Subtotal())
	}

	for _, sellerID := range order {
		g := bySeller[sellerID]
		e.bus.Publish(fanout.TopicSeller(sellerID), e.envelope(market.EventNewOrder, o.ID, market.NewOrderPayload{
			OrderID:       o.ID,
			UserID:        o.UserID,
			SellerID:      sellerID,
			Items:         g.items,
			Amount:        g.amount,
			PaymentMethod: o.PaymentMethod,
		}))
	}
}

// SetStatus applies one state-machine transition and notifies the order's
// owner; administrative actors additionally leave an audit event.
func (e *Engine) SetStatus(ctx context.Context, orderID string, to market.Status, actor fanout.Identity) (market.Order, error) {
	o, from, err := e.led.SetStatus(ctx, orderID, to)
	if err != nil {
		return market.Order{}, err
	}

	e.bus.Publish(fanout.TopicUser(o.UserID), e.envelope(market.EventOrderStatusChanged, o.ID, market.OrderStatusChangedPayload{
		OrderID:   o.ID,
		From:      from,
		To:        to,
		UpdatedAt: o.UpdatedAt,
	}))

	if actor.Role == market.RoleAdmin {
		e.bus.Publish(fanout.TopicAdmin, e.envelope(market.EventOrderStatusAudit, o.ID, market.OrderStatusAuditPayload{
			OrderID:   o.ID,
			From:      from,
			To:        to,
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
		}))
	}
	return o, nil
}

func (e *Engine) GetOrder(ctx context.Context, orderID string) (market.Order, error) {
	return e.led.Get(ctx, orderID)
}

func (e *Engine) ListOrders(ctx context.Context, f ledger.Filter, page, limit int) ([]market.Order, error) {
	return e.led.List(ctx, f, page, limit)
}

func (e *Engine) envelope(eventType, orderID string, payload any) market.Envelope {
	return market.Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     e.producer,
		OrderID:      orderID,
		Payload:      mustMarshal(payload),
	}
}
