package market

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventNewOrder           = "NewOrder"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderStatusAudit   = "OrderStatusAudit"
)

type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	OrderID      string          `json:"order_id"`
	Payload      json.RawMessage `json:"payload"`
}

// ---- Payload types per event ----

// NewOrderPayload is seller-scoped: Items holds only the line items owned by
// SellerID, Amount is their subtotal.
type NewOrderPayload struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	SellerID      string          `json:"seller_id"`
	Items         []LineItem      `json:"items"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

type OrderStatusChangedPayload struct {
	OrderID   string    `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderStatusAuditPayload struct {
	OrderID   string `json:"order_id"`
	From      Status `json:"from"`
	To        Status `json:"to"`
	ActorID   string `json:"actor_id"`
	ActorRole Role   `json:"actor_role"`
}

// Partition key = order_id so every event of one order keeps its ordering
// on the external broker.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
