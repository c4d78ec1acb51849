package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"

	EventVersion = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID       string          `json:"order_id"`
	MemberID      string          `json:"member_id"`
	ProductID     string          `json:"strain_id"`
	QuantityGrams decimal.Decimal `json:"quantity_grams"`
}

type OrderStatusChangedPayload struct {
	OrderID        string          `json:"order_id"`
	MemberID       string          `json:"member_id"`
	ProductID      string          `json:"strain_id"`
	From           Status          `json:"from"`
	To             Status          `json:"to"`
	QuantityGrams  decimal.Decimal `json:"quantity_grams"`
	RefundedGrams  decimal.Decimal `json:"refunded_grams"`
	RestockedGrams decimal.Decimal `json:"restocked_grams"`
}

func PlacedPayload(o Order) OrderPlacedPayload {
	return OrderPlacedPayload{OrderID: o.ID, MemberID: o.MemberID, ProductID: o.ProductID, QuantityGrams: o.Quantity}
}

func StatusChangedPayload(ch Change) OrderStatusChangedPayload {
	return OrderStatusChangedPayload{
		OrderID:        ch.Order.ID,
		MemberID:       ch.Order.MemberID,
		ProductID:      ch.Order.ProductID,
		From:           ch.From,
		To:             ch.Order.Status,
		QuantityGrams:  ch.Order.Quantity,
		RefundedGrams:  ch.Refunded,
		RestockedGrams: ch.Restocked,
	}
}

// NewEnvelope wraps payload as a v1 event correlated to orderID.
func NewEnvelope(eventType, producer, traceID, orderID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       b,
	}, nil
}
