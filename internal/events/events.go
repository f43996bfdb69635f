package events

import (
	"encoding/json"
	"time"

	kafkax "github.com/ariefcatur/go-commerce-core.git/internal/kafka"
	"github.com/google/uuid"
)

const (
	EventStockUpdated       = "StockUpdated"
	EventReservationUpdated = "ReservationUpdated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventPaymentResult      = "PaymentResult"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "commerce-core"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id / reservation_id / stock key
	Payload       json.RawMessage `json:"payload"`                  // payload spesifik
}

// New bikin envelope v1 siap publish.
func New(producer, eventType, correlationID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

// ---- Payload tipe per event ----

type StockUpdatedPayload struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"` // sisa stok setelah mutasi
	Delta     int    `json:"delta"`    // negatif = deduct, positif = restore
}

type ReservationUpdatedPayload struct {
	ReservationID string `json:"reservation_id"`
	UserID        string `json:"user_id"`
	ProductID     string `json:"product_id"`
	VariantID     string `json:"variant_id,omitempty"`
	Qty           int    `json:"qty"`
	Status        string `json:"status"` // active | released | consumed | expired
	OrderID       string `json:"order_id,omitempty"`
}

type OrderStatusPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Note    string `json:"note,omitempty"`
}

type PaymentResultPayload struct {
	OrderID     string `json:"order_id"`
	Success     bool   `json:"success"`
	AmountCents int    `json:"amount_cents"`
	Reason      string `json:"reason,omitempty"` // e.g., INSUFFICIENT_FUNDS
}
