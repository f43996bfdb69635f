package orders

import (
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID         string        `json:"id"`
	ExternalID string        `json:"external_id,omitempty"` // idempotency key dari client
	UserID     string        `json:"user_id"`
	Items      []Item        `json:"items"` // immutable setelah create; koreksi = cancel + order baru
	Status     Status        `json:"status"`
	Payment    PaymentStatus `json:"payment_status"`
	TotalCents int           `json:"total_cents"`

	// Idempotency guard: deduction/restoration maksimal sekali per order.
	InventoryDeducted bool `json:"inventory_deducted"`
	InventoryRestored bool `json:"inventory_restored"`

	History   []HistoryEntry `json:"history,omitempty"` // append-only audit trail
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Item struct {
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id,omitempty"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

func (it Item) Key() inventory.Key {
	return inventory.Key{ProductID: it.ProductID, VariantID: it.VariantID}
}

type HistoryEntry struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

// CartItem input checkout: mengacu ke hold yang dibuat waktu item masuk cart.
type CartItem struct {
	ReservationID string `json:"reservation_id"`
	ProductID     string `json:"product_id"`
	VariantID     string `json:"variant_id,omitempty"`
	Qty           int    `json:"qty"`
}

func (ci CartItem) Key() inventory.Key {
	return inventory.Key{ProductID: ci.ProductID, VariantID: ci.VariantID}
}
