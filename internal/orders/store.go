package orders

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrAlreadyExists = errors.New("order already exists")
)

type Store interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	GetByExternalID(ctx context.Context, externalID string) (Order, error)

	// UpdateStatus: flip conditional from -> to + append history; false kalau
	// status sekarang sudah bukan from (kalah race / duplicate request).
	UpdateStatus(ctx context.Context, id string, from, to Status, note string) (bool, error)

	SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus) error

	// MarkRestored: flip inventory_restored false -> true; false berarti
	// restore sudah pernah jalan, jangan diulang.
	MarkRestored(ctx context.Context, id string) (bool, error)

	// ListDeliveredBefore: order DELIVERED yang terakhir update sebelum cutoff,
	// kandidat auto-confirm.
	ListDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// PriceLookup: harga selalu dari store, jangan percaya angka dari client.
type PriceLookup interface {
	UnitPrices(ctx context.Context, keys []inventory.Key) (map[inventory.Key]int, error)
}
