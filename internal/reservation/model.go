package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReleased Status = "released" // dilepas eksplisit (hapus dari cart / cancel pre-payment)
	StatusConsumed Status = "consumed" // ownership pindah ke order saat checkout
	StatusExpired  Status = "expired"  // di-expire oleh sweep
)

// Reservation = soft hold: klaim stok berbatas waktu, belum jadi deduction permanen.
type Reservation struct {
	ID        string
	UserID    string
	Key       inventory.Key
	Qty       int
	OrderID   string // terisi setelah consumed
	Status    Status
	CreatedAt time.Time
	ExpiresAt time.Time
}

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("reservation not found")
	ErrNotActive         = errors.New("reservation not active")
	ErrExpired           = errors.New("reservation expired")
)

// Store kontrak persistence. Semua transisi status conditional (WHERE status='active')
// supaya race checkout vs sweep selesai bersih: satu pihak menang, yang lain no-op.
type Store interface {
	// CreateIfAvailable: cek ledger - sum(active) >= qty lalu insert, dalam satu
	// unit atomik per key. Ini satu-satunya titik oversell bisa bocor kalau
	// check-then-insert tidak diserialisasi.
	CreateIfAvailable(ctx context.Context, res Reservation) error

	Get(ctx context.Context, id string) (Reservation, error)

	// TransitionFromActive: flip active -> to; false kalau status sudah bukan active.
	// orderID hanya dipakai untuk to=consumed.
	TransitionFromActive(ctx context.Context, id string, to Status, orderID string) (bool, error)

	// ExtendActive: refresh expires_at; false kalau sudah bukan active.
	ExtendActive(ctx context.Context, id string, expiresAt time.Time) (bool, error)

	SumActive(ctx context.Context, key inventory.Key) (int, error)

	// ListExpired: hold active dengan expires_at < now, untuk sweep.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error)
}
