package inventory

import (
	"context"
	"errors"
)

// Key identitas satu baris stok: product atau product-variant.
// VariantID kosong = stok level product.
type Key struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
}

func (k Key) String() string {
	if k.VariantID == "" {
		return k.ProductID
	}
	return k.ProductID + "/" + k.VariantID
}

var (
	ErrOutOfStock = errors.New("out of stock")
	ErrNotFound   = errors.New("stock record not found")
)

// Ledger satu-satunya pemilik StockRecord.quantity.
// Semua mutasi conditional single-statement di store, bukan read-modify-write di aplikasi.
type Ledger interface {
	// Deduct: cek quantity >= qty dan kurangi dalam satu write atomik.
	// ErrOutOfStock kalau kurang; tidak pernah partially applied.
	Deduct(ctx context.Context, key Key, qty int) (newQty int, err error)

	// Restore: tambah atomik; selalu sukses selama record ada.
	Restore(ctx context.Context, key Key, qty int) (newQty int, err error)

	// Read: point read tanpa side effect.
	Read(ctx context.Context, key Key) (int, error)
}
