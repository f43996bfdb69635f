package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxLedger: stock_records(product_id, variant_id, quantity, version).
// variant_id disimpan '' (bukan NULL) supaya predicate single-statement tetap simpel.
type PgxLedger struct{ DB *pgxpool.Pool }

func (l *PgxLedger) Deduct(ctx context.Context, key Key, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("invalid qty %d for %s", qty, key)
	}
	var newQty int
	err := l.DB.QueryRow(ctx, `
		UPDATE stock_records
		SET quantity = quantity - $3, version = version + 1, updated_at = now()
		WHERE product_id = $1 AND variant_id = $2 AND quantity >= $3
		RETURNING quantity`,
		key.ProductID, key.VariantID, qty).Scan(&newQty)
	if errors.Is(err, pgx.ErrNoRows) {
		// predicate gagal: record tidak ada atau stok kurang
		var cur int
		err2 := l.DB.QueryRow(ctx, `SELECT quantity FROM stock_records WHERE product_id=$1 AND variant_id=$2`,
			key.ProductID, key.VariantID).Scan(&cur)
		if errors.Is(err2, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		if err2 != nil {
			return 0, err2
		}
		return cur, fmt.Errorf("%w: %s need %d have %d", ErrOutOfStock, key, qty, cur)
	}
	if err != nil {
		return 0, err
	}
	return newQty, nil
}

func (l *PgxLedger) Restore(ctx context.Context, key Key, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("invalid qty %d for %s", qty, key)
	}
	var newQty int
	err := l.DB.QueryRow(ctx, `
		UPDATE stock_records
		SET quantity = quantity + $3, version = version + 1, updated_at = now()
		WHERE product_id = $1 AND variant_id = $2
		RETURNING quantity`,
		key.ProductID, key.VariantID, qty).Scan(&newQty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return 0, err
	}
	return newQty, nil
}

func (l *PgxLedger) Read(ctx context.Context, key Key) (int, error) {
	var qty int
	err := l.DB.QueryRow(ctx, `SELECT quantity FROM stock_records WHERE product_id=$1 AND variant_id=$2`,
		key.ProductID, key.VariantID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}
