package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxStore struct{ DB *pgxpool.Pool }

func (r *PgxStore) Create(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, user_id, status, payment_status, total_cents,
		                   inventory_deducted, inventory_restored, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.ExternalID, o.UserID, string(o.Status), string(o.Payment), o.TotalCents,
		o.InventoryDeducted, o.InventoryRestored, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: external_id=%s", ErrAlreadyExists, o.ExternalID)
		}
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, variant_id, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, it.ProductID, it.VariantID, it.Qty, it.PriceCents); err != nil {
			return err
		}
	}
	for _, h := range o.History {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_status_history(order_id, status, note, at)
			VALUES ($1,$2,$3,$4)`,
			o.ID, string(h.Status), h.Note, h.At); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PgxStore) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	var extID *string
	err := r.DB.QueryRow(ctx, `
		SELECT id, external_id, user_id, status, payment_status, total_cents,
		       inventory_deducted, inventory_restored, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &extID, &o.UserID, &o.Status, &o.Payment, &o.TotalCents,
			&o.InventoryDeducted, &o.InventoryRestored, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}
	if extID != nil {
		o.ExternalID = *extID
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, variant_id, qty, price_cents
		FROM order_items WHERE order_id=$1`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Qty, &it.PriceCents); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}

	hrows, err := r.DB.Query(ctx, `
		SELECT status, note, at FROM order_status_history
		WHERE order_id=$1 ORDER BY at, status`, id)
	if err != nil {
		return Order{}, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var h HistoryEntry
		if err := hrows.Scan(&h.Status, &h.Note, &h.At); err != nil {
			return Order{}, err
		}
		o.History = append(o.History, h)
	}
	return o, hrows.Err()
}

func (r *PgxStore) GetByExternalID(ctx context.Context, externalID string) (Order, error) {
	var id string
	err := r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE external_id=$1`, externalID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: external_id=%s", ErrNotFound, externalID)
	}
	if err != nil {
		return Order{}, err
	}
	return r.Get(ctx, id)
}

func (r *PgxStore) UpdateStatus(ctx context.Context, id string, from, to Status, note string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`,
		id, string(from), string(to))
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() != 1 {
		var one int
		err := tx.QueryRow(ctx, `SELECT 1 FROM orders WHERE id=$1`, id).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_history(order_id, status, note, at)
		VALUES ($1,$2,$3,now())`, id, string(to), note); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *PgxStore) SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET payment_status=$2, updated_at=now() WHERE id=$1`,
		id, string(ps))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *PgxStore) MarkRestored(ctx context.Context, id string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET inventory_restored=true, updated_at=now()
		WHERE id=$1 AND inventory_restored=false`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PgxStore) ListDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders
		WHERE status=$1 AND updated_at < $2
		ORDER BY updated_at LIMIT $3`,
		string(StatusDelivered), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnitPrices baca harga dari table products per stock key.
func (r *PgxStore) UnitPrices(ctx context.Context, keys []inventory.Key) (map[inventory.Key]int, error) {
	out := make(map[inventory.Key]int, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	params := ""
	args := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("($%d,$%d)", i*2+1, i*2+2)
		args = append(args, k.ProductID, k.VariantID)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, variant_id, price_cents FROM products
		WHERE (product_id, variant_id) IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k inventory.Key
		var price int
		if err := rows.Scan(&k.ProductID, &k.VariantID, &price); err != nil {
			return nil, err
		}
		out[k] = price
	}
	return out, rows.Err()
}
