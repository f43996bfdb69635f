package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxStore struct{ DB *pgxpool.Pool }

// CreateIfAvailable: lock baris stok (FOR UPDATE) -> hitung hold active -> insert.
// Lock per key menserialisasi check-then-insert; dua Reserve bersamaan untuk
// key yang sama antri di sini, tidak pernah dua-duanya lolos cek.
func (s *PgxStore) CreateIfAvailable(ctx context.Context, res Reservation) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var stock int
	err = tx.QueryRow(ctx, `SELECT quantity FROM stock_records WHERE product_id=$1 AND variant_id=$2 FOR UPDATE`,
		res.Key.ProductID, res.Key.VariantID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", inventory.ErrNotFound, res.Key)
	}
	if err != nil {
		return err
	}

	var held int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty), 0) FROM reservations
		WHERE product_id=$1 AND variant_id=$2 AND status='active'`,
		res.Key.ProductID, res.Key.VariantID).Scan(&held); err != nil {
		return err
	}

	if stock-held < res.Qty {
		return fmt.Errorf("%w: %s need %d available %d", ErrInsufficientStock, res.Key, res.Qty, stock-held)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO reservations(id, user_id, product_id, variant_id, qty, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,'active',$6,$7)`,
		res.ID, res.UserID, res.Key.ProductID, res.Key.VariantID, res.Qty, res.CreatedAt, res.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgxStore) Get(ctx context.Context, id string) (Reservation, error) {
	var res Reservation
	var orderID *string
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, product_id, variant_id, qty, order_id, status, created_at, expires_at
		FROM reservations WHERE id=$1`, id).
		Scan(&res.ID, &res.UserID, &res.Key.ProductID, &res.Key.VariantID, &res.Qty, &orderID, &res.Status, &res.CreatedAt, &res.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Reservation{}, err
	}
	if orderID != nil {
		res.OrderID = *orderID
	}
	return res, nil
}

func (s *PgxStore) TransitionFromActive(ctx context.Context, id string, to Status, orderID string) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE reservations
		SET status=$2, order_id=NULLIF($3,''), updated_at=now()
		WHERE id=$1 AND status='active'`,
		id, string(to), orderID)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}
	// bedakan "bukan active" dengan "tidak ada"
	var one int
	err = s.DB.QueryRow(ctx, `SELECT 1 FROM reservations WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return false, err
}

func (s *PgxStore) ExtendActive(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE reservations SET expires_at=$2, updated_at=now()
		WHERE id=$1 AND status='active'`, id, expiresAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PgxStore) SumActive(ctx context.Context, key inventory.Key) (int, error) {
	var held int
	err := s.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty), 0) FROM reservations
		WHERE product_id=$1 AND variant_id=$2 AND status='active'`,
		key.ProductID, key.VariantID).Scan(&held)
	return held, err
}

func (s *PgxStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, product_id, variant_id, qty, status, created_at, expires_at
		FROM reservations
		WHERE status='active' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.Key.ProductID, &res.Key.VariantID, &res.Qty, &res.Status, &res.CreatedAt, &res.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
