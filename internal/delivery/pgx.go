package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxStore struct{ DB *pgxpool.Pool }

func (s *PgxStore) Create(ctx context.Context, rec Record) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO deliveries(order_id, shipper_id, status, assigned_at)
		VALUES ($1,$2,$3,$4)`,
		rec.OrderID, rec.ShipperID, string(rec.Status), rec.AssignedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: order %s", ErrAlreadyAssigned, rec.OrderID)
		}
		return err
	}
	return nil
}

func (s *PgxStore) Get(ctx context.Context, orderID string) (Record, error) {
	var rec Record
	err := s.DB.QueryRow(ctx, `
		SELECT order_id, shipper_id, status, assigned_at,
		       picked_up_at, in_transit_at, delivered_at, failed_at, returned_at,
		       COALESCE(pickup_photo_url,''), COALESCE(delivery_photo_url,''), COALESCE(failure_reason,'')
		FROM deliveries WHERE order_id=$1`, orderID).
		Scan(&rec.OrderID, &rec.ShipperID, &rec.Status, &rec.AssignedAt,
			&rec.PickedUpAt, &rec.InTransitAt, &rec.DeliveredAt, &rec.FailedAt, &rec.ReturnedAt,
			&rec.PickupPhotoURL, &rec.DeliveryPhotoURL, &rec.FailureReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PgxStore) UpdateStatus(ctx context.Context, orderID string, from, to Status, at time.Time, evidence, reason string) (bool, error) {
	var col string
	switch to {
	case StatusPickedUp:
		col = "picked_up_at"
	case StatusInTransit:
		col = "in_transit_at"
	case StatusDelivered:
		col = "delivered_at"
	case StatusFailed:
		col = "failed_at"
	case StatusReturned:
		col = "returned_at"
	default:
		return false, fmt.Errorf("%w: target %s", ErrIllegalTransition, to)
	}

	q := `UPDATE deliveries SET status=$3, ` + col + `=$4`
	args := []any{orderID, string(from), string(to), at}
	switch to {
	case StatusPickedUp:
		q += `, pickup_photo_url=$5`
		args = append(args, evidence)
	case StatusDelivered:
		q += `, delivery_photo_url=$5`
		args = append(args, evidence)
	case StatusFailed:
		q += `, failure_reason=$5`
		args = append(args, reason)
	}
	q += ` WHERE order_id=$1 AND status=$2`

	ct, err := s.DB.Exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
