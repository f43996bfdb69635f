package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/events"
	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
	"github.com/google/uuid"
)

type Manager struct {
	Store      Store
	Notifier   events.Notifier
	Service    string
	DefaultTTL time.Duration
}

// Reserve bikin soft hold baru. ttl <= 0 pakai DefaultTTL.
func (m *Manager) Reserve(ctx context.Context, userID string, key inventory.Key, qty int, ttl time.Duration) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, fmt.Errorf("invalid qty %d for %s", qty, key)
	}
	if ttl <= 0 {
		ttl = m.DefaultTTL
	}
	now := time.Now().UTC()
	res := Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		Qty:       qty,
		Status:    StatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.Store.CreateIfAvailable(ctx, res); err != nil {
		return Reservation{}, err
	}
	m.emit(ctx, res)
	return res, nil
}

func (m *Manager) Get(ctx context.Context, id string) (Reservation, error) {
	return m.Store.Get(ctx, id)
}

// Release idempotent: hold yang sudah released/expired/consumed jadi no-op, bukan error.
func (m *Manager) Release(ctx context.Context, id string) error {
	ok, err := m.Store.TransitionFromActive(ctx, id, StatusReleased, "")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	res, err := m.Store.Get(ctx, id)
	if err == nil {
		m.emit(ctx, res)
	}
	return nil
}

// Extend refresh expires_at; hanya legal selama active.
func (m *Manager) Extend(ctx context.Context, id string, ttl time.Duration) (Reservation, error) {
	if ttl <= 0 {
		ttl = m.DefaultTTL
	}
	ok, err := m.Store.ExtendActive(ctx, id, time.Now().UTC().Add(ttl))
	if err != nil {
		return Reservation{}, err
	}
	if !ok {
		return Reservation{}, fmt.Errorf("%w: %s", ErrNotActive, id)
	}
	return m.Store.Get(ctx, id)
}

// Consume: active -> consumed, link ke order. Dipanggil tepat sekali oleh assembler.
// Kalah race dengan sweep -> ErrExpired, caller harus minta user re-reserve.
func (m *Manager) Consume(ctx context.Context, id, orderID string) error {
	ok, err := m.Store.TransitionFromActive(ctx, id, StatusConsumed, orderID)
	if err != nil {
		return err
	}
	if !ok {
		cur, err := m.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == StatusExpired {
			return fmt.Errorf("%w: %s", ErrExpired, id)
		}
		if cur.Status == StatusConsumed && cur.OrderID == orderID {
			return nil // retry dari order yang sama
		}
		return fmt.Errorf("%w: %s is %s", ErrNotActive, id, cur.Status)
	}
	res, err := m.Store.Get(ctx, id)
	if err == nil {
		m.emit(ctx, res)
	}
	return nil
}

func (m *Manager) emit(ctx context.Context, res Reservation) {
	if m.Notifier == nil {
		return
	}
	env := events.New(m.Service, events.EventReservationUpdated, res.ID, events.ReservationUpdatedPayload{
		ReservationID: res.ID,
		UserID:        res.UserID,
		ProductID:     res.Key.ProductID,
		VariantID:     res.Key.VariantID,
		Qty:           res.Qty,
		Status:        string(res.Status),
		OrderID:       res.OrderID,
	})
	m.Notifier.Publish(ctx, events.TopicReservationUpdated, events.PartitionKey(res.Key.String()), env)
}

// IsRetryable membantu handler memetakan error ke respons user.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrExpired)
}
