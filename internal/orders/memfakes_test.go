package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-core.git/internal/reservation"
)

type memLedger struct {
	mu    sync.Mutex
	stock map[inventory.Key]int
}

func (l *memLedger) Deduct(_ context.Context, key inventory.Key, qty int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.stock[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, key)
	}
	if q < qty {
		return q, fmt.Errorf("%w: %s", inventory.ErrOutOfStock, key)
	}
	l.stock[key] = q - qty
	return q - qty, nil
}

func (l *memLedger) Restore(_ context.Context, key inventory.Key, qty int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.stock[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, key)
	}
	l.stock[key] = q + qty
	return q + qty, nil
}

func (l *memLedger) Read(_ context.Context, key inventory.Key) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.stock[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, key)
	}
	return q, nil
}

type memOrders struct {
	mu    sync.Mutex
	byID  map[string]Order
	byExt map[string]string
}

func newMemOrders() *memOrders {
	return &memOrders{byID: make(map[string]Order), byExt: make(map[string]string)}
}

func (s *memOrders) Create(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ExternalID != "" {
		if _, ok := s.byExt[o.ExternalID]; ok {
			return fmt.Errorf("%w: external_id=%s", ErrAlreadyExists, o.ExternalID)
		}
		s.byExt[o.ExternalID] = o.ID
	}
	s.byID[o.ID] = o
	return nil
}

func (s *memOrders) Get(_ context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return o, nil
}

func (s *memOrders) GetByExternalID(ctx context.Context, externalID string) (Order, error) {
	s.mu.Lock()
	id, ok := s.byExt[externalID]
	s.mu.Unlock()
	if !ok {
		return Order{}, fmt.Errorf("%w: external_id=%s", ErrNotFound, externalID)
	}
	return s.Get(ctx, id)
}

func (s *memOrders) UpdateStatus(_ context.Context, id string, from, to Status, note string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	o.History = append(o.History, HistoryEntry{Status: to, At: o.UpdatedAt, Note: note})
	s.byID[id] = o
	return true, nil
}

func (s *memOrders) SetPaymentStatus(_ context.Context, id string, ps PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	o.Payment = ps
	s.byID[id] = o
	return nil
}

func (s *memOrders) MarkRestored(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if o.InventoryRestored {
		return false, nil
	}
	o.InventoryRestored = true
	s.byID[id] = o
	return true, nil
}

func (s *memOrders) ListDeliveredBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, o := range s.byID {
		if o.Status == StatusDelivered && o.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

type fakePrices map[inventory.Key]int

func (p fakePrices) UnitPrices(_ context.Context, keys []inventory.Key) (map[inventory.Key]int, error) {
	out := make(map[inventory.Key]int)
	for _, k := range keys {
		if price, ok := p[k]; ok {
			out[k] = price
		}
	}
	return out, nil
}

type fakeReservations struct {
	mu  sync.Mutex
	res map[string]reservation.Reservation
}

func newFakeReservations(rs ...reservation.Reservation) *fakeReservations {
	f := &fakeReservations{res: make(map[string]reservation.Reservation)}
	for _, r := range rs {
		f.res[r.ID] = r
	}
	return f
}

func (f *fakeReservations) Get(_ context.Context, id string) (reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.res[id]
	if !ok {
		return reservation.Reservation{}, fmt.Errorf("%w: %s", reservation.ErrNotFound, id)
	}
	return r, nil
}

func (f *fakeReservations) Consume(_ context.Context, id, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.res[id]
	if !ok {
		return fmt.Errorf("%w: %s", reservation.ErrNotFound, id)
	}
	if r.Status != reservation.StatusActive {
		return fmt.Errorf("%w: %s", reservation.ErrNotActive, id)
	}
	r.Status = reservation.StatusConsumed
	r.OrderID = orderID
	f.res[id] = r
	return nil
}
