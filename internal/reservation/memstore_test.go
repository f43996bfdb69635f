package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
)

// memStore: Store in-memory untuk test. Satu mutex menserialisasi
// check-then-insert, kontrak atomisitas yang sama dengan implementasi SQL.
// Sekalian implement inventory.Ledger supaya bisa dipakai Calculator di test.
type memStore struct {
	mu    sync.Mutex
	stock map[inventory.Key]int
	res   map[string]Reservation
}

func newMemStore(stock map[inventory.Key]int) *memStore {
	cp := make(map[inventory.Key]int, len(stock))
	for k, v := range stock {
		cp[k] = v
	}
	return &memStore{stock: cp, res: make(map[string]Reservation)}
}

func (s *memStore) CreateIfAvailable(_ context.Context, res Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, ok := s.stock[res.Key]
	if !ok {
		return fmt.Errorf("%w: %s", inventory.ErrNotFound, res.Key)
	}
	held := 0
	for _, r := range s.res {
		if r.Key == res.Key && r.Status == StatusActive {
			held += r.Qty
		}
	}
	if stock-held < res.Qty {
		return fmt.Errorf("%w: %s need %d available %d", ErrInsufficientStock, res.Key, res.Qty, stock-held)
	}
	s.res[res.ID] = res
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[id]
	if !ok {
		return Reservation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

func (s *memStore) TransitionFromActive(_ context.Context, id string, to Status, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if r.Status != StatusActive {
		return false, nil
	}
	r.Status = to
	if orderID != "" {
		r.OrderID = orderID
	}
	s.res[id] = r
	return true, nil
}

func (s *memStore) ExtendActive(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[id]
	if !ok || r.Status != StatusActive {
		return false, nil
	}
	r.ExpiresAt = expiresAt
	s.res[id] = r
	return true, nil
}

func (s *memStore) SumActive(_ context.Context, key inventory.Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := 0
	for _, r := range s.res {
		if r.Key == key && r.Status == StatusActive {
			held += r.Qty
		}
	}
	return held, nil
}

func (s *memStore) ListExpired(_ context.Context, now time.Time, limit int) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.res {
		if r.Status == StatusActive && r.ExpiresAt.Before(now) {
			out = append(out, r)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// ---- inventory.Ledger ----

func (s *memStore) Read(_ context.Context, key inventory.Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.stock[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, key)
	}
	return q, nil
}

func (s *memStore) Deduct(_ context.Context, key inventory.Key, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.stock[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, key)
	}
	if q < qty {
		return q, fmt.Errorf("%w: %s", inventory.ErrOutOfStock, key)
	}
	s.stock[key] = q - qty
	return q - qty, nil
}

func (s *memStore) Restore(_ context.Context, key inventory.Key, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.stock[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, key)
	}
	s.stock[key] = q + qty
	return q + qty, nil
}
