package reservation

import (
	"context"
	"log"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/events"
)

// Sweeper: background pass yang meng-expire hold basi. Error di-log dan
// dicoba lagi cycle berikutnya, tidak pernah fatal ke proses.
type Sweeper struct {
	Store    Store
	Notifier events.Notifier
	Service  string
	Interval time.Duration
	Batch    int
}

func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				log.Printf("reservation sweep: %v", err)
			} else if n > 0 {
				log.Printf("reservation sweep: expired %d hold", n)
			}
		}
	}
}

// SweepOnce aman jalan bareng Consume/Release: transisi conditional
// active->expired, jadi race dengan checkout menang bersih atau no-op.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	batch := s.Batch
	if batch <= 0 {
		batch = 200
	}
	stale, err := s.Store.ListExpired(ctx, time.Now().UTC(), batch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, res := range stale {
		ok, err := s.Store.TransitionFromActive(ctx, res.ID, StatusExpired, "")
		if err != nil {
			log.Printf("expire %s: %v", res.ID, err)
			continue
		}
		if !ok {
			continue // keburu consumed/released
		}
		n++
		if s.Notifier != nil {
			res.Status = StatusExpired
			env := events.New(s.Service, events.EventReservationUpdated, res.ID, events.ReservationUpdatedPayload{
				ReservationID: res.ID,
				UserID:        res.UserID,
				ProductID:     res.Key.ProductID,
				VariantID:     res.Key.VariantID,
				Qty:           res.Qty,
				Status:        string(StatusExpired),
			})
			s.Notifier.Publish(ctx, events.TopicReservationUpdated, events.PartitionKey(res.Key.String()), env)
		}
	}
	return n, nil
}
