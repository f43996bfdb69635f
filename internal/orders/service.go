package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/events"
	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
)

var ErrIllegalTransition = errors.New("illegal transition")

// Return processing types: hanya restock yang balikin stok.
const (
	ProcessingRestock  = "restock"
	ProcessingDisposal = "disposal"
	ProcessingExchange = "exchange" // exchange terbit sebagai order baru, bukan mutasi ledger
)

type TransitionContext struct {
	Note           string `json:"note,omitempty"`
	ProcessingType string `json:"processing_type,omitempty"` // wajib utk return_completed
}

// Service pemilik tunggal Order.status + idempotency guards.
type Service struct {
	Store    Store
	Ledger   inventory.Ledger
	Notifier events.Notifier
	Service  string
}

// Transition: validasi lewat tabel transisi, flip conditional di store, lalu
// side effect. Request duplicate (status sudah = target) dianggap sukses, bukan
// error, karena efeknya memang sudah terjadi.
func (s *Service) Transition(ctx context.Context, orderID string, to Status, tc TransitionContext) (Order, error) {
	if !ValidStatus(to) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, to)
	}
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.Status == to {
		return o, nil // duplicate -> no-op sukses
	}
	if !CanTransition(o.Status, to) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, to)
	}
	if to == StatusReturnCompleted {
		switch tc.ProcessingType {
		case ProcessingRestock, ProcessingDisposal, ProcessingExchange:
		default:
			return Order{}, fmt.Errorf("%w: processing_type %q", ErrIllegalTransition, tc.ProcessingType)
		}
	}

	ok, err := s.Store.UpdateStatus(ctx, orderID, o.Status, to, tc.Note)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		// kalah race; kalau pemenangnya transisi yang sama, tetap sukses
		cur, err := s.Store.Get(ctx, orderID)
		if err != nil {
			return Order{}, err
		}
		if cur.Status == to {
			return cur, nil
		}
		return Order{}, fmt.Errorf("%w: %s -> %s (now %s)", ErrIllegalTransition, o.Status, to, cur.Status)
	}

	// side effect ledger, selalu lewat guard restore-once
	switch to {
	case StatusCancelled, StatusPaymentFailed:
		// stok dipotong optimis saat placement; transisi ini balikin
		s.restoreOnce(ctx, o)
	case StatusReturnCompleted:
		if tc.ProcessingType == ProcessingRestock {
			s.restoreOnce(ctx, o)
		}
	}

	s.emitStatus(ctx, o.ID, o.Status, to, tc.Note)
	return s.Store.Get(ctx, orderID)
}

// restoreOnce: flip inventory_restored false->true dulu; hanya pemenang flip
// yang menyentuh ledger. Retry / duplicate webhook jadi no-op di sini.
// SEMUA jalur yang balikin stok wajib lewat fungsi ini.
func (s *Service) restoreOnce(ctx context.Context, o Order) {
	if !o.InventoryDeducted {
		return
	}
	ok, err := s.Store.MarkRestored(ctx, o.ID)
	if err != nil {
		log.Printf("mark restored %s: %v", o.ID, err)
		return
	}
	if !ok {
		return // sudah pernah restore
	}
	for _, it := range o.Items {
		newQty, err := s.Ledger.Restore(ctx, it.Key(), it.Qty)
		if err != nil {
			log.Printf("restore %s qty=%d for order %s: %v", it.Key(), it.Qty, o.ID, err)
			continue
		}
		if s.Notifier != nil {
			env := events.New(s.Service, events.EventStockUpdated, it.Key().String(), events.StockUpdatedPayload{
				ProductID: it.ProductID, VariantID: it.VariantID, Quantity: newQty, Delta: it.Qty,
			})
			s.Notifier.Publish(ctx, events.TopicStockUpdated, events.PartitionKey(it.Key().String()), env)
		}
	}
}

// AutoConfirmDelivered: order DELIVERED yang melewati window konfirmasi tanpa
// return/refund otomatis jadi COMPLETED. Dipanggil periodik oleh worker.
func (s *Service) AutoConfirmDelivered(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	ids, err := s.Store.ListDeliveredBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if _, err := s.Transition(ctx, id, StatusCompleted, TransitionContext{Note: "auto-confirmed"}); err != nil {
			log.Printf("auto-confirm %s: %v", id, err)
			continue
		}
		n++
	}
	return n, nil
}

func (s *Service) emitStatus(ctx context.Context, orderID string, from, to Status, note string) {
	if s.Notifier == nil {
		return
	}
	env := events.New(s.Service, events.EventOrderStatusChanged, orderID, events.OrderStatusPayload{
		OrderID: orderID, From: string(from), To: string(to), Note: note,
	})
	s.Notifier.Publish(ctx, events.TopicOrderStatus, events.PartitionKey(orderID), env)
}
