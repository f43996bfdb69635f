package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/orders"
)

// OrderTransitioner: bagian orders.Service yang dipanggil balik oleh delivery.
type OrderTransitioner interface {
	Transition(ctx context.Context, orderID string, to orders.Status, tc orders.TransitionContext) (orders.Order, error)
}

// Machine pemilik tunggal DeliveryRecord.status. Event terminal di-feed ke
// order state machine: picked_up -> shipping, delivered -> delivered,
// failed -> return_pending.
type Machine struct {
	Store  Store
	Orders OrderTransitioner
}

// Record menerima satu delivery event untuk sebuah order.
func (m *Machine) Record(ctx context.Context, orderID string, ev Event) (Record, error) {
	if ev.Type == StatusAssigned {
		return m.assign(ctx, orderID, ev.ShipperID)
	}

	rec, err := m.Store.Get(ctx, orderID)
	if err != nil {
		return Record{}, err
	}
	if rec.Status == ev.Type {
		return rec, nil // duplicate event -> no-op sukses
	}
	if !CanTransition(rec.Status, ev.Type) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, rec.Status, ev.Type)
	}
	// precondition bukti, bukan efek ledger
	if needsEvidence[ev.Type] && ev.Evidence == "" {
		return Record{}, fmt.Errorf("%w: %s", ErrEvidenceRequired, ev.Type)
	}
	if ev.Type == StatusFailed && ev.Reason == "" {
		return Record{}, fmt.Errorf("failed event needs a reason")
	}

	now := time.Now().UTC()
	ok, err := m.Store.UpdateStatus(ctx, orderID, rec.Status, ev.Type, now, ev.Evidence, ev.Reason)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		cur, err := m.Store.Get(ctx, orderID)
		if err != nil {
			return Record{}, err
		}
		if cur.Status == ev.Type {
			return cur, nil
		}
		return Record{}, fmt.Errorf("%w: %s -> %s (now %s)", ErrIllegalTransition, rec.Status, ev.Type, cur.Status)
	}

	m.feedOrder(ctx, orderID, rec.Status, ev)
	return m.Store.Get(ctx, orderID)
}

func (m *Machine) assign(ctx context.Context, orderID, shipperID string) (Record, error) {
	if shipperID == "" {
		return Record{}, fmt.Errorf("assigned event needs shipper_id")
	}
	rec := Record{
		OrderID:    orderID,
		ShipperID:  shipperID,
		Status:     StatusAssigned,
		AssignedAt: time.Now().UTC(),
	}
	if err := m.Store.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrAlreadyAssigned) {
			return m.Store.Get(ctx, orderID)
		}
		return Record{}, err
	}
	return rec, nil
}

func (m *Machine) feedOrder(ctx context.Context, orderID string, from Status, ev Event) {
	if m.Orders == nil {
		return
	}
	var to orders.Status
	var tc orders.TransitionContext
	switch ev.Type {
	case StatusPickedUp:
		to, tc = orders.StatusShipping, orders.TransitionContext{Note: "shipper picked up"}
	case StatusDelivered:
		to, tc = orders.StatusDelivered, orders.TransitionContext{Note: "shipper delivered"}
	case StatusFailed:
		// gagal sebelum pickup: barang belum keluar gudang, order masih
		// ready_for_pickup, cancel (restore stok lewat guard). Setelah
		// pickup barang di jalan, masuk alur return.
		if from == StatusAssigned {
			to, tc = orders.StatusCancelled, orders.TransitionContext{Note: "delivery failed before pickup: " + ev.Reason}
		} else {
			to, tc = orders.StatusReturnPending, orders.TransitionContext{Note: "delivery failed: " + ev.Reason}
		}
	default:
		return // in_transit / returned tidak menggerakkan order
	}
	if _, err := m.Orders.Transition(ctx, orderID, to, tc); err != nil {
		// order mungkin sudah digerakkan lewat jalur lain; jangan gagalkan delivery event
		log.Printf("delivery %s: order transition to %s: %v", orderID, to, err)
	}
}
