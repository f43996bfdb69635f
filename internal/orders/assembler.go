package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/events"
	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-core.git/internal/reservation"
	"github.com/google/uuid"
)

// ErrInvalidCart: hold tidak match dengan item (user/key/qty beda).
var ErrInvalidCart = errors.New("cart item does not match reservation")

// ReservationPort: bagian reservation.Manager yang dibutuhkan checkout.
type ReservationPort interface {
	Get(ctx context.Context, id string) (reservation.Reservation, error)
	Consume(ctx context.Context, id, orderID string) error
}

// Assembler: boundary soft hold -> hard deduction. Di sinilah cart jadi Order.
type Assembler struct {
	Orders       Store
	Prices       PriceLookup
	Ledger       inventory.Ledger
	Reservations ReservationPort
	Notifier     events.Notifier
	Service      string
}

// PlaceOrder:
//  1. re-validasi hold (masih active, belum lewat expiry, cover qty yang diminta)
//  2. deduct ledger per item; gagal di tengah -> restore semua yang sudah
//     terpotong sebelum lapor error (tidak pernah ada order setengah jadi)
//  3. create order (inventory_deducted=true), lalu consume tiap hold.
//
// Idempotent via externalID: replay balikin order yang sudah ada.
func (a *Assembler) PlaceOrder(ctx context.Context, externalID, userID string, cart []CartItem) (Order, error) {
	if len(cart) == 0 {
		return Order{}, fmt.Errorf("%w: empty cart", ErrInvalidCart)
	}

	if externalID != "" {
		o, err := a.Orders.GetByExternalID(ctx, externalID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Order{}, err
		}
	}

	now := time.Now().UTC()

	// 1) re-validasi hold; jangan percaya qty dari client begitu saja.
	// Satu hold hanya boleh muncul sekali: dua line dengan reservation_id sama
	// bakal deduct dobel padahal cuma dicover satu hold.
	seen := make(map[string]bool, len(cart))
	for _, ci := range cart {
		if seen[ci.ReservationID] {
			return Order{}, fmt.Errorf("%w: duplicate reservation %s", ErrInvalidCart, ci.ReservationID)
		}
		seen[ci.ReservationID] = true
		res, err := a.Reservations.Get(ctx, ci.ReservationID)
		if err != nil {
			return Order{}, err
		}
		if res.Status == reservation.StatusExpired || (res.Status == reservation.StatusActive && res.ExpiresAt.Before(now)) {
			return Order{}, fmt.Errorf("%w: %s", reservation.ErrExpired, res.ID)
		}
		if res.Status != reservation.StatusActive {
			return Order{}, fmt.Errorf("%w: %s is %s", reservation.ErrNotActive, res.ID, res.Status)
		}
		if res.UserID != userID || res.Key != ci.Key() || res.Qty < ci.Qty || ci.Qty <= 0 {
			return Order{}, fmt.Errorf("%w: reservation %s", ErrInvalidCart, res.ID)
		}
	}

	keys := make([]inventory.Key, 0, len(cart))
	for _, ci := range cart {
		keys = append(keys, ci.Key())
	}
	prices, err := a.Prices.UnitPrices(ctx, keys)
	if err != nil {
		return Order{}, err
	}

	// 2) deduct all-or-nothing: saga dengan kompensasi Restore
	deducted := make([]Item, 0, len(cart))
	total := 0
	for _, ci := range cart {
		price, ok := prices[ci.Key()]
		if !ok {
			a.rollback(ctx, deducted)
			return Order{}, fmt.Errorf("%w: %s", inventory.ErrNotFound, ci.Key())
		}
		newQty, err := a.Ledger.Deduct(ctx, ci.Key(), ci.Qty)
		if err != nil {
			a.rollback(ctx, deducted)
			return Order{}, err
		}
		deducted = append(deducted, Item{ProductID: ci.ProductID, VariantID: ci.VariantID, Qty: ci.Qty, PriceCents: price})
		total += price * ci.Qty
		a.emitStock(ctx, ci.Key(), newQty, -ci.Qty)
	}

	// 3) create order + consume hold
	o := Order{
		ID:                uuid.NewString(),
		ExternalID:        externalID,
		UserID:            userID,
		Items:             deducted,
		Status:            StatusPending,
		Payment:           PaymentUnpaid,
		TotalCents:        total,
		InventoryDeducted: true,
		History:           []HistoryEntry{{Status: StatusPending, At: now, Note: "order placed"}},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := a.Orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrAlreadyExists) && externalID != "" {
			// replay balapan dengan request kembar: pakai order yang menang
			a.rollback(ctx, deducted)
			return a.Orders.GetByExternalID(ctx, externalID)
		}
		a.rollback(ctx, deducted)
		return Order{}, err
	}

	for _, ci := range cart {
		if err := a.Reservations.Consume(ctx, ci.ReservationID, o.ID); err != nil {
			// order sudah berdiri & stok sudah terpotong; hold yang keburu
			// expired tinggal dilog, ledger tidak disentuh dua kali
			log.Printf("consume reservation %s for order %s: %v", ci.ReservationID, o.ID, err)
		}
	}

	if a.Notifier != nil {
		env := events.New(a.Service, events.EventOrderStatusChanged, o.ID, events.OrderStatusPayload{
			OrderID: o.ID, From: "", To: string(StatusPending), Note: "order placed",
		})
		a.Notifier.Publish(ctx, events.TopicOrderStatus, events.PartitionKey(o.ID), env)
	}
	return o, nil
}

func (a *Assembler) rollback(ctx context.Context, deducted []Item) {
	for _, it := range deducted {
		newQty, err := a.Ledger.Restore(ctx, it.Key(), it.Qty)
		if err != nil {
			log.Printf("rollback restore %s qty=%d: %v", it.Key(), it.Qty, err)
			continue
		}
		a.emitStock(ctx, it.Key(), newQty, it.Qty)
	}
}

func (a *Assembler) emitStock(ctx context.Context, key inventory.Key, qty, delta int) {
	if a.Notifier == nil {
		return
	}
	env := events.New(a.Service, events.EventStockUpdated, key.String(), events.StockUpdatedPayload{
		ProductID: key.ProductID, VariantID: key.VariantID, Quantity: qty, Delta: delta,
	})
	a.Notifier.Publish(ctx, events.TopicStockUpdated, events.PartitionKey(key.String()), env)
}
