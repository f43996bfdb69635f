package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/ariefcatur/go-commerce-core.git/internal/events"
	kafkax "github.com/ariefcatur/go-commerce-core.git/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
)

// PaymentResult: callback gateway, diperlakukan opaque. Sukses -> confirmed,
// gagal -> payment_failed (plus restore lewat guard di Service).
type PaymentResult struct {
	OrderID     string `json:"order_id"`
	Success     bool   `json:"success"`
	AmountCents int    `json:"amount_cents"`
	Reason      string `json:"reason,omitempty"`
}

// Deduper nyimpen event yang sudah selesai diproses. Best effort: kalau
// backend-nya down, event diproses lagi saja, transisi memang idempotent.
type Deduper interface {
	Seen(ctx context.Context, eventID string) bool
	MarkSeen(ctx context.Context, eventID string)
}

type PaymentHandler struct {
	Service *Service
	Store   Store
	Dedup   Deduper
}

// Apply idempotent: gateway suka kirim webhook dobel, telat, atau dua-duanya;
// hasil yang efeknya sudah terjadi dianggap sukses, bukan error.
func (h *PaymentHandler) Apply(ctx context.Context, res PaymentResult) error {
	if res.OrderID == "" {
		return fmt.Errorf("payment result without order_id")
	}
	if res.Success {
		o, err := h.Store.Get(ctx, res.OrderID)
		if err != nil {
			return err
		}
		if o.Payment == PaymentPaid && o.Status != StatusPending {
			return nil // webhook dobel nyusul setelah order jalan
		}
		if err := h.Store.SetPaymentStatus(ctx, res.OrderID, PaymentPaid); err != nil {
			return err
		}
		note := "payment confirmed"
		if res.AmountCents > 0 {
			note = fmt.Sprintf("payment confirmed (%d cents)", res.AmountCents)
		}
		_, err = h.Service.Transition(ctx, res.OrderID, StatusConfirmed, TransitionContext{Note: note})
		if errors.Is(err, ErrIllegalTransition) {
			// kalah race dengan transisi lain; order sudah jalan, jangan gagalkan webhook
			log.Printf("late payment success for %s: %v", res.OrderID, err)
			return nil
		}
		return err
	}

	if err := h.Store.SetPaymentStatus(ctx, res.OrderID, PaymentFailed); err != nil {
		return err
	}
	note := "payment failed"
	if res.Reason != "" {
		note = "payment failed: " + res.Reason
	}
	_, err := h.Service.Transition(ctx, res.OrderID, StatusPaymentFailed, TransitionContext{Note: note})
	if errors.Is(err, ErrIllegalTransition) {
		// failure nyusul setelah order jalan (mis. sudah confirmed manual); log saja
		log.Printf("late payment failure for %s: %v", res.OrderID, err)
		return nil
	}
	return err
}

// HandleMessage dipasang sebagai handler consumer topic payment result.
// Dedup ditandai SETELAH Apply sukses: error transient harus bikin offset
// tidak di-commit dan redelivery diproses ulang, bukan di-skip.
func (h *PaymentHandler) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventPaymentResult {
		return nil // ignore
	}

	if h.Dedup != nil && h.Dedup.Seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.PaymentResultPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := h.Apply(ctx, PaymentResult{
		OrderID:     p.OrderID,
		Success:     p.Success,
		AmountCents: p.AmountCents,
		Reason:      p.Reason,
	}); err != nil {
		return err
	}
	if h.Dedup != nil {
		h.Dedup.MarkSeen(ctx, env.EventID)
	}
	return nil
}
