package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/events"
	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
)

func seedOrder(t *testing.T, store *memOrders, status Status) Order {
	t.Helper()
	now := time.Now().UTC()
	o := Order{
		ID:     "ord-1",
		UserID: "u-1",
		Items: []Item{
			{ProductID: "p-a", Qty: 2, PriceCents: 1000},
			{ProductID: "p-b", VariantID: "v-1", Qty: 1, PriceCents: 2500},
		},
		Status:            status,
		Payment:           PaymentUnpaid,
		TotalCents:        4500,
		InventoryDeducted: true,
		History:           []HistoryEntry{{Status: StatusPending, At: now, Note: "order placed"}},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.Create(context.Background(), o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func newService(stock map[inventory.Key]int) (*Service, *memOrders, *memLedger) {
	store := newMemOrders()
	ledger := &memLedger{stock: stock}
	svc := &Service{Store: store, Ledger: ledger, Notifier: events.NopNotifier{}, Service: "test"}
	return svc, store, ledger
}

func TestTransitionAppendsHistory(t *testing.T) {
	svc, store, _ := newService(map[inventory.Key]int{keyA: 0, keyB: 0})
	seedOrder(t, store, StatusPending)
	ctx := context.Background()

	o, err := svc.Transition(ctx, "ord-1", StatusConfirmed, TransitionContext{Note: "payment confirmed"})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if o.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", o.Status)
	}
	last := o.History[len(o.History)-1]
	if last.Status != StatusConfirmed || last.Note != "payment confirmed" {
		t.Fatalf("history entry missing, got %+v", last)
	}
}

func TestTransitionIllegal(t *testing.T) {
	svc, store, ledger := newService(map[inventory.Key]int{keyA: 0, keyB: 0})
	seedOrder(t, store, StatusShipping)
	ctx := context.Background()

	// cancel setelah shipping ditolak dan tidak menyentuh ledger
	_, err := svc.Transition(ctx, "ord-1", StatusCancelled, TransitionContext{})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	o, _ := store.Get(ctx, "ord-1")
	if o.Status != StatusShipping || o.InventoryRestored {
		t.Fatalf("order must be untouched, got %+v", o)
	}
	if q, _ := ledger.Read(ctx, keyA); q != 0 {
		t.Fatalf("ledger must be untouched, got %d", q)
	}

	if _, err := svc.Transition(ctx, "ord-1", Status("banana"), TransitionContext{}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for unknown status, got %v", err)
	}
}

func TestCancelRestoresExactlyOnce(t *testing.T) {
	svc, store, ledger := newService(map[inventory.Key]int{keyA: 0, keyB: 0})
	seedOrder(t, store, StatusPending)
	ctx := context.Background()

	if _, err := svc.Transition(ctx, "ord-1", StatusCancelled, TransitionContext{Note: "user cancel"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if q, _ := ledger.Read(ctx, keyA); q != 2 {
		t.Fatalf("expected keyA restored to 2, got %d", q)
	}
	if q, _ := ledger.Read(ctx, keyB); q != 1 {
		t.Fatalf("expected keyB restored to 1, got %d", q)
	}

	// retry cancel: sukses tapi no-op di ledger
	if _, err := svc.Transition(ctx, "ord-1", StatusCancelled, TransitionContext{}); err != nil {
		t.Fatalf("second cancel must be a no-op success, got %v", err)
	}
	if q, _ := ledger.Read(ctx, keyA); q != 2 {
		t.Fatalf("double restore leaked: keyA=%d", q)
	}
}

func TestPaymentFailedRestores(t *testing.T) {
	svc, store, ledger := newService(map[inventory.Key]int{keyA: 3, keyB: 4})
	seedOrder(t, store, StatusPending)
	ctx := context.Background()

	if _, err := svc.Transition(ctx, "ord-1", StatusPaymentFailed, TransitionContext{Note: "gateway declined"}); err != nil {
		t.Fatalf("payment_failed: %v", err)
	}
	if q, _ := ledger.Read(ctx, keyA); q != 5 {
		t.Fatalf("expected keyA 5, got %d", q)
	}
	if q, _ := ledger.Read(ctx, keyB); q != 5 {
		t.Fatalf("expected keyB 5, got %d", q)
	}
}

func TestReturnCompletedRestockRestoresOnce(t *testing.T) {
	// scenario: order sampai delivered, return restock; event completion dobel
	svc, store, ledger := newService(map[inventory.Key]int{keyA: 0, keyB: 0})
	seedOrder(t, store, StatusReturnProcessing)
	ctx := context.Background()

	if _, err := svc.Transition(ctx, "ord-1", StatusReturnCompleted, TransitionContext{ProcessingType: ProcessingRestock}); err != nil {
		t.Fatalf("return_completed: %v", err)
	}
	if q, _ := ledger.Read(ctx, keyA); q != 2 {
		t.Fatalf("expected restock to 2, got %d", q)
	}

	// event yang sama datang lagi -> duplicate, tanpa efek ledger
	if _, err := svc.Transition(ctx, "ord-1", StatusReturnCompleted, TransitionContext{ProcessingType: ProcessingRestock}); err != nil {
		t.Fatalf("duplicate completion must succeed, got %v", err)
	}
	if q, _ := ledger.Read(ctx, keyA); q != 2 {
		t.Fatalf("double restock leaked: keyA=%d", q)
	}
}

func TestReturnCompletedDisposalKeepsLedger(t *testing.T) {
	svc, store, ledger := newService(map[inventory.Key]int{keyA: 0, keyB: 0})
	seedOrder(t, store, StatusReturnProcessing)
	ctx := context.Background()

	if _, err := svc.Transition(ctx, "ord-1", StatusReturnCompleted, TransitionContext{ProcessingType: ProcessingDisposal}); err != nil {
		t.Fatalf("return_completed: %v", err)
	}
	if q, _ := ledger.Read(ctx, keyA); q != 0 {
		t.Fatalf("disposal must not restock, got %d", q)
	}
}

func TestReturnCompletedNeedsProcessingType(t *testing.T) {
	svc, store, _ := newService(map[inventory.Key]int{keyA: 0, keyB: 0})
	seedOrder(t, store, StatusReturnProcessing)

	_, err := svc.Transition(context.Background(), "ord-1", StatusReturnCompleted, TransitionContext{})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestTransitionDuplicateIsSuccess(t *testing.T) {
	svc, store, _ := newService(map[inventory.Key]int{keyA: 0, keyB: 0})
	seedOrder(t, store, StatusConfirmed)

	o, err := svc.Transition(context.Background(), "ord-1", StatusConfirmed, TransitionContext{})
	if err != nil {
		t.Fatalf("duplicate transition must succeed, got %v", err)
	}
	if len(o.History) != 1 {
		t.Fatalf("duplicate must not append history, got %d entries", len(o.History))
	}
}

func TestAutoConfirmDelivered(t *testing.T) {
	svc, store, _ := newService(map[inventory.Key]int{keyA: 0, keyB: 0})
	o := seedOrder(t, store, StatusDelivered)
	ctx := context.Background()

	// masih dalam window -> belum di-complete
	n, err := svc.AutoConfirmDelivered(ctx, time.Hour, 10)
	if err != nil {
		t.Fatalf("auto-confirm: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 confirmed, got %d", n)
	}

	// mundurkan updated_at melewati window
	store.mu.Lock()
	stale := store.byID[o.ID]
	stale.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	store.byID[o.ID] = stale
	store.mu.Unlock()

	n, err = svc.AutoConfirmDelivered(ctx, time.Hour, 10)
	if err != nil {
		t.Fatalf("auto-confirm: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 confirmed, got %d", n)
	}
	got, _ := store.Get(ctx, o.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}
