package delivery

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered" // terminal sukses
	StatusFailed    Status = "failed"    // bisa dari semua state non-terminal
	StatusReturned  Status = "returned"  // terminal cabang gagal
)

var validNext = map[Status]map[Status]bool{
	StatusAssigned:  {StatusPickedUp: true, StatusFailed: true},
	StatusPickedUp:  {StatusInTransit: true, StatusFailed: true},
	StatusInTransit: {StatusDelivered: true, StatusFailed: true},
	StatusDelivered: {},
	StatusFailed:    {StatusReturned: true},
	StatusReturned:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Transisi yang butuh bukti foto dari shipper sebelum diterima.
var needsEvidence = map[Status]bool{
	StatusPickedUp:  true,
	StatusDelivered: true,
}

// Record 1:1 dengan order begitu shipper ditugaskan.
type Record struct {
	OrderID   string `json:"order_id"`
	ShipperID string `json:"shipper_id"`
	Status    Status `json:"status"`

	AssignedAt  time.Time  `json:"assigned_at"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	InTransitAt *time.Time `json:"in_transit_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`

	PickupPhotoURL   string `json:"pickup_photo_url,omitempty"`
	DeliveryPhotoURL string `json:"delivery_photo_url,omitempty"`
	FailureReason    string `json:"failure_reason,omitempty"`
}

// Event input dari shipper: target status + lampiran.
type Event struct {
	Type      Status `json:"type"`
	ShipperID string `json:"shipper_id,omitempty"` // untuk assigned
	Evidence  string `json:"evidence,omitempty"`   // URL foto pickup/delivery
	Reason    string `json:"reason,omitempty"`     // untuk failed
}

var (
	ErrNotFound          = errors.New("delivery record not found")
	ErrAlreadyAssigned   = errors.New("shipper already assigned")
	ErrIllegalTransition = errors.New("illegal delivery transition")
	ErrEvidenceRequired  = errors.New("evidence photo required")
)

type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, orderID string) (Record, error)
	// UpdateStatus conditional from -> to; stempel timestamp fase + lampiran.
	UpdateStatus(ctx context.Context, orderID string, from, to Status, at time.Time, evidence, reason string) (bool, error)
}
