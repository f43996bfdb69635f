package orders

type Status string

const (
	StatusPending          Status = "pending"
	StatusConfirmed        Status = "confirmed"
	StatusReadyForPickup   Status = "ready_for_pickup"
	StatusShipping         Status = "shipping"
	StatusDelivered        Status = "delivered"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
	StatusPaymentFailed    Status = "payment_failed"
	StatusReturnPending    Status = "return_pending"
	StatusReturnConfirmed  Status = "return_confirmed"
	StatusReturnProcessing Status = "return_processing"
	StatusReturnCompleted  Status = "return_completed"
	StatusRefundRequested  Status = "refund_requested"
	StatusRefunded         Status = "refunded"
)

// Satu tabel transisi, divalidasi terpusat. Cancel hanya dari state pre-shipment;
// shipping -> return_pending adalah jalur delivery gagal.
var validNext = map[Status]map[Status]bool{
	StatusPending:          {StatusConfirmed: true, StatusCancelled: true, StatusPaymentFailed: true},
	StatusConfirmed:        {StatusReadyForPickup: true, StatusCancelled: true},
	StatusReadyForPickup:   {StatusShipping: true, StatusCancelled: true},
	StatusShipping:         {StatusDelivered: true, StatusReturnPending: true},
	StatusDelivered:        {StatusCompleted: true, StatusReturnPending: true, StatusRefundRequested: true},
	StatusCompleted:        {},
	StatusCancelled:        {},
	StatusPaymentFailed:    {},
	StatusReturnPending:    {StatusReturnConfirmed: true},
	StatusReturnConfirmed:  {StatusReturnProcessing: true},
	StatusReturnProcessing: {StatusReturnCompleted: true},
	StatusReturnCompleted:  {},
	StatusRefundRequested:  {StatusRefunded: true},
	StatusRefunded:         {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func Terminal(s Status) bool {
	return len(validNext[s]) == 0
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}
