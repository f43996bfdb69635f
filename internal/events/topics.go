package events

const (
	TopicStockUpdated       = "commerce.stock.updated"
	TopicReservationUpdated = "commerce.reservation.updated"
	TopicOrderStatus        = "commerce.order.status"
	TopicPaymentResult      = "commerce.payment.result"
)

// Partition key = id entitas (order_id / stock key), supaya event per entitas maintain urutan.
func PartitionKey(id string) []byte { return []byte(id) }
