package order

// Order status values. Statuses move forward only; canceled is terminal and
// reachable from pending_payment alone.
const (
	StatusPendingPayment = "pending_payment"
	StatusPaid           = "paid"
	StatusPacked         = "packed"
	StatusShipped        = "shipped"
	StatusDelivered      = "delivered"
	StatusCanceled       = "canceled"
)

func statusRank(status string) int {
	switch status {
	case StatusPendingPayment:
		return 0
	case StatusPaid:
		return 1
	case StatusPacked:
		return 2
	case StatusShipped:
		return 3
	case StatusDelivered:
		return 4
	case StatusCanceled:
		return -1
	default:
		return -2
	}
}

func isAdminTarget(status string) bool {
	switch status {
	case StatusPacked, StatusShipped, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}
