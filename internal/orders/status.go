package orders

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusPaid            Status = "PAID"
	StatusFailed          Status = "FAILED"
	StatusCancelled       Status = "CANCELLED"
	StatusRefunded        Status = "REFUNDED"
)

// Transitions only move forward; nothing reinstates PENDING.
var validNext = map[Status]map[Status]bool{
	StatusPending:         {StatusAwaitingPayment: true, StatusFailed: true},
	StatusAwaitingPayment: {StatusPaid: true, StatusFailed: true, StatusCancelled: true, StatusRefunded: true},
	StatusPaid:            {StatusRefunded: true},
	StatusFailed:          {},
	StatusCancelled:       {},
	StatusRefunded:        {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
