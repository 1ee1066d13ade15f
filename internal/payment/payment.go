package payment

import "context"

const StatusAwaitingPayment = "AWAITING_PAYMENT"

type Request struct {
	OrderID int64
	Amount  int64
	UserID  int64
}

type Result struct {
	PaymentID   string
	SnapToken   string
	Status      string
	RedirectURL string
}

// StatusResult carries the provider's own vocabulary; mapping to internal
// order status happens in the reconciler.
type StatusResult struct {
	TransactionStatus string
	FraudStatus       string
	TransactionID     string
}

// Processor is the gateway contract. Implementations: MidtransGateway,
// MockGateway, and the Retrier that wraps either of them.
type Processor interface {
	ProcessPayment(ctx context.Context, req Request) (*Result, error)
	QueryStatus(ctx context.Context, orderID int64, providerRef string) (*StatusResult, error)
}
