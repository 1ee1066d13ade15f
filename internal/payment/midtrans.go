package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	snapBaseSandbox = "https://app.sandbox.midtrans.com"
	snapBaseProd    = "https://app.midtrans.com"
	coreBaseSandbox = "https://api.sandbox.midtrans.com"
	coreBaseProd    = "https://api.midtrans.com"
)

// MidtransGateway talks to the Midtrans Snap and Core APIs. The server key
// authenticates via basic auth (key as username, empty password).
type MidtransGateway struct {
	snap *resty.Client
	core *resty.Client
	log  *zap.Logger
}

func NewMidtransGateway(serverKey string, production bool, log *zap.Logger) *MidtransGateway {
	snapBase, coreBase := snapBaseSandbox, coreBaseSandbox
	if production {
		snapBase, coreBase = snapBaseProd, coreBaseProd
	}
	if log == nil {
		log = zap.NewNop()
	}
	newClient := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetBasicAuth(serverKey, "").
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json")
	}
	return &MidtransGateway{
		snap: newClient(snapBase),
		core: newClient(coreBase),
		log:  log,
	}
}

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CreditCard struct {
		Secure bool `json:"secure"`
	} `json:"credit_card"`
}

type snapResponse struct {
	Token        string   `json:"token"`
	RedirectURL  string   `json:"redirect_url"`
	ErrorMessage []string `json:"error_messages"`
}

// ProcessPayment creates a Snap transaction. The generated merchant order id
// ("ORDER-<id>-<unix-ms>") becomes the stored provider reference; webhooks
// later recover the numeric order id from its prefix.
func (g *MidtransGateway) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	merchantRef := fmt.Sprintf("ORDER-%d-%d", req.OrderID, time.Now().UnixMilli())

	var body snapRequest
	body.TransactionDetails.OrderID = merchantRef
	body.TransactionDetails.GrossAmount = req.Amount
	body.CreditCard.Secure = true

	var out snapResponse
	resp, err := g.snap.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/snap/v1/transactions")
	if err != nil {
		return nil, fmt.Errorf("midtrans snap: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("midtrans snap: status %d: %v", resp.StatusCode(), out.ErrorMessage)
	}

	g.log.Info("midtrans_snap_token_generated",
		zap.Int64("order_id", req.OrderID),
		zap.String("merchant_ref", merchantRef),
	)
	return &Result{
		PaymentID:   merchantRef,
		SnapToken:   out.Token,
		Status:      StatusAwaitingPayment,
		RedirectURL: out.RedirectURL,
	}, nil
}

type statusResponse struct {
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
}

func (g *MidtransGateway) QueryStatus(ctx context.Context, orderID int64, providerRef string) (*StatusResult, error) {
	var out statusResponse
	resp, err := g.core.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("ref", providerRef).
		Get("/v2/{ref}/status")
	if err != nil {
		return nil, fmt.Errorf("midtrans status %s: %w", providerRef, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("midtrans status %s: status %d: %s", providerRef, resp.StatusCode(), out.StatusMessage)
	}
	return &StatusResult{
		TransactionStatus: out.TransactionStatus,
		FraudStatus:       out.FraudStatus,
		TransactionID:     out.TransactionID,
	}, nil
}
