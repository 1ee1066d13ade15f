package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "SB-Mid-server-test-key"

func validNotification() Notification {
	n := Notification{
		OrderID:           "ORDER-42-1700000000000",
		StatusCode:        "200",
		GrossAmount:       "2775.00",
		TransactionStatus: "settlement",
		TransactionID:     "txn-1",
	}
	n.SignatureKey = Sign(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}

func TestVerifySignatureValid(t *testing.T) {
	require.NoError(t, VerifySignature(validNotification(), testServerKey))
}

func TestVerifySignatureMissing(t *testing.T) {
	n := validNotification()
	n.SignatureKey = ""
	assert.ErrorIs(t, VerifySignature(n, testServerKey), ErrMissingSignature)
}

func TestVerifySignatureTampered(t *testing.T) {
	n := validNotification()
	n.GrossAmount = "1.00" // amount changed after signing
	assert.ErrorIs(t, VerifySignature(n, testServerKey), ErrInvalidSignature)
}

func TestVerifySignatureWrongKey(t *testing.T) {
	n := validNotification()
	assert.ErrorIs(t, VerifySignature(n, "some-other-key"), ErrInvalidSignature)
}

func TestVerifySignatureWrongLength(t *testing.T) {
	n := validNotification()
	n.SignatureKey = "deadbeef"
	assert.ErrorIs(t, VerifySignature(n, testServerKey), ErrInvalidSignature)
}
