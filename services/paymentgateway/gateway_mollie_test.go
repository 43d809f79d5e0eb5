package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPayer struct {
	created     mollie.Payment
	payments    map[string]mollie.Payment
	err         error
	unavailable error
}

func (p *stubPayer) CreatePayment(c context.Context, request mollie.Payment) (mollie.Payment, error) {
	if p.err != nil {
		return mollie.Payment{}, p.err
	}
	p.created = request
	request.ID = "tr_1"
	request.Links = mollie.PaymentLinks{
		Checkout: &mollie.URL{Href: "https://www.mollie.com/checkout/tr_1"},
	}
	return request, nil
}

func (p *stubPayer) GetPaymentOnID(c context.Context, paymentID string) (mollie.Payment, error) {
	if p.unavailable != nil {
		return mollie.Payment{}, p.unavailable
	}
	payment, found := p.payments[paymentID]
	if !found {
		return mollie.Payment{}, fmt.Errorf("%w: %s", errUnknownPayment, paymentID)
	}
	return payment, nil
}

func TestMollieCreateIntent(t *testing.T) {
	payer := &stubPayer{}
	gw := NewMollieGateway(payer)

	intent, err := gw.CreateIntent(context.TODO(), IntentRequest{
		SessionUID: "s1",
		Amount:     decimal.RequireFromString("37.5"),
		Currency:   "EUR",
		SuccessURL: "https://shop.example.com/checkout/success?sessionId=s1",
		FailureURL: "https://shop.example.com/checkout/failure?sessionId=s1",
		WebhookURL: "https://api.example.com/webhooks/payment-provider",
	})
	require.NoError(t, err)
	assert.Equal(t, Intent{UID: "tr_1", RedirectURL: "https://www.mollie.com/checkout/tr_1"}, intent)
	assert.Equal(t, "37.50", payer.created.Amount.Value)
	assert.Equal(t, "https://api.example.com/webhooks/payment-provider", payer.created.WebhookURL)
	assert.Equal(t, "s1", sessionUIDFromMetadata(payer.created.Metadata))

	_, err = NewMollieGateway(&stubPayer{err: fmt.Errorf("boom")}).CreateIntent(context.TODO(), IntentRequest{})
	assert.True(t, errors.Is(err, ErrGateway))
}

func TestMollieWebhook(t *testing.T) {
	testCases := []struct {
		mollieStatus string
		status       PaymentStatus
	}{
		{"paid", PaymentStatusApproved},
		{"open", PaymentStatusPending},
		{"pending", PaymentStatusPending},
		{"authorized", PaymentStatusPending},
		{"failed", PaymentStatusRejected},
		{"canceled", PaymentStatusRejected},
		{"expired", PaymentStatusRejected},
	}
	for _, tc := range testCases {
		t.Run(tc.mollieStatus, func(t *testing.T) {
			gw := NewMollieGateway(&stubPayer{payments: map[string]mollie.Payment{
				"tr_1": {
					ID:       "tr_1",
					Status:   tc.mollieStatus,
					Metadata: map[string]interface{}{"sessionUID": "s1"},
				},
			}})
			payload := []byte("id=tr_1")

			assert.True(t, gw.VerifyWebhookSignature(context.TODO(), payload, ""))
			n, err := gw.ParseNotification(context.TODO(), payload)
			require.NoError(t, err)
			assert.Equal(t, "tr_1", n.ExternalPaymentUID)
			assert.Equal(t, "s1", n.SessionUID)
			assert.Equal(t, tc.status, n.Status)
		})
	}
}

func TestMollieWebhookForForeignPayment(t *testing.T) {
	gw := NewMollieGateway(&stubPayer{payments: map[string]mollie.Payment{
		"tr_2": {ID: "tr_2", Status: "paid"},
	}})
	c := context.TODO()

	assert.False(t, gw.VerifyWebhookSignature(c, []byte("id=tr_2"), ""))
	assert.False(t, gw.VerifyWebhookSignature(c, []byte("id=tr_unknown"), ""))
	assert.False(t, gw.VerifyWebhookSignature(c, []byte(""), ""))
}

func TestMollieWebhookWhileApiUnavailable(t *testing.T) {
	gw := NewMollieGateway(&stubPayer{unavailable: fmt.Errorf("503 service unavailable")})
	c := context.TODO()
	payload := []byte("id=tr_1")

	assert.True(t, gw.VerifyWebhookSignature(c, payload, ""))
	_, err := gw.ParseNotification(c, payload)
	assert.True(t, errors.Is(err, ErrGatewayUnavailable))
	assert.False(t, errors.Is(err, ErrInvalidSignature))
}
