package paymentgateway

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/ticketshop/lib/myuuid"
)

func TestCallbackURLs(t *testing.T) {
	urls := NewCallbackURLs("https://shop.example.com/", "abc 123")

	assert.Equal(t, "https://shop.example.com/checkout/success?sessionId=abc+123", urls.Success)
	assert.Equal(t, "https://shop.example.com/checkout/failure?sessionId=abc+123", urls.Failure)
	assert.Equal(t, "https://shop.example.com/checkout/pending?sessionId=abc+123", urls.Pending)
}

func TestFakeGatewayCreateIntent(t *testing.T) {
	ctrl := gomock.NewController(t)
	uuider := myuuid.NewMockUUIDer(ctrl)
	uuider.EXPECT().Create().Return("1")

	gw := NewFakeGateway("secret", uuider)
	intent, err := gw.CreateIntent(context.TODO(), IntentRequest{
		SessionUID: "s1",
		Amount:     decimal.RequireFromString("25.00"),
		Currency:   "EUR",
		SuccessURL: "https://shop.example.com/checkout/success?sessionId=s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", intent.UID)
	assert.Equal(t, "https://shop.example.com/checkout/success?sessionId=s1", intent.RedirectURL)
	assert.Len(t, gw.Intents(), 1)

	gw.FailNextIntents(true)
	_, err = gw.CreateIntent(context.TODO(), IntentRequest{SessionUID: "s2"})
	assert.True(t, errors.Is(err, ErrGateway))
}

func TestFakeGatewaySignature(t *testing.T) {
	gw := NewFakeGateway("secret", myuuid.RealUUIDer{})
	c := context.TODO()

	payload, signature := gw.NewNotification("pay_1", "s1", PaymentStatusApproved)

	assert.True(t, gw.VerifyWebhookSignature(c, payload, signature))
	assert.False(t, gw.VerifyWebhookSignature(c, payload, ""))
	assert.False(t, gw.VerifyWebhookSignature(c, payload, "zz"))
	assert.False(t, gw.VerifyWebhookSignature(c, append(payload, ' '), signature))

	other := NewFakeGateway("other-secret", myuuid.RealUUIDer{})
	assert.False(t, other.VerifyWebhookSignature(c, payload, signature))

	n, err := gw.ParseNotification(c, payload)
	require.NoError(t, err)
	assert.Equal(t, Notification{ExternalPaymentUID: "pay_1", SessionUID: "s1", Status: PaymentStatusApproved}, n)
}

func TestFakeGatewayMalformedNotification(t *testing.T) {
	gw := NewFakeGateway("secret", myuuid.RealUUIDer{})
	c := context.TODO()

	_, err := gw.ParseNotification(c, []byte(`{`))
	assert.True(t, errors.Is(err, ErrMalformedNotification))

	_, err = gw.ParseNotification(c, []byte(`{"id":"pay_1","status":"approved"}`))
	assert.True(t, errors.Is(err, ErrMalformedNotification))

	_, err = gw.ParseNotification(c, []byte(`{"id":"pay_1","sessionId":"s1","status":"refunded"}`))
	assert.True(t, errors.Is(err, ErrMalformedNotification))
}
