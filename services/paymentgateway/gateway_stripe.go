package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/MarcGrol/ticketshop/lib/mytime"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	sessionUIDMetadataKey = "sessionUID"

	// Stripe accepts checkout expiries between 30 minutes and 24 hours ahead.
	stripeMinExpiry = 31 * time.Minute
	stripeMaxExpiry = 24 * time.Hour
)

type stripeSessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeGateway struct {
	sessions      stripeSessionCreator
	webhookSecret string
	nower         mytime.Nower
}

func NewStripeGateway(apiKey string, webhookSecret string, nower mytime.Nower) *stripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)

	return newStripeGateway(sc.CheckoutSessions, webhookSecret, nower)
}

func newStripeGateway(sessions stripeSessionCreator, webhookSecret string, nower mytime.Nower) *stripeGateway {
	return &stripeGateway{
		sessions:      sessions,
		webhookSecret: webhookSecret,
		nower:         nower,
	}
}

func (g *stripeGateway) Name() string {
	return "stripe"
}

func (g *stripeGateway) SignatureHeader() string {
	return stripeSignatureHeader
}

func (g *stripeGateway) CreateIntent(c context.Context, req IntentRequest) (Intent, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.FailureURL),
		ClientReferenceID: stripe.String(req.SessionUID),
		CustomerEmail:     stripe.String(req.PayerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.Amount.Shift(2).Round(0).IntPart()),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.ExpiresAt = stripe.Int64(g.checkoutExpiry(req.ExpiresAt).Unix())
	params.Context = c
	params.AddMetadata(sessionUIDMetadataKey, req.SessionUID)
	params.SetIdempotencyKey("checkout-" + req.SessionUID)

	session, err := g.sessions.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: error creating stripe checkout session: %s", ErrGateway, err)
	}

	return Intent{
		UID:         session.ID,
		RedirectURL: session.URL,
	}, nil
}

// checkoutExpiry closes the Stripe page as soon as Stripe allows after our session expired.
// With a session TTL below Stripe's minimum a buyer can still pay after expiry; such
// payments are reported as orphaned.
func (g *stripeGateway) checkoutExpiry(sessionExpiresAt time.Time) time.Time {
	now := g.nower.Now()
	if earliest := now.Add(stripeMinExpiry); sessionExpiresAt.Before(earliest) {
		return earliest
	}
	if latest := now.Add(stripeMaxExpiry); sessionExpiresAt.After(latest) {
		return latest
	}
	return sessionExpiresAt
}

func (g *stripeGateway) VerifyWebhookSignature(c context.Context, payload []byte, signatureHeader string) bool {
	_, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	return err == nil
}

func (g *stripeGateway) ParseNotification(c context.Context, payload []byte) (Notification, error) {
	event := stripe.Event{}
	err := json.Unmarshal(payload, &event)
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %s", ErrMalformedNotification, err)
	}

	var status PaymentStatus
	switch string(event.Type) {
	case "checkout.session.completed":
		status = PaymentStatusPending
	case "checkout.session.async_payment_succeeded":
		status = PaymentStatusApproved
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		status = PaymentStatusRejected
	default:
		return Notification{}, fmt.Errorf("%w: stripe event %s", ErrIgnoredNotification, event.Type)
	}

	if event.Data == nil {
		return Notification{}, fmt.Errorf("%w: stripe event %s without data", ErrMalformedNotification, event.ID)
	}
	session := stripe.CheckoutSession{}
	err = json.Unmarshal(event.Data.Raw, &session)
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %s", ErrMalformedNotification, err)
	}

	// Completion only means the buyer finished the form; delayed methods settle later.
	if string(event.Type) == "checkout.session.completed" &&
		session.PaymentStatus != stripe.CheckoutSessionPaymentStatusUnpaid {
		status = PaymentStatusApproved
	}

	sessionUID := session.ClientReferenceID
	if sessionUID == "" {
		sessionUID = session.Metadata[sessionUIDMetadataKey]
	}
	if session.ID == "" || sessionUID == "" {
		return Notification{}, fmt.Errorf("%w: stripe session without reference", ErrMalformedNotification)
	}

	return Notification{
		ExternalPaymentUID: session.ID,
		SessionUID:         sessionUID,
		Status:             status,
		Details:            fmt.Sprintf("%s/%s", event.Type, session.PaymentStatus),
	}, nil
}
