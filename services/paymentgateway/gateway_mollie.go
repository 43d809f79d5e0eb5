package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"
	formcodec "github.com/go-playground/form/v4"
)

//go:generate mockgen -source=gateway_mollie.go -package paymentgateway -destination payer_mock.go Payer
type Payer interface {
	CreatePayment(c context.Context, request mollie.Payment) (mollie.Payment, error)
	GetPaymentOnID(c context.Context, paymentID string) (mollie.Payment, error)
}

var errUnknownPayment = errors.New("unknown mollie payment")

type molliePayer struct {
	client *mollie.Client
}

func NewMolliePayer(apiKey string, testMode bool) (Payer, error) {
	config := mollie.NewAPIConfig(true)
	if testMode {
		config = mollie.NewAPITestingConfig(true)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("missing mollie api key")
	}

	client, err := mollie.NewClient(nil, config)
	if err != nil {
		return nil, fmt.Errorf("error creating mollie client: %s", err)
	}
	client.WithAuthenticationValue(apiKey)

	return &molliePayer{
		client: client,
	}, nil
}

func (p *molliePayer) CreatePayment(c context.Context, request mollie.Payment) (mollie.Payment, error) {
	_, payment, err := p.client.Payments.Create(c, request, nil)
	if err != nil {
		return mollie.Payment{}, fmt.Errorf("error creating mollie payment: %s", err)
	}

	return *payment, nil
}

func (p *molliePayer) GetPaymentOnID(c context.Context, id string) (mollie.Payment, error) {
	res, payment, err := p.client.Payments.Get(c, id, &mollie.PaymentOptions{})
	if err != nil {
		if res != nil && res.Response != nil && res.StatusCode == http.StatusNotFound {
			return mollie.Payment{}, fmt.Errorf("%w: %s", errUnknownPayment, id)
		}
		return mollie.Payment{}, fmt.Errorf("error getting mollie payment: %s", err)
	}

	return *payment, nil
}

type mollieWebhook struct {
	ID string `form:"id"`
}

// mollieGateway authenticates webhooks by fetching the payment with our own key:
// Mollie does not sign its callbacks, it only posts the payment id.
type mollieGateway struct {
	payer Payer
}

func NewMollieGateway(payer Payer) *mollieGateway {
	return &mollieGateway{
		payer: payer,
	}
}

func (g *mollieGateway) Name() string {
	return "mollie"
}

func (g *mollieGateway) SignatureHeader() string {
	return ""
}

func (g *mollieGateway) CreateIntent(c context.Context, req IntentRequest) (Intent, error) {
	payment, err := g.payer.CreatePayment(c, mollie.Payment{
		Description:  req.Description,
		BillingEmail: req.PayerEmail,
		RedirectURL:  req.SuccessURL,
		CancelURL:    req.FailureURL,
		WebhookURL:   req.WebhookURL,
		Metadata: map[string]string{
			sessionUIDMetadataKey: req.SessionUID,
		},
		Amount: &mollie.Amount{
			Currency: req.Currency,
			Value:    req.Amount.StringFixed(2),
		},
	})
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %s", ErrGateway, err)
	}
	if payment.Links.Checkout == nil {
		return Intent{}, fmt.Errorf("%w: mollie payment %s without checkout link", ErrGateway, payment.ID)
	}

	return Intent{
		UID:         payment.ID,
		RedirectURL: payment.Links.Checkout.Href,
	}, nil
}

func (g *mollieGateway) VerifyWebhookSignature(c context.Context, payload []byte, signatureHeader string) bool {
	_, err := g.fetchPayment(c, payload)
	// An unreachable api proves nothing either way: ParseNotification reports the outage.
	return err == nil || errors.Is(err, ErrGatewayUnavailable)
}

func (g *mollieGateway) ParseNotification(c context.Context, payload []byte) (Notification, error) {
	payment, err := g.fetchPayment(c, payload)
	if err != nil {
		return Notification{}, err
	}

	var status PaymentStatus
	switch payment.Status {
	case "paid":
		status = PaymentStatusApproved
	case "open", "pending", "authorized":
		status = PaymentStatusPending
	case "failed", "canceled", "expired":
		status = PaymentStatusRejected
	default:
		return Notification{}, fmt.Errorf("%w: mollie status %s", ErrIgnoredNotification, payment.Status)
	}

	return Notification{
		ExternalPaymentUID: payment.ID,
		SessionUID:         sessionUIDFromMetadata(payment.Metadata),
		Status:             status,
		Details:            payment.Status,
	}, nil
}

func (g *mollieGateway) fetchPayment(c context.Context, payload []byte) (mollie.Payment, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return mollie.Payment{}, fmt.Errorf("%w: %s", ErrMalformedNotification, err)
	}
	hook := mollieWebhook{}
	err = formcodec.NewDecoder().Decode(&hook, values)
	if err != nil || hook.ID == "" {
		return mollie.Payment{}, fmt.Errorf("%w: missing payment id", ErrMalformedNotification)
	}

	payment, err := g.payer.GetPaymentOnID(c, hook.ID)
	if errors.Is(err, errUnknownPayment) {
		return mollie.Payment{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if err != nil {
		return mollie.Payment{}, fmt.Errorf("%w: %s", ErrGatewayUnavailable, err)
	}
	if sessionUIDFromMetadata(payment.Metadata) == "" {
		return mollie.Payment{}, fmt.Errorf("%w: mollie payment %s not created by us", ErrInvalidSignature, hook.ID)
	}

	return payment, nil
}

func sessionUIDFromMetadata(metadata interface{}) string {
	switch m := metadata.(type) {
	case map[string]string:
		return m[sessionUIDMetadataKey]
	case map[string]interface{}:
		uid, _ := m[sessionUIDMetadataKey].(string)
		return uid
	default:
		return ""
	}
}
