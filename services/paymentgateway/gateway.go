package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrGateway               = errors.New("payment gateway error")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrIgnoredNotification   = errors.New("notification not relevant for checkout")
	ErrMalformedNotification = errors.New("malformed notification")
)

type PaymentStatus string

const (
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusRejected PaymentStatus = "rejected"
)

type IntentRequest struct {
	SessionUID  string
	Description string
	Amount      decimal.Decimal
	Currency    string
	PayerEmail  string
	SuccessURL  string
	FailureURL  string
	PendingURL  string
	WebhookURL  string
	ExpiresAt   time.Time
}

type Intent struct {
	UID         string
	RedirectURL string
}

type Notification struct {
	ExternalPaymentUID string
	SessionUID         string
	Status             PaymentStatus
	Details            string
}

// Gateway hides the specifics of an external payment processor.
//
//go:generate mockgen -source=gateway.go -package paymentgateway -destination gateway_mock.go Gateway
type Gateway interface {
	Name() string
	SignatureHeader() string
	CreateIntent(c context.Context, req IntentRequest) (Intent, error)
	VerifyWebhookSignature(c context.Context, payload []byte, signatureHeader string) bool
	ParseNotification(c context.Context, payload []byte) (Notification, error)
}

type CallbackURLs struct {
	Success string
	Failure string
	Pending string
}

// NewCallbackURLs composes the storefront pages the buyer returns to after paying.
func NewCallbackURLs(storefrontURL string, sessionUID string) CallbackURLs {
	compose := func(status string) string {
		return fmt.Sprintf("%s/checkout/%s?%s", strings.TrimRight(storefrontURL, "/"), status,
			url.Values{"sessionId": []string{sessionUID}}.Encode())
	}
	return CallbackURLs{
		Success: compose("success"),
		Failure: compose("failure"),
		Pending: compose("pending"),
	}
}
