package checkout

import (
	"errors"
	"time"

	"github.com/MarcGrol/ticketshop/services/paymentgateway"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("session not found")
	ErrInvalidState   = errors.New("invalid session state")
	ErrSoldOut        = errors.New("sold out")
	ErrSessionExpired = errors.New("session expired")
)

const KindSoldOut = "SoldOut"

type Config struct {
	SessionTTL           time.Duration
	SessionRetention     time.Duration
	MaxTicketsPerSession int
	StorefrontURL        string
}

type PaymentOutcome string

const (
	PaymentOutcomePaid     PaymentOutcome = "paid"
	PaymentOutcomeFailed   PaymentOutcome = "failed"
	PaymentOutcomeRecorded PaymentOutcome = "recorded"
	PaymentOutcomeIgnored  PaymentOutcome = "ignored"
	PaymentOutcomeExpired  PaymentOutcome = "expired"
)

// PaymentEvent is the record of a processed webhook notification.
// The UID combines payment and status so a redelivery is recognized,
// while a status change of the same payment is not.
type PaymentEvent struct {
	UID                string
	ExternalPaymentUID string
	SessionUID         string
	Status             paymentgateway.PaymentStatus
	Provider           string
	ReceivedAt         time.Time
	Outcome            PaymentOutcome
}

func paymentEventUID(n paymentgateway.Notification) string {
	return n.ExternalPaymentUID + "/" + string(n.Status)
}

func sessionLockKey(sessionUID string) string {
	return "session:" + sessionUID
}
