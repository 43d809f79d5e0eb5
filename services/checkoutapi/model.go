package checkoutapi

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SessionState string

const (
	SessionStateCreated        SessionState = "CREATED"
	SessionStateDataAttached   SessionState = "DATA_ATTACHED"
	SessionStatePaymentPending SessionState = "PAYMENT_PENDING"
	SessionStatePaid           SessionState = "PAID"
	SessionStateFailed         SessionState = "FAILED"
	SessionStateExpired        SessionState = "EXPIRED"
)

func (s SessionState) IsTerminal() bool {
	return s == SessionStatePaid || s == SessionStateFailed || s == SessionStateExpired
}

type Buyer struct {
	FirstName      string `json:"firstName" form:"firstName" validate:"required"`
	LastName       string `json:"lastName" form:"lastName" validate:"required"`
	Email          string `json:"email" form:"email" validate:"required,email"`
	Phone          string `json:"phone" form:"phone" validate:"required,phone"`
	Nationality    string `json:"nationality" form:"nationality" validate:"required,iso3166_1_alpha2"`
	DocumentType   string `json:"documentType" form:"documentType" validate:"required"`
	DocumentNumber string `json:"documentNumber" form:"documentNumber" validate:"required"`
}

func (b Buyer) FullName() string {
	return b.FirstName + " " + b.LastName
}

func (b Buyer) trimmed() Buyer {
	return Buyer{
		FirstName:      strings.TrimSpace(b.FirstName),
		LastName:       strings.TrimSpace(b.LastName),
		Email:          strings.TrimSpace(b.Email),
		Phone:          strings.TrimSpace(b.Phone),
		Nationality:    strings.TrimSpace(b.Nationality),
		DocumentType:   strings.TrimSpace(b.DocumentType),
		DocumentNumber: strings.TrimSpace(b.DocumentNumber),
	}
}

type CheckoutSession struct {
	UID              string
	EventUID         string
	PriceUID         string
	Quantity         int
	UnitPrice        string
	Currency         string
	MainEmail        string
	Buyers           []Buyer
	State            SessionState
	CreatedAt        time.Time
	ExpiresAt        time.Time
	LastModified     *time.Time
	PaymentProvider  string
	PaymentIntentUID string
	RedirectURL      string `datastore:",noindex"`
	TicketUIDs       []string
}

// IsExpired reports whether the session can no longer progress: either the expiry was
// persisted or the deadline passed before payment was confirmed.
func (s CheckoutSession) IsExpired(now time.Time) bool {
	switch s.State {
	case SessionStateExpired:
		return true
	case SessionStatePaid, SessionStateFailed:
		return false
	default:
		return now.After(s.ExpiresAt)
	}
}

// EffectiveState is the state as observed by clients at the given moment.
func (s CheckoutSession) EffectiveState(now time.Time) SessionState {
	if s.IsExpired(now) {
		return SessionStateExpired
	}
	return s.State
}

func (s CheckoutSession) Price() decimal.Decimal {
	price, err := decimal.NewFromString(s.UnitPrice)
	if err != nil {
		return decimal.Zero
	}
	return price
}

func (s CheckoutSession) TotalAmount() decimal.Decimal {
	return s.Price().Mul(decimal.NewFromInt(int64(s.Quantity)))
}
