package checkoutapi

import (
	"time"
)

type CreateSessionRequest struct {
	EventUID string `json:"eventId"`
	PriceUID string `json:"priceId"`
	Quantity int    `json:"quantity"`
}

type CreateSessionResponse struct {
	SessionUID string `json:"sessionId"`
	ExpiredIn  int    `json:"expiredIn"` // seconds
}

type BuyerDataRequest struct {
	MainEmail string  `json:"mainEmail" form:"mainEmail" validate:"required,email"`
	Buyers    []Buyer `json:"buyer" form:"buyer" validate:"dive"`
}

type ProcessPaymentRequest struct {
	SessionUID string `json:"sessionId"`
}

type ProcessPaymentResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

type SessionView struct {
	SessionUID       string       `json:"sessionId"`
	EventUID         string       `json:"eventId"`
	PriceUID         string       `json:"priceId"`
	Quantity         int          `json:"quantity"`
	UnitPrice        string       `json:"unitPrice"`
	TotalAmount      string       `json:"totalAmount"`
	Currency         string       `json:"currency"`
	MainEmail        string       `json:"mainEmail,omitempty"`
	Buyers           []Buyer      `json:"buyer"`
	State            SessionState `json:"state"`
	CreatedAt        time.Time    `json:"createdAt"`
	ExpiresAt        time.Time    `json:"expiresAt"`
	ExpiredIn        int          `json:"expiredIn"`
	PaymentIntentUID string       `json:"paymentIntentId,omitempty"`
	TicketUIDs       []string     `json:"ticketIds,omitempty"`
}

func NewSessionView(session CheckoutSession, now time.Time) SessionView {
	expiredIn := 0
	if now.Before(session.ExpiresAt) {
		expiredIn = int(session.ExpiresAt.Sub(now).Seconds())
	}
	buyers := session.Buyers
	if buyers == nil {
		buyers = []Buyer{}
	}
	return SessionView{
		SessionUID:       session.UID,
		EventUID:         session.EventUID,
		PriceUID:         session.PriceUID,
		Quantity:         session.Quantity,
		UnitPrice:        session.Price().StringFixed(2),
		TotalAmount:      session.TotalAmount().StringFixed(2),
		Currency:         session.Currency,
		MainEmail:        session.MainEmail,
		Buyers:           buyers,
		State:            session.EffectiveState(now),
		CreatedAt:        session.CreatedAt,
		ExpiresAt:        session.ExpiresAt,
		ExpiredIn:        expiredIn,
		PaymentIntentUID: session.PaymentIntentUID,
		TicketUIDs:       session.TicketUIDs,
	}
}
