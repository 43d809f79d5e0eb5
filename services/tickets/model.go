package tickets

import (
	"errors"
	"fmt"
	"time"

	"github.com/MarcGrol/ticketshop/lib/myuuid"
)

var (
	ErrNotFound         = errors.New("ticket not found")
	ErrAlreadyValidated = errors.New("ticket already validated")
)

const KindAlreadyValidated = "AlreadyValidated"

// Ticket is also called a sale by the gate devices.
type Ticket struct {
	UID           string
	SessionUID    string
	BuyerIndex    int
	EventUID      string
	TicketTypeUID string
	HolderName    string
	IssuedAt      time.Time
	Validated     bool
	ValidatedAt   *time.Time
	ValidatedBy   string
}

// TicketUID is the same for every issuance attempt of the same buyer of a session.
func TicketUID(sessionUID string, buyerIndex int) string {
	return myuuid.Derive(fmt.Sprintf("%s/%d", sessionUID, buyerIndex))
}

type TicketView struct {
	TicketID    string     `json:"ticketId"`
	SessionID   string     `json:"sessionId"`
	BuyerIndex  int        `json:"buyerIndex"`
	EventID     string     `json:"eventId"`
	PriceID     string     `json:"priceId"`
	HolderName  string     `json:"holderName"`
	IssuedAt    time.Time  `json:"issuedAt"`
	Validated   bool       `json:"validated"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
	ValidatedBy string     `json:"validatedBy,omitempty"`
}

func NewTicketView(t Ticket) TicketView {
	return TicketView{
		TicketID:    t.UID,
		SessionID:   t.SessionUID,
		BuyerIndex:  t.BuyerIndex,
		EventID:     t.EventUID,
		PriceID:     t.TicketTypeUID,
		HolderName:  t.HolderName,
		IssuedAt:    t.IssuedAt,
		Validated:   t.Validated,
		ValidatedAt: t.ValidatedAt,
		ValidatedBy: t.ValidatedBy,
	}
}

type AlreadyValidatedResponse struct {
	Outcome     string     `json:"outcome"`
	SaleID      string     `json:"saleId"`
	ValidatedAt *time.Time `json:"validatedAt"`
	ValidatedBy string     `json:"validatedBy"`
}
