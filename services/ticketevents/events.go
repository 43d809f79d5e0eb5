package ticketevents

import "time"

const (
	TopicName           = "ticket"
	ticketIssuedName    = TopicName + ".issued"
	ticketValidatedName = TopicName + ".validated"
)

type TicketIssued struct {
	TicketUID     string
	SessionUID    string
	BuyerIndex    int
	EventUID      string
	TicketTypeUID string
}

func (e TicketIssued) GetEventTypeName() string {
	return ticketIssuedName
}

func (e TicketIssued) GetAggregateName() string {
	return e.TicketUID
}

type TicketValidated struct {
	TicketUID   string
	EventUID    string
	ValidatedAt time.Time
	ValidatedBy string
}

func (e TicketValidated) GetEventTypeName() string {
	return ticketValidatedName
}

func (e TicketValidated) GetAggregateName() string {
	return e.TicketUID
}
