package tickets

import (
	"context"
	"fmt"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mymetrics"
	"github.com/MarcGrol/ticketshop/lib/mypublisher"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/ticketevents"
)

type Issuer struct {
	logger      mylog.Logger
	nower       mytime.Nower
	ticketStore mystore.Store[Ticket]
	publisher   mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewIssuer(ticketStore mystore.Store[Ticket], nower mytime.Nower, publisher mypublisher.Publisher) *Issuer {
	return &Issuer{
		logger:      mylog.New("ticketissuer"),
		nower:       nower,
		ticketStore: ticketStore,
		publisher:   publisher,
	}
}

// IssueForSession makes sure every buyer of the session owns exactly one ticket.
// It joins the transaction of the caller when there is one.
func (i *Issuer) IssueForSession(c context.Context, session checkoutapi.CheckoutSession) ([]Ticket, error) {
	issued := make([]Ticket, 0, session.Quantity)

	err := i.ticketStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		issued = issued[:0]

		for idx := 0; idx < session.Quantity; idx++ {
			ticketUID := TicketUID(session.UID, idx)

			existing, found, err := i.ticketStore.Get(c, ticketUID)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error fetching ticket %s: %s", ticketUID, err))
			}
			if found {
				issued = append(issued, existing)
				continue
			}

			holderName := ""
			if idx < len(session.Buyers) {
				holderName = session.Buyers[idx].FullName()
			}

			ticket := Ticket{
				UID:           ticketUID,
				SessionUID:    session.UID,
				BuyerIndex:    idx,
				EventUID:      session.EventUID,
				TicketTypeUID: session.PriceUID,
				HolderName:    holderName,
				IssuedAt:      i.nower.Now(),
			}
			err = i.ticketStore.Put(c, ticketUID, ticket)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error storing ticket %s: %s", ticketUID, err))
			}

			err = i.publisher.Publish(c, ticketevents.TopicName, ticketevents.TicketIssued{
				TicketUID:     ticketUID,
				SessionUID:    session.UID,
				BuyerIndex:    idx,
				EventUID:      session.EventUID,
				TicketTypeUID: session.PriceUID,
			})
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error publishing ticket-issued event for %s: %s", ticketUID, err))
			}

			mymetrics.TicketsIssued.Inc()
			i.logger.Log(c, session.UID, mylog.SeverityInfo, "Issued ticket %s for buyer %d of session %s", ticketUID, idx, session.UID)

			issued = append(issued, ticket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return issued, nil
}

// Tickets returns the tickets with the given uids, in that order.
func (i *Issuer) Tickets(c context.Context, ticketUIDs []string) ([]Ticket, error) {
	result := make([]Ticket, 0, len(ticketUIDs))
	for _, ticketUID := range ticketUIDs {
		ticket, found, err := i.ticketStore.Get(c, ticketUID)
		if err != nil {
			return nil, myerrors.NewInternalError(fmt.Errorf("error fetching ticket %s: %s", ticketUID, err))
		}
		if !found {
			return nil, myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrNotFound, ticketUID))
		}
		result = append(result, ticket)
	}
	return result, nil
}
