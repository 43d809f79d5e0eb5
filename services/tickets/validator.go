package tickets

import (
	"context"
	"fmt"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/mylock"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mymetrics"
	"github.com/MarcGrol/ticketshop/lib/mypublisher"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/services/ticketevents"
)

type validator struct {
	logger      mylog.Logger
	nower       mytime.Nower
	locker      mylock.Locker
	ticketStore mystore.Store[Ticket]
	publisher   mypublisher.Publisher
}

func newValidator(logger mylog.Logger, nower mytime.Nower, locker mylock.Locker, ticketStore mystore.Store[Ticket], publisher mypublisher.Publisher) *validator {
	return &validator{
		logger:      logger,
		nower:       nower,
		locker:      locker,
		ticketStore: ticketStore,
		publisher:   publisher,
	}
}

// validate marks the ticket as used. Exactly one of many simultaneous scans of the same ticket succeeds;
// the others get ErrAlreadyValidated together with the ticket as it was validated.
func (v *validator) validate(c context.Context, eventUID string, ticketUID string, staffRef string) (Ticket, error) {
	unlock, err := v.locker.Lock(c, "ticket:"+ticketUID)
	if err != nil {
		return Ticket{}, myerrors.NewUnavailableError(fmt.Errorf("error locking ticket %s: %s", ticketUID, err))
	}
	defer unlock()

	var ticket Ticket
	err = v.ticketStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var found bool
		var err error
		ticket, found, err = v.ticketStore.Get(c, ticketUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching ticket %s: %s", ticketUID, err))
		}
		if !found || ticket.EventUID != eventUID {
			return myerrors.NewNotFoundError(fmt.Errorf("%w: %s for event %s", ErrNotFound, ticketUID, eventUID))
		}

		if ticket.Validated {
			return myerrors.NewConflictError(fmt.Errorf("%w: %s at %s", ErrAlreadyValidated, ticketUID, ticket.ValidatedAt)).WithKind(KindAlreadyValidated)
		}

		now := v.nower.Now()
		ticket.Validated = true
		ticket.ValidatedAt = &now
		ticket.ValidatedBy = staffRef

		err = v.ticketStore.Put(c, ticketUID, ticket)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing ticket %s: %s", ticketUID, err))
		}

		err = v.publisher.Publish(c, ticketevents.TopicName, ticketevents.TicketValidated{
			TicketUID:   ticketUID,
			EventUID:    eventUID,
			ValidatedAt: now,
			ValidatedBy: staffRef,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing ticket-validated event for %s: %s", ticketUID, err))
		}

		return nil
	})
	if err != nil {
		outcome := "error"
		switch myerrors.GetKind(err) {
		case KindAlreadyValidated:
			outcome = "already_validated"
		case "NotFound":
			outcome = "not_found"
		}
		mymetrics.TicketValidations.WithLabelValues(outcome).Inc()
		v.logger.Log(c, ticketUID, mylog.SeverityWarn, "Validation of ticket %s by %s rejected: %s", ticketUID, staffRef, err)
		return ticket, err
	}

	mymetrics.TicketValidations.WithLabelValues("validated").Inc()
	v.logger.Log(c, ticketUID, mylog.SeverityInfo, "Ticket %s validated by %s", ticketUID, staffRef)

	return ticket, nil
}

func (v *validator) lookup(c context.Context, eventUID string, ticketUID string) (Ticket, error) {
	ticket, found, err := v.ticketStore.Get(c, ticketUID)
	if err != nil {
		return Ticket{}, myerrors.NewInternalError(fmt.Errorf("error fetching ticket %s: %s", ticketUID, err))
	}
	if !found || ticket.EventUID != eventUID {
		return Ticket{}, myerrors.NewNotFoundError(fmt.Errorf("%w: %s for event %s", ErrNotFound, ticketUID, eventUID))
	}
	return ticket, nil
}
