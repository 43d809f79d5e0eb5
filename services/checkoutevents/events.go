package checkoutevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/myevents"
)

const (
	TopicName             = "checkout"
	sessionCreatedName    = TopicName + ".sessionCreated"
	buyerDataAttachedName = TopicName + ".buyerDataAttached"
	paymentStartedName    = TopicName + ".paymentStarted"
	sessionPaidName       = TopicName + ".sessionPaid"
	sessionFailedName     = TopicName + ".sessionFailed"
	paymentOrphanedName   = TopicName + ".paymentOrphaned"
)

//go:generate mockgen -source=events.go -package checkoutevents -destination checkout_event_service_mock.go CheckoutEventService
type CheckoutEventService interface {
	Subscribe(c context.Context) error
	OnSessionPaid(c context.Context, topic string, event SessionPaid) error
	OnSessionFailed(c context.Context, topic string, event SessionFailed) error
}

// DispatchEvent decodes a pubsub push request and calls the matching handler.
// Event types the service does not handle are acknowledged silently.
func DispatchEvent(c context.Context, reader io.Reader, service CheckoutEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case sessionPaidName:
		{
			event := SessionPaid{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnSessionPaid(c, envelope.Topic, event)
		}
	case sessionFailedName:
		{
			event := SessionFailed{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnSessionFailed(c, envelope.Topic, event)
		}
	case sessionCreatedName, buyerDataAttachedName, paymentStartedName, paymentOrphanedName:
		return nil
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unknown event type %s", envelope.EventTypeName))
	}
}

type SessionCreated struct {
	SessionUID string
	EventUID   string
	PriceUID   string
	Quantity   int
	ExpiresAt  time.Time
}

func (e SessionCreated) GetEventTypeName() string {
	return sessionCreatedName
}

func (e SessionCreated) GetAggregateName() string {
	return e.SessionUID
}

type BuyerDataAttached struct {
	SessionUID string
	MainEmail  string
	BuyerCount int
}

func (e BuyerDataAttached) GetEventTypeName() string {
	return buyerDataAttachedName
}

func (e BuyerDataAttached) GetAggregateName() string {
	return e.SessionUID
}

type PaymentStarted struct {
	SessionUID       string
	ProviderName     string
	PaymentIntentUID string
	Amount           string
	Currency         string
}

func (e PaymentStarted) GetEventTypeName() string {
	return paymentStartedName
}

func (e PaymentStarted) GetAggregateName() string {
	return e.SessionUID
}

type SessionPaid struct {
	SessionUID         string
	ExternalPaymentUID string
	ProviderName       string
	TicketUIDs         []string
}

func (e SessionPaid) GetEventTypeName() string {
	return sessionPaidName
}

func (e SessionPaid) GetAggregateName() string {
	return e.SessionUID
}

type SessionFailed struct {
	SessionUID         string
	ExternalPaymentUID string
	ProviderName       string
	Reason             string
}

func (e SessionFailed) GetEventTypeName() string {
	return sessionFailedName
}

func (e SessionFailed) GetAggregateName() string {
	return e.SessionUID
}

// PaymentOrphaned signals money received for a session that can no longer be fulfilled.
type PaymentOrphaned struct {
	SessionUID         string
	ExternalPaymentUID string
	ProviderName       string
	SessionState       string
}

func (e PaymentOrphaned) GetEventTypeName() string {
	return paymentOrphanedName
}

func (e PaymentOrphaned) GetAggregateName() string {
	return e.SessionUID
}
