package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mymetrics"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/checkoutevents"
	"github.com/MarcGrol/ticketshop/services/paymentgateway"
)

// handleNotification processes a webhook of the payment gateway. Every delivery of the same
// payment status results in at most one state change, no matter how often or how concurrently
// the gateway delivers it.
func (s *service) handleNotification(c context.Context, payload []byte, signature string) (PaymentOutcome, error) {
	provider := s.gateway.Name()

	if !s.gateway.VerifyWebhookSignature(c, payload, signature) {
		mymetrics.WebhookNotifications.WithLabelValues(provider, "invalid_signature").Inc()
		return "", myerrors.NewUnauthorizedError(paymentgateway.ErrInvalidSignature)
	}

	notification, err := s.gateway.ParseNotification(c, payload)
	if err != nil {
		switch {
		case errors.Is(err, paymentgateway.ErrIgnoredNotification):
			s.logger.Log(c, "", mylog.SeverityInfo, "Ignoring %s notification: %s", provider, err)
			mymetrics.WebhookNotifications.WithLabelValues(provider, string(PaymentOutcomeIgnored)).Inc()
			return PaymentOutcomeIgnored, nil
		case errors.Is(err, paymentgateway.ErrInvalidSignature):
			mymetrics.WebhookNotifications.WithLabelValues(provider, "invalid_signature").Inc()
			return "", myerrors.NewUnauthorizedError(err)
		case errors.Is(err, paymentgateway.ErrMalformedNotification):
			return "", myerrors.NewInvalidInputError(err)
		case errors.Is(err, paymentgateway.ErrGatewayUnavailable):
			s.logger.Log(c, "", mylog.SeverityWarn, "Cannot verify %s notification: %s", provider, err)
			mymetrics.WebhookNotifications.WithLabelValues(provider, "gateway_unavailable").Inc()
			return "", myerrors.NewUnavailableError(err)
		default:
			return "", myerrors.NewInternalError(fmt.Errorf("error parsing %s notification: %s", provider, err))
		}
	}

	sessionUID := notification.SessionUID
	eventUID := paymentEventUID(notification)

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Webhook: payment %s of session %s is %s", notification.ExternalPaymentUID, sessionUID, notification.Status)

	unlock, err := s.lockSession(c, sessionUID)
	if err != nil {
		return "", err
	}
	defer unlock()

	var outcome PaymentOutcome
	duplicate := false
	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		duplicate = false

		_, found, err := s.paymentEventStore.Get(c, eventUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if found {
			duplicate = true
			return nil
		}

		now := s.nower.Now()

		session, found, err := s.sessionStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Payment %s refers to unknown session %s", notification.ExternalPaymentUID, sessionUID)
			outcome = PaymentOutcomeIgnored
		} else {
			outcome, err = s.applyNotification(c, session, notification, now)
			if err != nil {
				return err
			}
		}

		// stored last: a failure above leaves the delivery unrecorded so a redelivery is processed again
		err = s.paymentEventStore.Put(c, eventUID, PaymentEvent{
			UID:                eventUID,
			ExternalPaymentUID: notification.ExternalPaymentUID,
			SessionUID:         sessionUID,
			Status:             notification.Status,
			Provider:           provider,
			ReceivedAt:         now,
			Outcome:            outcome,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	if duplicate {
		s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Webhook: payment %s with status %s already processed", notification.ExternalPaymentUID, notification.Status)
		mymetrics.WebhookNotifications.WithLabelValues(provider, "duplicate").Inc()
		return PaymentOutcomeIgnored, nil
	}

	mymetrics.WebhookNotifications.WithLabelValues(provider, string(outcome)).Inc()

	return outcome, nil
}

func (s *service) applyNotification(c context.Context, session checkoutapi.CheckoutSession, notification paymentgateway.Notification, now time.Time) (PaymentOutcome, error) {
	expired := session.IsExpired(now)
	pending := session.State == checkoutapi.SessionStatePaymentPending && !expired

	switch notification.Status {
	case paymentgateway.PaymentStatusApproved:
		if pending {
			return s.markPaid(c, session, notification, now)
		}
		if expired {
			return s.markOrphaned(c, session, notification, now)
		}
		s.logger.Log(c, session.UID, mylog.SeverityWarn, "Approved payment %s ignored for session %s in state %s", notification.ExternalPaymentUID, session.UID, session.State)
		return PaymentOutcomeIgnored, nil

	case paymentgateway.PaymentStatusRejected:
		if pending {
			return s.markFailed(c, session, notification, now)
		}
		s.logger.Log(c, session.UID, mylog.SeverityInfo, "Rejected payment %s ignored for session %s in state %s", notification.ExternalPaymentUID, session.UID, session.EffectiveState(now))
		return PaymentOutcomeIgnored, nil

	default:
		return PaymentOutcomeRecorded, nil
	}
}

func (s *service) markPaid(c context.Context, session checkoutapi.CheckoutSession, notification paymentgateway.Notification, now time.Time) (PaymentOutcome, error) {
	session.State = checkoutapi.SessionStatePaid
	session.LastModified = &now

	issued, err := s.issuer.IssueForSession(c, session)
	if err != nil {
		return "", err
	}
	session.TicketUIDs = make([]string, 0, len(issued))
	for _, t := range issued {
		session.TicketUIDs = append(session.TicketUIDs, t.UID)
	}

	err = s.sessionStore.Put(c, session.UID, session)
	if err != nil {
		return "", myerrors.NewInternalError(err)
	}

	err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.SessionPaid{
		SessionUID:         session.UID,
		ExternalPaymentUID: notification.ExternalPaymentUID,
		ProviderName:       s.gateway.Name(),
		TicketUIDs:         session.TicketUIDs,
	})
	if err != nil {
		return "", myerrors.NewInternalError(err)
	}

	mymetrics.SessionTransitions.WithLabelValues(string(session.State)).Inc()
	s.logger.Log(c, session.UID, mylog.SeverityInfo, "Session %s paid, %d tickets issued", session.UID, len(issued))

	return PaymentOutcomePaid, nil
}

func (s *service) markFailed(c context.Context, session checkoutapi.CheckoutSession, notification paymentgateway.Notification, now time.Time) (PaymentOutcome, error) {
	session.State = checkoutapi.SessionStateFailed
	session.LastModified = &now

	err := s.sessionStore.Put(c, session.UID, session)
	if err != nil {
		return "", myerrors.NewInternalError(err)
	}

	err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.SessionFailed{
		SessionUID:         session.UID,
		ExternalPaymentUID: notification.ExternalPaymentUID,
		ProviderName:       s.gateway.Name(),
		Reason:             notification.Details,
	})
	if err != nil {
		return "", myerrors.NewInternalError(err)
	}

	mymetrics.SessionTransitions.WithLabelValues(string(session.State)).Inc()
	s.logger.Log(c, session.UID, mylog.SeverityInfo, "Session %s failed: %s", session.UID, notification.Details)

	return PaymentOutcomeFailed, nil
}

// markOrphaned handles money received for a session that expired before the payment was confirmed.
func (s *service) markOrphaned(c context.Context, session checkoutapi.CheckoutSession, notification paymentgateway.Notification, now time.Time) (PaymentOutcome, error) {
	previousState := session.State
	if session.State != checkoutapi.SessionStateExpired {
		session.State = checkoutapi.SessionStateExpired
		session.LastModified = &now

		err := s.sessionStore.Put(c, session.UID, session)
		if err != nil {
			return "", myerrors.NewInternalError(err)
		}
		mymetrics.SessionTransitions.WithLabelValues(string(session.State)).Inc()
	}

	err := s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.PaymentOrphaned{
		SessionUID:         session.UID,
		ExternalPaymentUID: notification.ExternalPaymentUID,
		ProviderName:       s.gateway.Name(),
		SessionState:       string(previousState),
	})
	if err != nil {
		return "", myerrors.NewInternalError(err)
	}

	s.logger.Log(c, session.UID, mylog.SeverityError, "Payment %s approved for session %s that expired at %s: refund required",
		notification.ExternalPaymentUID, session.UID, session.ExpiresAt)

	return PaymentOutcomeExpired, nil
}
