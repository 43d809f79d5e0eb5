package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mymetrics"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/checkoutevents"
	"github.com/MarcGrol/ticketshop/services/paymentgateway"
	"github.com/MarcGrol/ticketshop/services/tickets"
)

func (s *service) createSession(c context.Context, req checkoutapi.CreateSessionRequest) (checkoutapi.CheckoutSession, error) {
	if req.EventUID == "" || req.PriceUID == "" {
		return checkoutapi.CheckoutSession{}, myerrors.NewInvalidInputError(fmt.Errorf("%w: eventId and priceId are mandatory", ErrInvalidRequest))
	}
	if req.Quantity <= 0 || req.Quantity > s.cfg.MaxTicketsPerSession {
		return checkoutapi.CheckoutSession{}, myerrors.NewInvalidInputError(fmt.Errorf("%w: quantity must be between 1 and %d, got %d", ErrInvalidRequest, s.cfg.MaxTicketsPerSession, req.Quantity))
	}

	ticketType, found, err := s.catalog.GetTicketType(c, req.EventUID, req.PriceUID)
	if err != nil {
		return checkoutapi.CheckoutSession{}, myerrors.NewUnavailableError(fmt.Errorf("error fetching ticket type %s/%s: %s", req.EventUID, req.PriceUID, err))
	}
	if !found {
		return checkoutapi.CheckoutSession{}, myerrors.NewNotFoundError(fmt.Errorf("event %s with price %s not found", req.EventUID, req.PriceUID))
	}
	if ticketType.Available < req.Quantity {
		return checkoutapi.CheckoutSession{}, myerrors.NewConflictError(fmt.Errorf("%w: %d requested, %d available", ErrSoldOut, req.Quantity, ticketType.Available)).WithKind(KindSoldOut)
	}
	unitPrice, err := ticketType.Amount()
	if err != nil {
		return checkoutapi.CheckoutSession{}, myerrors.NewInternalError(fmt.Errorf("invalid price of %s/%s: %s", req.EventUID, req.PriceUID, err))
	}

	now := s.nower.Now()
	session := checkoutapi.CheckoutSession{
		UID:       s.uuider.Create(),
		EventUID:  req.EventUID,
		PriceUID:  req.PriceUID,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice.String(),
		Currency:  ticketType.Currency,
		Buyers:    []checkoutapi.Buyer{},
		State:     checkoutapi.SessionStateCreated,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	s.logger.Log(c, session.UID, mylog.SeverityInfo, "Creating session %s for %d x %s/%s", session.UID, req.Quantity, req.EventUID, req.PriceUID)

	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		err := s.sessionStore.Put(c, session.UID, session)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.SessionCreated{
			SessionUID: session.UID,
			EventUID:   session.EventUID,
			PriceUID:   session.PriceUID,
			Quantity:   session.Quantity,
			ExpiresAt:  session.ExpiresAt,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return checkoutapi.CheckoutSession{}, err
	}

	mymetrics.SessionTransitions.WithLabelValues(string(session.State)).Inc()

	return session, nil
}

func (s *service) getSession(c context.Context, sessionUID string) (checkoutapi.CheckoutSession, error) {
	session, found, err := s.sessionStore.Get(c, sessionUID)
	if err != nil {
		return checkoutapi.CheckoutSession{}, myerrors.NewInternalError(err)
	}
	if !found {
		return checkoutapi.CheckoutSession{}, myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrNotFound, sessionUID))
	}
	if session.IsExpired(s.nower.Now()) {
		return session, myerrors.NewGoneError(fmt.Errorf("%w: %s expired at %s", ErrSessionExpired, sessionUID, session.ExpiresAt.Format(time.RFC3339)))
	}

	return session, nil
}

func (s *service) lockSession(c context.Context, sessionUID string) (func(), error) {
	unlock, err := s.locker.Lock(c, sessionLockKey(sessionUID))
	if err != nil {
		return nil, myerrors.NewUnavailableError(fmt.Errorf("error locking session %s: %s", sessionUID, err))
	}
	return unlock, nil
}

func (s *service) attachBuyerData(c context.Context, sessionUID string, req checkoutapi.BuyerDataRequest) (checkoutapi.CheckoutSession, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Attach data of %d buyers to session %s", len(req.Buyers), sessionUID)

	unlock, err := s.lockSession(c, sessionUID)
	if err != nil {
		return checkoutapi.CheckoutSession{}, err
	}
	defer unlock()

	var session checkoutapi.CheckoutSession
	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var err error
		session, err = s.getSession(c, sessionUID)
		if err != nil {
			return err
		}

		if session.State != checkoutapi.SessionStateCreated && session.State != checkoutapi.SessionStateDataAttached {
			return myerrors.NewConflictError(fmt.Errorf("%w: buyer data cannot be changed in state %s", ErrInvalidState, session.State))
		}

		fieldErrors := checkoutapi.ValidateBuyers(req.MainEmail, req.Buyers, session.Quantity)
		if len(fieldErrors) > 0 {
			return myerrors.NewValidationError(fmt.Errorf("%w: %d invalid fields", ErrInvalidRequest, len(fieldErrors)), fieldErrors)
		}

		now := s.nower.Now()
		session.MainEmail = req.MainEmail
		session.Buyers = req.Buyers
		session.State = checkoutapi.SessionStateDataAttached
		session.LastModified = &now

		err = s.sessionStore.Put(c, sessionUID, session)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.BuyerDataAttached{
			SessionUID: sessionUID,
			MainEmail:  req.MainEmail,
			BuyerCount: len(req.Buyers),
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return checkoutapi.CheckoutSession{}, err
	}

	mymetrics.SessionTransitions.WithLabelValues(string(session.State)).Inc()

	return session, nil
}

// beginPayment asks the gateway for a payment intent. The gateway is called outside the
// store transaction, so other sessions are not blocked while waiting for the provider.
func (s *service) beginPayment(c context.Context, sessionUID string, webhookURL string) (checkoutapi.CheckoutSession, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Begin payment of session %s", sessionUID)

	unlock, err := s.lockSession(c, sessionUID)
	if err != nil {
		return checkoutapi.CheckoutSession{}, err
	}
	defer unlock()

	session, err := s.getSession(c, sessionUID)
	if err != nil {
		return checkoutapi.CheckoutSession{}, err
	}

	if session.State == checkoutapi.SessionStatePaymentPending && session.RedirectURL != "" {
		s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Payment of session %s already started with intent %s", sessionUID, session.PaymentIntentUID)
		return session, nil
	}
	if session.State == checkoutapi.SessionStateCreated {
		return checkoutapi.CheckoutSession{}, myerrors.NewConflictError(fmt.Errorf("%w: buyer data missing", ErrInvalidState))
	}
	if session.State != checkoutapi.SessionStateDataAttached {
		return checkoutapi.CheckoutSession{}, myerrors.NewConflictError(fmt.Errorf("%w: payment cannot start in state %s", ErrInvalidState, session.State))
	}

	callbacks := paymentgateway.NewCallbackURLs(s.cfg.StorefrontURL, sessionUID)
	start := time.Now()
	intent, err := s.gateway.CreateIntent(c, paymentgateway.IntentRequest{
		SessionUID:  sessionUID,
		Description: fmt.Sprintf("%d ticket(s) %s", session.Quantity, session.EventUID),
		Amount:      session.TotalAmount(),
		Currency:    session.Currency,
		PayerEmail:  session.MainEmail,
		SuccessURL:  callbacks.Success,
		FailureURL:  callbacks.Failure,
		PendingURL:  callbacks.Pending,
		WebhookURL:  webhookURL,
		ExpiresAt:   session.ExpiresAt,
	})
	if err != nil {
		mymetrics.GatewayLatency.WithLabelValues(s.gateway.Name(), "error").Observe(time.Since(start).Seconds())
		return checkoutapi.CheckoutSession{}, myerrors.NewBadGatewayError(fmt.Errorf("%w: error creating intent for session %s: %s", paymentgateway.ErrGateway, sessionUID, err))
	}
	mymetrics.GatewayLatency.WithLabelValues(s.gateway.Name(), "ok").Observe(time.Since(start).Seconds())

	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var err error
		session, err = s.getSession(c, sessionUID)
		if err != nil {
			return err
		}
		if session.State != checkoutapi.SessionStateDataAttached {
			return myerrors.NewConflictError(fmt.Errorf("%w: session changed to %s while creating intent", ErrInvalidState, session.State))
		}

		now := s.nower.Now()
		session.State = checkoutapi.SessionStatePaymentPending
		session.PaymentProvider = s.gateway.Name()
		session.PaymentIntentUID = intent.UID
		session.RedirectURL = intent.RedirectURL
		session.LastModified = &now

		err = s.sessionStore.Put(c, sessionUID, session)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.PaymentStarted{
			SessionUID:       sessionUID,
			ProviderName:     s.gateway.Name(),
			PaymentIntentUID: intent.UID,
			Amount:           session.TotalAmount().StringFixed(2),
			Currency:         session.Currency,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return checkoutapi.CheckoutSession{}, err
	}

	mymetrics.SessionTransitions.WithLabelValues(string(session.State)).Inc()

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Payment of session %s started with intent %s", sessionUID, intent.UID)

	return session, nil
}

func (s *service) getTickets(c context.Context, sessionUID string) ([]tickets.Ticket, error) {
	session, err := s.getSession(c, sessionUID)
	if err != nil {
		return nil, err
	}
	if session.State != checkoutapi.SessionStatePaid {
		return nil, myerrors.NewConflictError(fmt.Errorf("%w: session %s is %s, not paid", ErrInvalidState, sessionUID, session.State))
	}

	return s.issuer.Tickets(c, session.TicketUIDs)
}
