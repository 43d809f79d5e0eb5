package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/ticketshop/lib/mycontext"
	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/myhttp"
	"github.com/MarcGrol/ticketshop/lib/mylock"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mypublisher"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/lib/myuuid"
	"github.com/MarcGrol/ticketshop/services/catalog"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/paymentgateway"
	"github.com/MarcGrol/ticketshop/services/tickets"
)

const (
	webhookPath         = "/webhooks/payment-provider"
	maxWebhookBodyBytes = 1 << 20
)

type webService struct {
	logger  mylog.Logger
	service *service
	nower   mytime.Nower
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cfg Config, sessionStore mystore.Store[checkoutapi.CheckoutSession], paymentEventStore mystore.Store[PaymentEvent],
	cat catalog.Catalog, gateway paymentgateway.Gateway, issuer *tickets.Issuer, locker mylock.Locker,
	nower mytime.Nower, uuider myuuid.UUIDer, pub mypublisher.Publisher) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:  logger,
		service: newService(cfg, sessionStore, paymentEventStore, cat, gateway, issuer, locker, pub, nower, uuider, logger),
		nower:   nower,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/checkout/session", s.createSession()).Methods("POST")
	router.HandleFunc("/checkout/session/{sessionId}", s.getSession()).Methods("GET")
	router.HandleFunc("/checkout/session/{sessionId}/data", s.attachBuyerData()).Methods("PUT")
	router.HandleFunc("/checkout/session/{sessionId}/tickets", s.getTickets()).Methods("GET")
	router.HandleFunc("/checkout/process-payment", s.processPayment()).Methods("POST")

	router.HandleFunc(webhookPath, s.webhookNotification()).Methods("POST")

	router.HandleFunc("/tasks/sessions/reap", s.reapSessions()).Methods("PUT")

	return nil
}

// StartReaper reaps expired sessions every interval, next to the task endpoint.
func (s *webService) StartReaper(c context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.service.startReaper(c, interval)
}

func (s *webService) createSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := checkoutapi.CreateSessionRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("%w: error parsing request body: %s", ErrInvalidRequest, err)))
			return
		}

		session, err := s.service.createSession(c, req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, checkoutapi.CreateSessionResponse{
			SessionUID: session.UID,
			ExpiredIn:  int(session.ExpiresAt.Sub(session.CreatedAt).Seconds()),
		})
	}
}

func (s *webService) getSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		session, err := s.service.getSession(c, mux.Vars(r)["sessionId"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, checkoutapi.NewSessionView(session, s.nower.Now()))
	}
}

func (s *webService) attachBuyerData() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req, err := checkoutapi.NewBuyerDataFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		session, err := s.service.attachBuyerData(c, mux.Vars(r)["sessionId"], req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, checkoutapi.NewSessionView(session, s.nower.Now()))
	}
}

func (s *webService) processPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		writeFailure := func(err error) {
			s.logger.Log(c, "", mylog.SeverityWarn, "Error processing payment: %s", err)
			errorWriter.Write(c, w, myerrors.GetHTTPStatus(err), checkoutapi.ProcessPaymentResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		req := checkoutapi.ProcessPaymentRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeFailure(myerrors.NewInvalidInputError(fmt.Errorf("%w: error parsing request body: %s", ErrInvalidRequest, err)))
			return
		}
		if req.SessionUID == "" {
			writeFailure(myerrors.NewInvalidInputError(fmt.Errorf("%w: sessionId is mandatory", ErrInvalidRequest)))
			return
		}

		session, err := s.service.beginPayment(c, req.SessionUID, myhttp.HostnameWithScheme(r)+webhookPath)
		if err != nil {
			writeFailure(err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, checkoutapi.ProcessPaymentResponse{
			Success:     true,
			RedirectURL: session.RedirectURL,
		})
	}
}

func (s *webService) getTickets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		issued, err := s.service.getTickets(c, mux.Vars(r)["sessionId"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		views := make([]tickets.TicketView, 0, len(issued))
		for _, t := range issued {
			views = append(views, tickets.NewTicketView(t))
		}

		errorWriter.Write(c, w, http.StatusOK, views)
	}
}

func (s *webService) webhookNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error reading webhook body: %s", err)))
			return
		}

		signature := ""
		if header := s.service.gateway.SignatureHeader(); header != "" {
			signature = r.Header.Get(header)
		}

		outcome, err := s.service.handleNotification(c, payload, signature)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: fmt.Sprintf("Notification processed: %s", outcome),
		})
	}
}

func (s *webService) reapSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		reaped, err := s.service.reap(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: fmt.Sprintf("Successfully reaped %d sessions", reaped),
		})
	}
}
