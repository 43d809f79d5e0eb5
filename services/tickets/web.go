package tickets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/ticketshop/lib/mycontext"
	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/myhttp"
	"github.com/MarcGrol/ticketshop/lib/mylock"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mypublisher"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/services/staff"
)

type webService struct {
	logger        mylog.Logger
	authenticator staff.Authenticator
	validator     *validator
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(ticketStore mystore.Store[Ticket], locker mylock.Locker, authenticator staff.Authenticator, nower mytime.Nower, publisher mypublisher.Publisher) *webService {
	logger := mylog.New("tickets")
	return &webService{
		logger:        logger,
		authenticator: authenticator,
		validator:     newValidator(logger, nower, locker, ticketStore, publisher),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/events/{eventId}/sales/{saleId}/validate", s.validateTicket()).Methods("POST")
	router.HandleFunc("/events/{eventId}/sales/{saleId}", s.getTicket()).Methods("GET")

	return nil
}

func (s *webService) authenticate(c context.Context, r *http.Request) (staff.Member, error) {
	credential, found := myhttp.BearerToken(r)
	if !found {
		return staff.Member{}, myerrors.NewUnauthorizedError(fmt.Errorf("%w: missing bearer token", staff.ErrUnknownCredential))
	}
	return s.authenticator.Authenticate(c, credential)
}

func (s *webService) validateTicket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		member, err := s.authenticate(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		eventUID := mux.Vars(r)["eventId"]
		ticketUID := mux.Vars(r)["saleId"]

		ticket, err := s.validator.validate(c, eventUID, ticketUID, member.UID)
		if err != nil {
			if errors.Is(err, ErrAlreadyValidated) {
				errorWriter.Write(c, w, http.StatusConflict, AlreadyValidatedResponse{
					Outcome:     "ALREADY_VALIDATED",
					SaleID:      ticket.UID,
					ValidatedAt: ticket.ValidatedAt,
					ValidatedBy: ticket.ValidatedBy,
				})
				return
			}
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusNoContent, nil)
	}
}

func (s *webService) getTicket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := s.authenticate(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		ticket, err := s.validator.lookup(c, mux.Vars(r)["eventId"], mux.Vars(r)["saleId"])
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, NewTicketView(ticket))
	}
}
