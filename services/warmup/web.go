package warmup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/ticketshop/lib/mycontext"
	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/myhttp"
	"github.com/MarcGrol/ticketshop/lib/mylock"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mypublisher"
	"github.com/MarcGrol/ticketshop/lib/myvault"
)

const warmupUID = "warmup"

type webService struct {
	logger    mylog.Logger
	vault     myvault.Vault
	locker    mylock.Locker
	publisher mypublisher.Publisher
	topics    []string
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(vault myvault.Vault, locker mylock.Locker, publisher mypublisher.Publisher, topics ...string) *webService {
	return &webService{
		logger:    mylog.New("warmup"),
		vault:     vault,
		locker:    locker,
		publisher: publisher,
		topics:    topics,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

// warmupPage touches every backend so the first real request does not pay for connection setup.
func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, _, err := s.vault.Get(c, warmupUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(fmt.Errorf("error reaching datastore: %s", err)))
			return
		}

		err = s.locker.Ping(c)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInternalError(fmt.Errorf("error reaching locker: %s", err)))
			return
		}

		for _, topic := range s.topics {
			err = s.publisher.CreateTopic(c, topic)
			if err != nil {
				errorWriter.WriteError(c, w, 3, myerrors.NewInternalError(fmt.Errorf("error creating topic %s: %s", topic, err)))
				return
			}
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
