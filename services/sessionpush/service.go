package sessionpush

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/ticketshop/lib/mycontext"
	"github.com/MarcGrol/ticketshop/lib/myhttp"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mypubsub"
	"github.com/MarcGrol/ticketshop/lib/mypush"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/checkoutevents"
)

const eventPath = "/api/sessionpush/event"

// StatusMessage is what the storefront receives on channel "checkout.<sessionId>".
type StatusMessage struct {
	SessionUID string                   `json:"sessionId"`
	State      checkoutapi.SessionState `json:"state"`
	TicketUIDs []string                 `json:"ticketIds,omitempty"`
	Reason     string                   `json:"reason,omitempty"`
}

func ChannelName(sessionUID string) string {
	return checkoutevents.TopicName + "." + sessionUID
}

type service struct {
	pubsub mypubsub.PubSub
	pusher mypush.Pusher
	logger mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(pubsub mypubsub.PubSub, pusher mypush.Pusher) *service {
	return &service{
		pubsub: pubsub,
		pusher: pusher,
		logger: mylog.New("sessionpush"),
	}
}

func (s *service) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc(eventPath, s.handleEvent()).Methods("POST")
}

func (s *service) handleEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := checkoutevents.DispatchEvent(c, r.Body, s)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	err = s.pubsub.Subscribe(c, checkoutevents.TopicName, myhttp.GuessHostnameWithScheme()+eventPath)
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *service) OnSessionPaid(c context.Context, topic string, event checkoutevents.SessionPaid) error {
	return s.push(c, StatusMessage{
		SessionUID: event.SessionUID,
		State:      checkoutapi.SessionStatePaid,
		TicketUIDs: event.TicketUIDs,
	})
}

func (s *service) OnSessionFailed(c context.Context, topic string, event checkoutevents.SessionFailed) error {
	return s.push(c, StatusMessage{
		SessionUID: event.SessionUID,
		State:      checkoutapi.SessionStateFailed,
		Reason:     event.Reason,
	})
}

func (s *service) push(c context.Context, msg StatusMessage) error {
	s.logger.Log(c, msg.SessionUID, mylog.SeverityInfo, "Push %s of session %s", msg.State, msg.SessionUID)

	err := s.pusher.Push(c, ChannelName(msg.SessionUID), msg)
	if err != nil {
		// pubsub redelivers on error
		return fmt.Errorf("error pushing status of session %s: %s", msg.SessionUID, err)
	}
	return nil
}
