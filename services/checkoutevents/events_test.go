package checkoutevents

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/myevents"
	"github.com/MarcGrol/ticketshop/lib/mytime"
)

type recordingService struct {
	paid   []SessionPaid
	failed []SessionFailed
}

func (s *recordingService) Subscribe(c context.Context) error {
	return nil
}

func (s *recordingService) OnSessionPaid(c context.Context, topic string, event SessionPaid) error {
	s.paid = append(s.paid, event)
	return nil
}

func (s *recordingService) OnSessionFailed(c context.Context, topic string, event SessionFailed) error {
	s.failed = append(s.failed, event)
	return nil
}

func TestDispatchEvent(t *testing.T) {
	t.Run("session paid", func(t *testing.T) {
		service := &recordingService{}
		req, err := myevents.CreatePushRequest(TopicName, SessionPaid{SessionUID: "s1", TicketUIDs: []string{"t1", "t2"}}, mytime.ExampleTime)
		require.NoError(t, err)

		err = DispatchEvent(context.TODO(), strings.NewReader(req), service)
		require.NoError(t, err)

		require.Len(t, service.paid, 1)
		assert.Equal(t, []string{"t1", "t2"}, service.paid[0].TicketUIDs)
	})

	t.Run("session failed", func(t *testing.T) {
		service := &recordingService{}
		req, err := myevents.CreatePushRequest(TopicName, SessionFailed{SessionUID: "s1", Reason: "rejected"}, mytime.ExampleTime)
		require.NoError(t, err)

		err = DispatchEvent(context.TODO(), strings.NewReader(req), service)
		require.NoError(t, err)

		require.Len(t, service.failed, 1)
		assert.Equal(t, "rejected", service.failed[0].Reason)
	})

	t.Run("other checkout events are acknowledged", func(t *testing.T) {
		service := &recordingService{}
		req, err := myevents.CreatePushRequest(TopicName, SessionCreated{SessionUID: "s1"}, mytime.ExampleTime)
		require.NoError(t, err)

		err = DispatchEvent(context.TODO(), strings.NewReader(req), service)
		require.NoError(t, err)
		assert.Empty(t, service.paid)
	})

	t.Run("garbage", func(t *testing.T) {
		err := DispatchEvent(context.TODO(), strings.NewReader("{"), &recordingService{})
		assert.Equal(t, http.StatusBadRequest, myerrors.GetHTTPStatus(err))
	})
}
