package sessionpush

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/ticketshop/lib/myevents"
	"github.com/MarcGrol/ticketshop/lib/mypubsub"
	"github.com/MarcGrol/ticketshop/lib/mypush"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/checkoutevents"
)

func TestSessionPush(t *testing.T) {

	t.Run("push paid session", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		// setup
		router, pusher, _ := setup(t, ctrl)

		// given
		pusher.EXPECT().Push(gomock.Any(), "checkout.session-1", StatusMessage{
			SessionUID: "session-1",
			State:      checkoutapi.SessionStatePaid,
			TicketUIDs: []string{"t1", "t2"},
		}).Return(nil)

		// when
		response := post(t, router, checkoutevents.SessionPaid{SessionUID: "session-1", TicketUIDs: []string{"t1", "t2"}})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("push failed session", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		// setup
		router, pusher, _ := setup(t, ctrl)

		// given
		pusher.EXPECT().Push(gomock.Any(), "checkout.session-1", StatusMessage{
			SessionUID: "session-1",
			State:      checkoutapi.SessionStateFailed,
			Reason:     "card declined",
		}).Return(nil)

		// when
		response := post(t, router, checkoutevents.SessionFailed{SessionUID: "session-1", Reason: "card declined"})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("other events are not pushed", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		// setup
		router, _, _ := setup(t, ctrl)

		// when
		response := post(t, router, checkoutevents.BuyerDataAttached{SessionUID: "session-1"})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("push failure is retried by pubsub", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		// setup
		router, pusher, _ := setup(t, ctrl)

		// given
		pusher.EXPECT().Push(gomock.Any(), "checkout.session-1", gomock.Any()).Return(errors.New("network down"))

		// when
		response := post(t, router, checkoutevents.SessionPaid{SessionUID: "session-1"})

		// then
		assert.Equal(t, http.StatusInternalServerError, response.Code)
	})

	t.Run("subscribe", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		// setup
		_, _, sut := setup(t, ctrl)
		t.Setenv("GOOGLE_CLOUD_PROJECT", "")
		t.Setenv("PORT", "8080")

		// when
		err := sut.Subscribe(context.TODO())

		// then
		assert.NoError(t, err)
	})
}

func post(t *testing.T, router *mux.Router, event myevents.Event) *httptest.ResponseRecorder {
	body, err := myevents.CreatePushRequest(checkoutevents.TopicName, event, mytime.ExampleTime)
	require.NoError(t, err)

	request, err := http.NewRequest(http.MethodPost, "/api/sessionpush/event", strings.NewReader(body))
	require.NoError(t, err)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller) (*mux.Router, *mypush.MockPusher, *service) {
	pusher := mypush.NewMockPusher(ctrl)
	sut := NewService(mypubsub.NewFake(), pusher)

	router := mux.NewRouter()
	sut.RegisterEndpoints(context.TODO(), router)

	return router, pusher, sut
}
