package mypublisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/ticketshop/lib/myevents"
	"github.com/MarcGrol/ticketshop/lib/mypubsub"
	"github.com/MarcGrol/ticketshop/lib/myqueue"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
)

type seatsReleased struct {
	EventUID string
	Count    int
}

func (e seatsReleased) GetEventTypeName() string { return "test.seatsReleased" }
func (e seatsReleased) GetAggregateName() string { return e.EventUID }

func setup(t *testing.T) (*transactionalPublisher, mystore.Store[myevents.EventEnvelope], *mypubsub.FakePubSub, *myqueue.FakeTaskQueue) {
	ctrl := gomock.NewController(t)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	outbox, _, err := mystore.NewInMemoryStore[myevents.EventEnvelope](context.TODO())
	require.NoError(t, err)
	pubsub := mypubsub.NewFake()
	queue := myqueue.NewFake()

	return newTransactionalPublisher(outbox, pubsub, queue, nower), outbox, pubsub, queue
}

func TestPublishStoresEnvelopeAndEnqueuesTrigger(t *testing.T) {
	publisher, outbox, pubsub, queue := setup(t)
	c := context.TODO()

	err := publisher.Publish(c, "test", seatsReleased{EventUID: "evt-1", Count: 2})
	require.NoError(t, err)

	envelopes, err := outbox.List(c)
	require.NoError(t, err)
	require.Len(t, envelopes, 1)
	assert.Equal(t, "test", envelopes[0].Topic)
	assert.Equal(t, "evt-1", envelopes[0].AggregateUID)
	assert.Equal(t, "test.seatsReleased", envelopes[0].EventTypeName)
	assert.Equal(t, `{"EventUID":"evt-1","Count":2}`, envelopes[0].EventPayload)
	assert.False(t, envelopes[0].Published)

	tasks := queue.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "/pubsub/test/"+envelopes[0].UID, tasks[0].WebhookURLPath)

	assert.Empty(t, pubsub.Published("test"))
}

func TestPublishSameEventTwiceIsIdempotent(t *testing.T) {
	publisher, outbox, _, _ := setup(t)
	c := context.TODO()

	require.NoError(t, publisher.Publish(c, "test", seatsReleased{EventUID: "evt-1", Count: 2}))
	require.NoError(t, publisher.Publish(c, "test", seatsReleased{EventUID: "evt-1", Count: 2}))
	require.NoError(t, publisher.Publish(c, "test", seatsReleased{EventUID: "evt-1", Count: 3}))

	envelopes, err := outbox.List(c)
	require.NoError(t, err)
	assert.Len(t, envelopes, 2)
}

func TestTriggerPublishesPendingEnvelopes(t *testing.T) {
	publisher, outbox, pubsub, queue := setup(t)
	c := context.TODO()

	require.NoError(t, publisher.Publish(c, "test", seatsReleased{EventUID: "evt-1", Count: 1}))
	require.NoError(t, publisher.Publish(c, "test", seatsReleased{EventUID: "evt-2", Count: 1}))

	router := mux.NewRouter()
	publisher.RegisterEndpoints(c, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, queue.Tasks()[0].WebhookURLPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Successfully published 2 events")

	published := pubsub.Published("test")
	require.Len(t, published, 2)
	envelope := myevents.EventEnvelope{}
	require.NoError(t, json.Unmarshal([]byte(published[0]), &envelope))
	assert.Equal(t, "test.seatsReleased", envelope.EventTypeName)

	pending, err := outbox.Query(c, []mystore.Filter{{Field: "Published", Compare: "=", Value: false}}, "")
	require.NoError(t, err)
	assert.Empty(t, pending)

	// second trigger finds nothing left to do
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, queue.Tasks()[1].WebhookURLPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, pubsub.Published("test"), 2)
}
