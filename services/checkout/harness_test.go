package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/ticketshop/lib/myevents"
	"github.com/MarcGrol/ticketshop/lib/mylock"
	"github.com/MarcGrol/ticketshop/lib/mypublisher"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/lib/myuuid"
	"github.com/MarcGrol/ticketshop/services/catalog"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/paymentgateway"
	"github.com/MarcGrol/ticketshop/services/tickets"
)

var (
	testConfig = Config{
		SessionTTL:           20 * time.Minute,
		SessionRetention:     24 * time.Hour,
		MaxTicketsPerSession: 10,
		StorefrontURL:        "https://shop.example.com",
	}

	concert = catalog.TicketType{
		EventUID:  "event-1",
		PriceUID:  "price-1",
		Name:      "Early bird",
		Price:     "12.50",
		Currency:  "EUR",
		Available: 100,
	}

	lastTicket = catalog.TicketType{
		EventUID:  "event-1",
		PriceUID:  "price-last",
		Name:      "Last one",
		Price:     "99.00",
		Currency:  "EUR",
		Available: 1,
	}
)

type testContext struct {
	router            *mux.Router
	service           *webService
	sessionStore      *mystore.InMemoryStore[checkoutapi.CheckoutSession]
	paymentEventStore *mystore.InMemoryStore[PaymentEvent]
	paymentEvents     *failingStore[PaymentEvent]
	ticketStore       *mystore.InMemoryStore[tickets.Ticket]
	gateway           *paymentgateway.FakeGateway
	nower             mytime.Nower
	publisher         mypublisher.Publisher
	locker            mylock.Locker

	sync.Mutex
	now       time.Time
	published []myevents.Event
}

// failingStore lets writes fail on request, to simulate an unavailable datastore.
type failingStore[T any] struct {
	mystore.Store[T]
	failPuts atomic.Bool
}

func (s *failingStore[T]) Put(c context.Context, uid string, value T) error {
	if s.failPuts.Load() {
		return fmt.Errorf("datastore unavailable")
	}
	return s.Store.Put(c, uid, value)
}

func (tc *testContext) advance(d time.Duration) {
	tc.Lock()
	defer tc.Unlock()
	tc.now = tc.now.Add(d)
}

func (tc *testContext) clock() time.Time {
	tc.Lock()
	defer tc.Unlock()
	return tc.now
}

func (tc *testContext) events() []myevents.Event {
	tc.Lock()
	defer tc.Unlock()
	return append([]myevents.Event{}, tc.published...)
}

func (tc *testContext) eventsOfType(eventTypeName string) []myevents.Event {
	result := []myevents.Event{}
	for _, e := range tc.events() {
		if e.GetEventTypeName() == eventTypeName {
			result = append(result, e)
		}
	}
	return result
}

func setup(t *testing.T) *testContext {
	c := context.TODO()
	ctrl := gomock.NewController(t)

	tc := &testContext{
		now: mytime.ExampleTime,
	}

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().DoAndReturn(tc.clock).AnyTimes()

	sessionCount := 0
	uuider := myuuid.NewMockUUIDer(ctrl)
	uuider.EXPECT().Create().DoAndReturn(func() string {
		sessionCount++
		return fmt.Sprintf("session-%d", sessionCount)
	}).AnyTimes()

	publisher := mypublisher.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, topic string, event myevents.Event) error {
		tc.Lock()
		defer tc.Unlock()
		tc.published = append(tc.published, event)
		return nil
	}).AnyTimes()

	var err error
	tc.sessionStore, _, err = mystore.NewInMemoryStore[checkoutapi.CheckoutSession](c)
	require.NoError(t, err)
	tc.paymentEventStore, _, err = mystore.NewInMemoryStore[PaymentEvent](c)
	require.NoError(t, err)
	tc.ticketStore, _, err = mystore.NewInMemoryStore[tickets.Ticket](c)
	require.NoError(t, err)

	cat, err := catalog.NewInMemoryCatalog(c, concert, lastTicket)
	require.NoError(t, err)

	tc.gateway = paymentgateway.NewFakeGateway("test-secret", myuuid.RealUUIDer{})
	issuer := tickets.NewIssuer(tc.ticketStore, nower, publisher)

	tc.paymentEvents = &failingStore[PaymentEvent]{Store: tc.paymentEventStore}

	tc.nower = nower
	tc.publisher = publisher
	tc.locker = mylock.NewInMemoryLocker()

	tc.service = NewWebService(testConfig, tc.sessionStore, tc.paymentEvents, cat, tc.gateway, issuer,
		tc.locker, nower, uuider, publisher)

	tc.router = mux.NewRouter()
	err = tc.service.RegisterEndpoints(c, tc.router)
	require.NoError(t, err)

	return tc
}

func (tc *testContext) do(t *testing.T, method string, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	request, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	request.Host = "backend.example.com"
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	response := httptest.NewRecorder()
	tc.router.ServeHTTP(response, request)
	return response
}

func (tc *testContext) postNotification(t *testing.T, externalPaymentUID string, sessionUID string, status paymentgateway.PaymentStatus) *httptest.ResponseRecorder {
	payload, signature := tc.gateway.NewNotification(externalPaymentUID, sessionUID, status)
	return tc.do(t, http.MethodPost, "/webhooks/payment-provider", string(payload), map[string]string{
		"X-Signature": signature,
	})
}

func validBuyer(firstName string) checkoutapi.Buyer {
	return checkoutapi.Buyer{
		FirstName:      firstName,
		LastName:       "Fernandez",
		Email:          strings.ToLower(firstName) + "@example.com",
		Phone:          "+54 11 5555-1234",
		Nationality:    "AR",
		DocumentType:   "DNI",
		DocumentNumber: "30123456",
	}
}

func buyerDataJSON(t *testing.T, buyers ...checkoutapi.Buyer) string {
	data, err := json.Marshal(checkoutapi.BuyerDataRequest{
		MainEmail: "main@example.com",
		Buyers:    buyers,
	})
	require.NoError(t, err)
	return string(data)
}

// sessionInState drives a session through the public api up to the requested state.
func (tc *testContext) sessionInState(t *testing.T, state checkoutapi.SessionState) string {
	response := tc.do(t, http.MethodPost, "/checkout/session", `{"eventId":"event-1","priceId":"price-1","quantity":2}`, nil)
	require.Equal(t, http.StatusCreated, response.Code)
	resp := checkoutapi.CreateSessionResponse{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
	if state == checkoutapi.SessionStateCreated {
		return resp.SessionUID
	}

	response = tc.do(t, http.MethodPut, "/checkout/session/"+resp.SessionUID+"/data", buyerDataJSON(t, validBuyer("Lucia"), validBuyer("Mateo")), nil)
	require.Equal(t, http.StatusOK, response.Code)
	if state == checkoutapi.SessionStateDataAttached {
		return resp.SessionUID
	}

	response = tc.do(t, http.MethodPost, "/checkout/process-payment", `{"sessionId":"`+resp.SessionUID+`"}`, nil)
	require.Equal(t, http.StatusOK, response.Code)
	if state == checkoutapi.SessionStatePaymentPending {
		return resp.SessionUID
	}

	require.Equal(t, checkoutapi.SessionStatePaid, state)
	response = tc.postNotification(t, "pay_1", resp.SessionUID, paymentgateway.PaymentStatusApproved)
	require.Equal(t, http.StatusOK, response.Code)

	return resp.SessionUID
}

func (tc *testContext) storedSession(t *testing.T, sessionUID string) checkoutapi.CheckoutSession {
	session, found, err := tc.sessionStore.Get(context.TODO(), sessionUID)
	require.NoError(t, err)
	require.True(t, found)
	return session
}
