package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/myvault"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
	"github.com/MarcGrol/ticketshop/services/paymentgateway"
	"github.com/MarcGrol/ticketshop/services/staff"
	"github.com/MarcGrol/ticketshop/services/tickets"
)

// withGate adds the ticket validation endpoints on the same stores, guarded by one staff member.
func (tc *testContext) withGate(t *testing.T) {
	c := context.TODO()

	vault, _, err := mystore.NewInMemoryStore[myvault.Credential](c)
	require.NoError(t, err)
	staffService := staff.NewService(vault, tc.nower, bcrypt.MinCost)
	require.NoError(t, staffService.Register(c, "gate-1", "North gate", "s3cret"))

	gate := tickets.NewWebService(tc.ticketStore, tc.locker, staffService, tc.nower, tc.publisher)
	require.NoError(t, gate.RegisterEndpoints(c, tc.router))
}

func TestBuyAndScanTickets(t *testing.T) {
	// setup
	tc := setup(t)
	tc.withGate(t)
	staffAuth := map[string]string{"Authorization": "Bearer gate-1.s3cret"}

	// given
	response := tc.do(t, http.MethodPost, "/checkout/session", `{"eventId":"event-1","priceId":"price-1","quantity":2}`, nil)
	require.Equal(t, http.StatusCreated, response.Code)
	created := checkoutapi.CreateSessionResponse{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &created))
	sessionUID := created.SessionUID

	response = tc.do(t, http.MethodPut, "/checkout/session/"+sessionUID+"/data", buyerDataJSON(t, validBuyer("Lucia"), validBuyer("Mateo")), nil)
	require.Equal(t, http.StatusOK, response.Code)

	response = tc.do(t, http.MethodPost, "/checkout/process-payment", `{"sessionId":"`+sessionUID+`"}`, nil)
	require.Equal(t, http.StatusOK, response.Code)

	response = tc.postNotification(t, "pay_1", sessionUID, paymentgateway.PaymentStatusApproved)
	require.Equal(t, http.StatusOK, response.Code)

	response = tc.do(t, http.MethodGet, "/checkout/session/"+sessionUID+"/tickets", "", nil)
	require.Equal(t, http.StatusOK, response.Code)
	views := []tickets.TicketView{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &views))
	require.Len(t, views, 2)
	first, second := views[0].TicketID, views[1].TicketID
	assert.NotEqual(t, first, second)

	// when
	firstScan := tc.do(t, http.MethodPost, "/events/event-1/sales/"+first+"/validate", "", staffAuth)
	secondScan := tc.do(t, http.MethodPost, "/events/event-1/sales/"+first+"/validate", "", staffAuth)

	// then
	assert.Equal(t, http.StatusNoContent, firstScan.Code)
	assert.Equal(t, http.StatusConflict, secondScan.Code)
	rejected := tickets.AlreadyValidatedResponse{}
	require.NoError(t, json.Unmarshal(secondScan.Body.Bytes(), &rejected))
	assert.Equal(t, first, rejected.SaleID)
	assert.Equal(t, "gate-1", rejected.ValidatedBy)

	response = tc.do(t, http.MethodGet, "/events/event-1/sales/"+second, "", staffAuth)
	require.Equal(t, http.StatusOK, response.Code)
	other := tickets.TicketView{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &other))
	assert.False(t, other.Validated)

	// and a ticket does not open the gate of another event
	response = tc.do(t, http.MethodPost, "/events/event-2/sales/"+second+"/validate", "", staffAuth)
	assert.Equal(t, http.StatusNotFound, response.Code)
}
