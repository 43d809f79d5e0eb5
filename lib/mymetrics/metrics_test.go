package mymetrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAndExposition(t *testing.T) {
	before := testutil.ToFloat64(TicketValidations.WithLabelValues("validated"))
	TicketValidations.WithLabelValues("validated").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(TicketValidations.WithLabelValues("validated")))

	router := mux.NewRouter()
	RegisterEndpoints(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ticket_validations_total")
}
