package checkout

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/ticketshop/lib/myhttp"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
)

func TestReaper(t *testing.T) {
	c := context.TODO()

	t.Run("reap unpaid sessions after retention", func(t *testing.T) {
		// setup
		tc := setup(t)

		// given
		longAgo := mytime.ExampleTime.Add(-25 * time.Hour)
		recently := mytime.ExampleTime.Add(-time.Hour)
		for uid, session := range map[string]checkoutapi.CheckoutSession{
			"abandoned": {State: checkoutapi.SessionStateCreated, ExpiresAt: longAgo},
			"failed":    {State: checkoutapi.SessionStateFailed, ExpiresAt: longAgo},
			"paid":      {State: checkoutapi.SessionStatePaid, ExpiresAt: longAgo},
			"recent":    {State: checkoutapi.SessionStateDataAttached, ExpiresAt: recently},
			"active":    {State: checkoutapi.SessionStateCreated, ExpiresAt: mytime.ExampleTime.Add(time.Minute)},
		} {
			session.UID = uid
			require.NoError(t, tc.sessionStore.Put(c, uid, session))
		}

		// when
		response := tc.do(t, http.MethodPut, "/tasks/sessions/reap", "", nil)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), "Successfully reaped 2 sessions")

		remaining, _ := tc.sessionStore.List(c)
		uids := []string{}
		for _, s := range remaining {
			uids = append(uids, s.UID)
		}
		assert.ElementsMatch(t, []string{"paid", "recent", "active"}, uids)
	})

	t.Run("reaper on interval", func(t *testing.T) {
		// setup
		tc := setup(t)
		ctx, cancel := context.WithCancel(c)
		defer cancel()

		// given
		require.NoError(t, tc.sessionStore.Put(c, "abandoned", checkoutapi.CheckoutSession{
			UID:       "abandoned",
			State:     checkoutapi.SessionStateCreated,
			ExpiresAt: mytime.ExampleTime.Add(-48 * time.Hour),
		}))

		// when
		tc.service.StartReaper(ctx, 10*time.Millisecond)

		// then
		assert.Eventually(t, func() bool {
			_, found, _ := tc.sessionStore.Get(c, "abandoned")
			return !found
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("nothing to reap", func(t *testing.T) {
		// setup
		tc := setup(t)

		// when
		response := tc.do(t, http.MethodPut, "/tasks/sessions/reap", "", nil)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), myhttp.SuccessResponse{Message: "Successfully reaped 0 sessions"}.Message)
	})
}
