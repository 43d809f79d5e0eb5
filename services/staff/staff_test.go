package staff

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/lib/myvault"
)

func setup(t *testing.T) (*service, *mystore.InMemoryStore[myvault.Credential]) {
	ctrl := gomock.NewController(t)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	vault, _, err := mystore.NewInMemoryStore[myvault.Credential](context.TODO())
	require.NoError(t, err)

	return NewService(vault, nower, bcrypt.MinCost), vault
}

func TestAuthenticate(t *testing.T) {
	c := context.TODO()

	t.Run("valid credential", func(t *testing.T) {
		sut, vault := setup(t)
		require.NoError(t, sut.Register(c, "gate-1", "North gate", "s3cret"))

		member, err := sut.Authenticate(c, "gate-1.s3cret")
		require.NoError(t, err)
		assert.Equal(t, Member{UID: "gate-1", Name: "North gate"}, member)

		stored, _, _ := vault.Get(c, "gate-1")
		assert.NotContains(t, string(stored.SecretHash), "s3cret")
		assert.Equal(t, mytime.ExampleTime, stored.CreatedAt)
	})

	t.Run("wrong secret", func(t *testing.T) {
		sut, _ := setup(t)
		require.NoError(t, sut.Register(c, "gate-1", "North gate", "s3cret"))

		_, err := sut.Authenticate(c, "gate-1.guess")
		assert.True(t, errors.Is(err, ErrUnknownCredential))
		assert.Equal(t, http.StatusUnauthorized, myerrors.GetHTTPStatus(err))
	})

	t.Run("unknown or malformed", func(t *testing.T) {
		sut, _ := setup(t)

		for _, credential := range []string{"gate-2.s3cret", "gate-2", ".s3cret", "gate-2.", ""} {
			_, err := sut.Authenticate(c, credential)
			assert.Equal(t, http.StatusUnauthorized, myerrors.GetHTTPStatus(err), credential)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		sut, vault := setup(t)
		require.NoError(t, sut.Register(c, "gate-1", "North gate", "s3cret"))
		cred, _, _ := vault.Get(c, "gate-1")
		cred.Disabled = true
		require.NoError(t, vault.Put(c, "gate-1", cred))

		_, err := sut.Authenticate(c, "gate-1.s3cret")
		assert.Equal(t, http.StatusUnauthorized, myerrors.GetHTTPStatus(err))
	})
}

func TestSeed(t *testing.T) {
	c := context.TODO()
	sut, _ := setup(t)

	require.NoError(t, sut.Seed(c, "gate-1:one, gate-2:two,"))

	_, err := sut.Authenticate(c, "gate-1.one")
	assert.NoError(t, err)
	_, err = sut.Authenticate(c, "gate-2.two")
	assert.NoError(t, err)

	assert.Error(t, sut.Seed(c, "gate-3"))
	assert.Error(t, sut.Seed(c, "gate.3:x"))
}
