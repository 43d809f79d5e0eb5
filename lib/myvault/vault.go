package myvault

import (
	"context"
	"time"

	"github.com/MarcGrol/ticketshop/lib/mystore"
)

// Credential holds a hashed secret, never the secret itself.
type Credential struct {
	UID        string
	Name       string
	SecretHash []byte `datastore:",noindex"`
	CreatedAt  time.Time
	Disabled   bool
}

//go:generate mockgen -source=vault.go -package myvault -destination vault_mock.go Vault
type Vault interface {
	Put(c context.Context, uid string, value Credential) error
	Get(c context.Context, uid string) (Credential, bool, error)
}

func New(c context.Context) (Vault, func(), error) {
	return mystore.New[Credential](c)
}
