package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mytime"
	"github.com/MarcGrol/ticketshop/lib/myvault"
)

var ErrUnknownCredential = errors.New("unknown staff credential")

type Member struct {
	UID  string
	Name string
}

// Authenticator turns the bearer credential of a gate device into a staff member.
//
//go:generate mockgen -source=staff.go -package staff -destination authenticator_mock.go Authenticator
type Authenticator interface {
	Authenticate(c context.Context, credential string) (Member, error)
}

type service struct {
	vault  myvault.Vault
	nower  mytime.Nower
	cost   int
	logger mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(vault myvault.Vault, nower mytime.Nower, cost int) *service {
	return &service{
		vault:  vault,
		nower:  nower,
		cost:   cost,
		logger: mylog.New("staff"),
	}
}

// Authenticate expects a credential of the form "<staffUID>.<secret>".
func (s *service) Authenticate(c context.Context, credential string) (Member, error) {
	staffUID, secret, found := strings.Cut(credential, ".")
	if !found || staffUID == "" || secret == "" {
		return Member{}, myerrors.NewUnauthorizedError(fmt.Errorf("%w: malformed", ErrUnknownCredential))
	}

	cred, found, err := s.vault.Get(c, staffUID)
	if err != nil {
		return Member{}, myerrors.NewInternalError(fmt.Errorf("error fetching credential of %s: %s", staffUID, err))
	}
	if !found || cred.Disabled {
		s.logger.Log(c, staffUID, mylog.SeverityWarn, "Unknown or disabled staff member %s", staffUID)
		return Member{}, myerrors.NewUnauthorizedError(ErrUnknownCredential)
	}

	err = bcrypt.CompareHashAndPassword(cred.SecretHash, []byte(secret))
	if err != nil {
		s.logger.Log(c, staffUID, mylog.SeverityWarn, "Invalid secret for staff member %s", staffUID)
		return Member{}, myerrors.NewUnauthorizedError(ErrUnknownCredential)
	}

	return Member{
		UID:  cred.UID,
		Name: cred.Name,
	}, nil
}

func (s *service) Register(c context.Context, staffUID string, name string, secret string) error {
	if staffUID == "" || strings.Contains(staffUID, ".") || secret == "" {
		return myerrors.NewInvalidInputErrorf("invalid staff uid '%s' or empty secret", staffUID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error hashing secret of %s: %s", staffUID, err))
	}

	err = s.vault.Put(c, staffUID, myvault.Credential{
		UID:        staffUID,
		Name:       name,
		SecretHash: hash,
		CreatedAt:  s.nower.Now(),
	})
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing credential of %s: %s", staffUID, err))
	}

	s.logger.Log(c, staffUID, mylog.SeverityInfo, "Registered staff member %s", staffUID)

	return nil
}

// Seed registers the staff members of a "<uid>:<secret>,<uid>:<secret>" list.
func (s *service) Seed(c context.Context, seed string) error {
	for _, entry := range strings.Split(seed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		staffUID, secret, found := strings.Cut(entry, ":")
		if !found {
			return fmt.Errorf("invalid staff seed entry '%s'", entry)
		}
		err := s.Register(c, staffUID, staffUID, secret)
		if err != nil {
			return err
		}
	}
	return nil
}
