package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcGrol/ticketshop/lib/myerrors"
	"github.com/MarcGrol/ticketshop/lib/mylog"
	"github.com/MarcGrol/ticketshop/lib/mymetrics"
	"github.com/MarcGrol/ticketshop/lib/mystore"
	"github.com/MarcGrol/ticketshop/services/checkoutapi"
)

// reap removes sessions that expired longer than the retention period ago and never got paid.
// Expiry itself is never decided here; the reaper only reclaims storage.
func (s *service) reap(c context.Context) (int, error) {
	cutoff := s.nower.Now().Add(-s.cfg.SessionRetention)

	candidates, err := s.sessionStore.Query(c, []mystore.Filter{
		{Field: "ExpiresAt", Compare: "<", Value: cutoff},
	}, "")
	if err != nil {
		return 0, myerrors.NewInternalError(fmt.Errorf("error querying expired sessions: %s", err))
	}

	reaped := 0
	for _, candidate := range candidates {
		if candidate.State == checkoutapi.SessionStatePaid {
			continue
		}

		deleted, err := s.reapSession(c, candidate.UID, cutoff)
		if err != nil {
			return reaped, err
		}
		if deleted {
			reaped++
		}
	}

	if reaped > 0 {
		mymetrics.SessionsReaped.Add(float64(reaped))
	}
	s.logger.Log(c, "", mylog.SeverityInfo, "Reaped %d of %d expired sessions", reaped, len(candidates))

	return reaped, nil
}

func (s *service) reapSession(c context.Context, sessionUID string, cutoff time.Time) (bool, error) {
	unlock, err := s.lockSession(c, sessionUID)
	if err != nil {
		return false, err
	}
	defer unlock()

	deleted := false
	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		deleted = false

		session, found, err := s.sessionStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found || session.State == checkoutapi.SessionStatePaid || !session.ExpiresAt.Before(cutoff) {
			return nil
		}

		err = s.sessionStore.Delete(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		deleted = true

		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Reaped session %s", sessionUID)
	}

	return deleted, nil
}

// startReaper runs the reaper periodically until c is done.
func (s *service) startReaper(c context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-c.Done():
				return
			case <-ticker.C:
				_, err := s.reap(c)
				if err != nil {
					s.logger.Log(c, "", mylog.SeverityError, "Error reaping sessions: %s", err)
				}
			}
		}
	}()
}
