package scraper

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

var errNotReady = errors.New("page not ready")

// settle polls ready every PollInterval until it reports true or
// SettleTimeout elapses. Running out of time is not an error: the page is
// used as it is, which matches what a fixed delay would have done. Errors
// from ready and cancellation of ctx are returned.
func (s *Scraper) settle(ctx context.Context, what string, ready func(context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.config.SettleTimeout)
	defer cancel()

	policy := backoff.WithContext(backoff.NewConstantBackOff(s.config.PollInterval), waitCtx)

	err := backoff.Retry(func() error {
		ok, err := ready(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil {
				return waitCtx.Err()
			}
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotReady
		}
		return nil
	}, policy)

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errNotReady), errors.Is(err, context.DeadlineExceeded):
		s.logger.Debug("page did not settle in time", "waiting_for", what, "timeout", s.config.SettleTimeout)
		return nil
	default:
		return err
	}
}
