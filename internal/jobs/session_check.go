package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"wfh/attendance/internal/apperr"
	"wfh/attendance/internal/config"
)

// Revalidator is the part of the session store the check job drives.
type Revalidator interface {
	Revalidate(ctx context.Context) error
}

// StartSessionCheckJob re-verifies the current token every
// cfg.VerifyInterval until ctx ends. A zero interval disables it.
func StartSessionCheckJob(ctx context.Context, cfg config.Config, store Revalidator) {
	interval := cfg.VerifyInterval
	if interval <= 0 {
		return
	}
	if store == nil {
		log.Printf("session check job disabled: no session store")
		return
	}
	timeout := cfg.VerifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				err := store.Revalidate(tickCtx)
				cancel()
				switch {
				case err == nil, errors.Is(err, apperr.ErrNotAuthenticated):
				case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
					log.Printf("session check job timed out after %s", timeout)
				default:
					log.Printf("session check job ended session: %v", err)
				}
			}
		}
	}()
}
