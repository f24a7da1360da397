// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/case-intake/internal/logger"
)

// RetryBaseDelay is the default first backoff. Tests override it to
// avoid real sleeps.
var RetryBaseDelay = 5 * time.Second

const defaultMaxRetries = 3

// Retrying resends failed messages with exponential backoff: base,
// 2*base, 4*base, and so on.
type Retrying struct {
	next       Notifier
	maxRetries int
	baseDelay  time.Duration
	log        *zap.SugaredLogger
}

// WithRetry wraps n. maxRetries <= 0 uses the default (3); baseDelay <= 0
// uses RetryBaseDelay.
func WithRetry(n Notifier, maxRetries int, baseDelay time.Duration, log *zap.SugaredLogger) *Retrying {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if log == nil {
		log = logger.ComponentLogger("notify")
	}
	return &Retrying{next: n, maxRetries: maxRetries, baseDelay: baseDelay, log: log}
}

// Send tries once plus up to maxRetries more times. If ctx is cancelled
// during a backoff wait, ctx.Err() is returned. After exhausting retries
// the last send error is returned.
func (r *Retrying) Send(ctx context.Context, msg Message) error {
	base := r.baseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}

	for attempt := 0; ; attempt++ {
		err := r.next.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if attempt >= r.maxRetries {
			return err
		}

		backoff := base << attempt
		r.log.Warnw("Notification failed, retrying",
			logger.FieldError, err,
			logger.FieldAttempt, attempt+1,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
