package checkout

import (
	"context"
	"time"

	"github.com/kukuhub/storefront/internal/backend"
	"github.com/kukuhub/storefront/internal/domain"
)

// DelayConfirmer stands in for the server-to-server payment callback
// that this deployment does not have: it waits a fixed interval and
// then assumes the payment settled. An approximation, not a protocol;
// swap in PollingConfirmer (or a real webhook source) without touching
// the orchestrator.
type DelayConfirmer struct {
	delay time.Duration
	after func(time.Duration) <-chan time.Time
}

func NewDelayConfirmer(delay time.Duration) *DelayConfirmer {
	return &DelayConfirmer{delay: delay, after: time.After}
}

func (c *DelayConfirmer) Await(ctx context.Context, _ string) error {
	select {
	case <-c.after(c.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StatusChecker is the payment-status slice of the backend client.
type StatusChecker interface {
	PaymentStatus(ctx context.Context, requestID string) (backend.PaymentState, error)
}

// PollingConfirmer repeatedly asks the backend how the push is doing
// until it completes, fails, or the polling budget runs out. Transient
// status-check errors are tolerated; the push may still settle.
type PollingConfirmer struct {
	payments StatusChecker
	interval time.Duration
	attempts int
	after    func(time.Duration) <-chan time.Time
}

func NewPollingConfirmer(payments StatusChecker, interval time.Duration, attempts int) *PollingConfirmer {
	return &PollingConfirmer{
		payments: payments,
		interval: interval,
		attempts: attempts,
		after:    time.After,
	}
}

func (c *PollingConfirmer) Await(ctx context.Context, requestID string) error {
	for i := 0; i < c.attempts; i++ {
		state, err := c.payments.PaymentStatus(ctx, requestID)
		if err == nil {
			switch state {
			case backend.PaymentStateCompleted:
				return nil
			case backend.PaymentStateFailed:
				return domain.NewFailure(domain.FailureUserInput,
					"Payment was not completed. Please try again.")
			}
		}

		select {
		case <-c.after(c.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return domain.NewFailure(domain.FailureTimeout,
		"Timed out waiting for payment confirmation. If you entered your PIN, please contact support before retrying.")
}
