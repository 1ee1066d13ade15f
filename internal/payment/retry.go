package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAttemptTimeout = 15000 * time.Millisecond
	DefaultRetryCount     = 3
	DefaultRetryDelay     = 1000 * time.Millisecond
)

// Retrier wraps a Processor with a hard per-attempt timeout and a bounded
// retry budget. The delay between attempts is fixed; no jitter or backoff.
type Retrier struct {
	proc    Processor
	timeout time.Duration
	retries int
	delay   time.Duration
	log     *zap.Logger
}

func NewRetrier(proc Processor, timeout time.Duration, retries int, delay time.Duration, log *zap.Logger) *Retrier {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	if retries < 0 {
		retries = DefaultRetryCount
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{proc: proc, timeout: timeout, retries: retries, delay: delay, log: log}
}

// ProcessPayment makes up to retries+1 attempts. A timed-out attempt counts
// as a retryable failure, same as a provider error. After exhaustion it
// returns one aggregated error with the attempt count and the last cause;
// callers treat that uniformly as "payment failed".
func (r *Retrier) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	attempts := r.retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		res, err := r.proc.ProcessPayment(attemptCtx, req)
		cancel()
		if err == nil {
			if attempt > 1 {
				r.log.Info("payment_succeeded_after_retry",
					zap.Int64("order_id", req.OrderID),
					zap.Int("attempt", attempt),
				)
			}
			return res, nil
		}
		if attemptCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("payment attempt timed out after %s", r.timeout)
		}
		lastErr = err
		r.log.Warn("payment_attempt_failed",
			zap.Int64("order_id", req.OrderID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if attempt < attempts {
			select {
			case <-time.After(r.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("payment failed after %d attempts: %s", attempts, lastErr)
}

// QueryStatus is a passthrough; status polling has its own error handling in
// the reconciler and is not retried here.
func (r *Retrier) QueryStatus(ctx context.Context, orderID int64, providerRef string) (*StatusResult, error) {
	return r.proc.QueryStatus(ctx, orderID, providerRef)
}
