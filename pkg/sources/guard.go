package sources

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
)

// GuardOptions configures the adapter boundary.
type GuardOptions struct {
	// Timeout bounds each attempt. Zero disables the deadline.
	Timeout time.Duration

	// Retries is the number of extra attempts for network/timeout failures.
	Retries int

	// Backoff is the wait before the first retry; it doubles per retry.
	Backoff time.Duration
}

// DefaultGuardOptions returns one retry with the standard backoff.
func DefaultGuardOptions(timeout time.Duration) GuardOptions {
	return GuardOptions{
		Timeout: timeout,
		Retries: constants.AdapterRetries,
		Backoff: constants.RetryBackoff,
	}
}

type guarded struct {
	inner Adapter
	opts  GuardOptions
}

// Guard wraps an adapter with a per-attempt deadline, error classification
// and a bounded retry. Parse and empty failures are never retried.
func Guard(adapter Adapter, opts GuardOptions) Adapter {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &guarded{inner: adapter, opts: opts}
}

func (g *guarded) Name() string { return g.inner.Name() }
func (g *guarded) Tag() Tag     { return g.inner.Tag() }

func (g *guarded) Fetch(ctx context.Context) (*Batch, error) {
	logger := logging.Ctx(ctx)
	backoff := g.opts.Backoff

	var lastErr error
	for attempt := 0; attempt <= g.opts.Retries; attempt++ {
		if attempt > 0 {
			logger.Warn().
				Err(lastErr).
				Str("adapter", g.Name()).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying adapter fetch")

			select {
			case <-ctx.Done():
				return nil, g.classify(ctx, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		batch, err := g.attempt(ctx)
		if err == nil {
			return batch, nil
		}
		lastErr = err

		kind, _ := errors.AdapterKind(err)
		if !kind.Retryable() || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

type fetchResult struct {
	batch *Batch
	err   error
}

// attempt runs one fetch under the deadline. The inner call runs in its own
// goroutine so an adapter that ignores its context cannot hold the pass.
func (g *guarded) attempt(ctx context.Context) (*Batch, error) {
	attemptCtx := ctx
	cancel := func() {}
	if g.opts.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
	}
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		b, err := g.inner.Fetch(attemptCtx)
		done <- fetchResult{b, err}
	}()

	select {
	case <-attemptCtx.Done():
		return nil, g.classify(attemptCtx, attemptCtx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, g.classify(attemptCtx, res.err)
		}
		if res.batch.Len() == 0 {
			skipped := 0
			if res.batch != nil {
				skipped = res.batch.Skipped
			}
			return nil, errors.NewAdapterError(g.Name(), errors.KindEmpty,
				emptyMessage(skipped), nil)
		}
		return res.batch, nil
	}
}

// classify turns any error into an *errors.AdapterError.
func (g *guarded) classify(ctx context.Context, err error) error {
	var ae *errors.AdapterError
	if errors.As(err, &ae) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewAdapterError(g.Name(), errors.KindTimeout, "deadline exceeded", err)
	}
	return errors.WrapAdapter(g.Name(), errors.KindNetwork, err)
}

func emptyMessage(skipped int) string {
	if skipped > 0 {
		return "no usable records (all malformed)"
	}
	return "no records"
}
