package sources

import (
	"context"
	"sync"
)

// Memo is a read-through cache of one adapter's result, scoped to a single
// aggregation pass. The first Fetch performs the call; later callers,
// including concurrent ones, receive the same batch or error.
type Memo struct {
	inner Adapter

	once  sync.Once
	done  chan struct{}
	batch *Batch
	err   error
}

// Memoize wraps an adapter for one pass. Create a new Memo per pass.
func Memoize(adapter Adapter) *Memo {
	return &Memo{inner: adapter, done: make(chan struct{})}
}

// Name returns the wrapped adapter's name.
func (m *Memo) Name() string { return m.inner.Name() }

// Tag returns the wrapped adapter's tag.
func (m *Memo) Tag() Tag { return m.inner.Tag() }

// Fetch returns the memoized result, performing the fetch on first use.
func (m *Memo) Fetch(ctx context.Context) (*Batch, error) {
	m.once.Do(func() {
		go func() {
			defer close(m.done)
			m.batch, m.err = m.inner.Fetch(ctx)
		}()
	})

	select {
	case <-m.done:
		return m.batch, m.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetched reports whether the first fetch has completed.
func (m *Memo) Fetched() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}
