// Package seed serves the AA feed bundled into the binary. It is the last
// tier of the fallback chain and never touches the network or disk.
package seed

import (
	"context"
	"io/fs"
	"time"

	"github.com/agentstation/aigo/internal/embedded"
	"github.com/agentstation/aigo/internal/sources/aa"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/sources"
)

// AdapterName is the seed adapter's name.
const AdapterName = "seed"

// Adapter reads a static feed from an fs.FS.
type Adapter struct {
	fsys fs.FS
	path string
}

// Option configures the seed adapter.
type Option func(*Adapter)

// WithFS reads the feed at path in fsys instead of the bundled one.
func WithFS(fsys fs.FS, path string) Option {
	return func(a *Adapter) {
		a.fsys = fsys
		a.path = path
	}
}

// New returns the seed adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{fsys: embedded.FS, path: embedded.SeedPath}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements sources.Adapter.
func (a *Adapter) Name() string { return AdapterName }

// Tag implements sources.Adapter.
func (a *Adapter) Tag() sources.Tag { return sources.TagAA }

// Fetch implements sources.Adapter.
func (a *Adapter) Fetch(ctx context.Context) (*sources.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(a.fsys, a.path)
	if err != nil {
		return nil, errors.NewAdapterError(a.Name(), errors.KindEmpty, "seed feed unreadable", err)
	}
	batch, err := aa.Parse(a.Name(), data, time.Now())
	if err != nil {
		return nil, err
	}
	if batch.Len() == 0 {
		return nil, errors.NewAdapterError(a.Name(), errors.KindEmpty, "seed feed has no models", nil)
	}
	return batch, nil
}
