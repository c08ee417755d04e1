// Package snapshot persists the last known good catalog so the fallback
// chain can serve it when every live source is down.
package snapshot

import (
	"context"
	"net/url"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/aigo/internal/utils/fsutil"
	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/errors"
)

// Version is the current snapshot document version.
const Version = 1

// Snapshot is a persisted catalog.
type Snapshot struct {
	Version int                    `json:"version" yaml:"version"`
	SavedAt utc.Time               `json:"saved_at" yaml:"saved_at"`
	Tier    string                 `json:"tier" yaml:"tier"` // tier that produced the models
	Models  []catalog.UnifiedModel `json:"models" yaml:"models"`
}

// New creates a snapshot of models stamped now.
func New(tier string, models []catalog.UnifiedModel) *Snapshot {
	return &Snapshot{Version: Version, SavedAt: utc.Now(), Tier: tier, Models: models}
}

// Store loads and saves snapshots. Load returns an error matching
// errors.ErrNotFound when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Open creates a store from a location URL:
//
//	file:///path/to/snapshot.yaml  or a bare path
//	redis://host:6379/0
//	badger:///path/to/dir
func Open(ctx context.Context, location string) (Store, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.NewConfigError("snapshot", "empty location", nil)
	}

	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		return NewFileStore(fsutil.ExpandPath(location)), nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		return NewFileStore(fsutil.ExpandPath(pathOf(rest))), nil
	case "redis", "rediss":
		return NewRedisStore(ctx, location)
	case "badger":
		return NewBadgerStore(fsutil.ExpandPath(pathOf(rest)))
	default:
		return nil, errors.NewConfigError("snapshot", "unsupported scheme "+scheme, nil)
	}
}

// pathOf decodes the path part of a file-like URL, keeping ~ intact.
func pathOf(rest string) string {
	if p, err := url.PathUnescape(rest); err == nil {
		return p
	}
	return rest
}

func validate(snap *Snapshot) error {
	if snap == nil {
		return errors.NewValidationError("snapshot", nil, "nil snapshot")
	}
	if snap.Version > Version {
		return errors.NewValidationError("version", snap.Version, "snapshot written by a newer version")
	}
	return nil
}
