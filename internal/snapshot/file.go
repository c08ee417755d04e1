package snapshot

import (
	"context"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/aigo/internal/utils/fsutil"
	"github.com/agentstation/aigo/pkg/errors"
)

// FileStore keeps the snapshot as a YAML document on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string { return s.path }

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFoundError("snapshot", s.path)
		}
		return nil, errors.WrapIO("read", s.path, err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, &errors.IOError{Operation: "decode", Path: s.path, Message: "invalid snapshot", Err: err}
	}
	if err := validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validate(snap); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := yaml.MarshalWithOptions(snap, yaml.Indent(2), yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return &errors.IOError{Operation: "encode", Path: s.path, Message: "snapshot", Err: err}
	}
	return fsutil.WriteFileAtomic(s.path, data)
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
