package snapshot

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"

	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
)

// BadgerStore keeps the snapshot in an embedded Badger database.
type BadgerStore struct {
	db  *badger.DB
	key []byte
}

// NewBadgerStore opens (or creates) a Badger database in dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions(dir).WithLogger(nil))
}

// NewInMemoryBadgerStore opens a Badger database that lives only in memory.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WrapIO("open", opts.Dir, err)
	}
	return &BadgerStore{db: db, key: []byte(constants.SnapshotKey)}, nil
}

// Load implements Store.
func (s *BadgerStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return sonic.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, errors.NewNotFoundError("snapshot", string(s.key))
		}
		return nil, &errors.IOError{Operation: "read", Path: string(s.key), Message: "badger", Err: err}
	}
	if err := validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save implements Store.
func (s *BadgerStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validate(snap); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := sonic.Marshal(snap)
	if err != nil {
		return &errors.IOError{Operation: "encode", Path: string(s.key), Message: "snapshot", Err: err}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	})
	if err != nil {
		return &errors.IOError{Operation: "write", Path: string(s.key), Message: "badger", Err: err}
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
