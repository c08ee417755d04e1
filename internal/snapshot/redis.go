package snapshot

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
)

// RedisStore keeps the snapshot under one Redis key, shared by every
// instance pointed at the same server.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKey overrides the Redis key.
func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		s.key = key
	}
}

// NewRedisStore connects to the server at url and verifies it with PING.
func NewRedisStore(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.NewConfigError("snapshot", "invalid redis url", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &errors.APIError{Service: "redis", Endpoint: options.Addr, Message: "ping failed", Err: err}
	}
	return NewRedisStoreFromClient(client, opts...), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: constants.SnapshotKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.NewNotFoundError("snapshot", s.key)
		}
		return nil, &errors.APIError{Service: "redis", Endpoint: s.key, Message: "get failed", Err: err}
	}

	var snap Snapshot
	if err := sonic.Unmarshal(val, &snap); err != nil {
		return nil, &errors.IOError{Operation: "decode", Path: s.key, Message: "invalid snapshot", Err: err}
	}
	if err := validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save implements Store. The key never expires; the next save replaces it.
func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validate(snap); err != nil {
		return err
	}
	data, err := sonic.Marshal(snap)
	if err != nil {
		return &errors.IOError{Operation: "encode", Path: s.key, Message: "snapshot", Err: err}
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return &errors.APIError{Service: "redis", Endpoint: s.key, Message: "set failed", Err: err}
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
