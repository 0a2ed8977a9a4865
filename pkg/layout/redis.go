package layout

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
)

const redisKeyPrefix = "repairgraph:layout:"

// RedisStore keeps layouts in Redis hashes with "version" and "layout"
// fields. CompareAndSwap uses WATCH on the group key and a MULTI/EXEC
// pipeline, so a concurrent write aborts the transaction.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url (redis:// or rediss://).
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	if err := errors.ValidateStoreURL(StoreRedis, url); err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to redis")
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(group string) string { return redisKeyPrefix + group }

// Load reads the layout of group.
func (s *RedisStore) Load(ctx context.Context, group string) (graph.Layout, bool, error) {
	data, err := s.client.HGet(ctx, redisKey(group), "layout").Bytes()
	if stderrors.Is(err, redis.Nil) {
		return graph.Layout{}, false, nil
	}
	if err != nil {
		return graph.Layout{}, false, errors.Wrap(errors.ErrCodeStorage, err, "load layout %s", group)
	}
	l, err := graph.UnmarshalLayout(data)
	if err != nil {
		return graph.Layout{}, false, errors.Wrap(errors.ErrCodeStorage, err, "decode layout %s", group)
	}
	return l, true, nil
}

// CompareAndSwap writes the layout of group if its version is prevVersion.
func (s *RedisStore) CompareAndSwap(ctx context.Context, group, prevVersion string, l graph.Layout) error {
	data, err := json.Marshal(l)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode layout %s", group)
	}
	key := redisKey(group)

	var lost error
	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, "version").Result()
		if err != nil && !stderrors.Is(err, redis.Nil) {
			return err
		}
		if cur != prevVersion {
			lost = conflict(group, prevVersion, cur)
			return lost
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "version", l.Version, "layout", data)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case lost != nil:
		return lost
	case stderrors.Is(err, redis.TxFailedErr):
		cur, _ := s.client.HGet(ctx, key, "version").Result()
		return conflict(group, prevVersion, cur)
	}
	return errors.Wrap(errors.ErrCodeStorage, err, "store layout %s", group)
}

// Delete removes the layout of group.
func (s *RedisStore) Delete(ctx context.Context, group string) error {
	return s.client.Del(ctx, redisKey(group)).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
