package layer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

// DefaultRedisPrefix namespaces layer keys.
const DefaultRedisPrefix = "transitmap:layer:"

// RedisStore keeps each layer as a string value. Layers never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis server at url and pings it.
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	s := &RedisStore{client: redis.NewClient(opt), prefix: prefix}
	if err := s.client.Ping(ctx).Err(); err != nil {
		_ = s.client.Close()
		return nil, storageErr(err, "connect for", url)
	}
	return s, nil
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) Get(ctx context.Context, id string) (*network.Network, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "read", id)
	}
	return decode(id, data)
}

func (s *RedisStore) Set(ctx context.Context, id string, n *network.Network) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	data, err := encode(id, n)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(id), data, 0).Err(); err != nil {
		return storageErr(err, "write", id)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return storageErr(err, "remove", id)
	}
	return nil
}

// List scans the key space for the store prefix.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr(err, "list", s.prefix)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
