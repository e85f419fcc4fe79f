package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix  = "socialfeed:session:"
	defaultRedisTimeout = 2 * time.Second
)

// RedisStore keeps one device's session under a Redis key. Sessions do not
// expire; Clear removes them.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	deviceID string
}

// NewRedisStore creates a Redis-backed session store for deviceID.
func NewRedisStore(client *redis.Client, deviceID string) *RedisStore {
	return NewRedisStoreWithPrefix(client, deviceID, defaultRedisPrefix)
}

// NewRedisStoreWithPrefix creates a Redis-backed session store with an explicit key prefix.
func NewRedisStoreWithPrefix(client *redis.Client, deviceID, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client:   client,
		prefix:   prefix,
		deviceID: deviceID,
	}
}

func (s *RedisStore) key() string {
	return s.prefix + s.deviceID
}

func (s *RedisStore) Load(ctx context.Context) (State, error) {
	if s.client == nil {
		return State{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRedisTimeout)
	defer cancel()

	payload, err := s.client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("redis get session: %w", err)
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, state State) error {
	if s.client == nil {
		return nil
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRedisTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRedisTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
