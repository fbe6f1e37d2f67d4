package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/cobic/core"
)

const defaultRedisPrefix = "cobic:session:"

// RedisStore keeps the credential in Redis so several client processes on one
// device (CLI, notifier daemon) share a single session
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis backed store. An empty prefix selects the
// default key namespace.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) tokenKey() string   { return s.prefix + "token" }
func (s *RedisStore) profileKey() string { return s.prefix + "profile" }
func (s *RedisStore) reminderKey(key string) string {
	return s.prefix + "reminder:" + key
}

// GetToken returns the stored token
func (s *RedisStore) GetToken(ctx context.Context) (string, bool, error) {
	token, err := s.client.Get(ctx, s.tokenKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get token: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return token, token != "", nil
}

// SetToken overwrites the stored token
func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return core.ErrEmptyToken
	}
	if err := s.client.Set(ctx, s.tokenKey(), token, 0).Err(); err != nil {
		return fmt.Errorf("set token: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// RemoveToken deletes token and profile in one MULTI
func (s *RedisStore) RemoveToken(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey(), s.profileKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove token: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// SaveCredential writes token and profile in one MULTI
func (s *RedisStore) SaveCredential(ctx context.Context, token string, user *core.User) error {
	if token == "" {
		return core.ErrEmptyToken
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(), token, 0)
		if user != nil {
			pipe.Set(ctx, s.profileKey(), payload, 0)
		} else {
			pipe.Del(ctx, s.profileKey())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// GetProfile returns the cached profile
func (s *RedisStore) GetProfile(ctx context.Context) (*core.User, bool, error) {
	values, err := s.client.MGet(ctx, s.tokenKey(), s.profileKey()).Result()
	if err != nil {
		return nil, false, fmt.Errorf("get profile: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	token, _ := values[0].(string)
	raw, _ := values[1].(string)
	if token == "" || raw == "" {
		return nil, false, nil
	}

	var user core.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, false, fmt.Errorf("decode profile: %w", err)
	}
	return &user, true, nil
}

// SaveProfile replaces the profile if, and only if, a token is still stored
func (s *RedisStore) SaveProfile(ctx context.Context, user *core.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, s.tokenKey()).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrNoCredential
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.profileKey(), payload, 0)
			return nil
		})
		return err
	}, s.tokenKey())

	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrNoCredential):
		return err
	default:
		return fmt.Errorf("save profile: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
}

// SetReminder stores a named timestamp
func (s *RedisStore) SetReminder(ctx context.Context, key string, at time.Time) error {
	if err := s.client.Set(ctx, s.reminderKey(key), at.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("set reminder: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// GetReminder returns a named timestamp
func (s *RedisStore) GetReminder(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.reminderKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get reminder: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode reminder %s: %w", key, err)
	}
	return at, true, nil
}

// ClearReminder deletes a named timestamp
func (s *RedisStore) ClearReminder(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.reminderKey(key)).Err(); err != nil {
		return fmt.Errorf("clear reminder: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
