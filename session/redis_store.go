package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore keeps the session blob under one redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	codec  Codec
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, key string, codec Codec) *RedisStore {
	return &RedisStore{client: client, key: key, codec: codec}
}

// NewRedisClient opens a client the same way for the server and the CLI.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisStore) Restore(ctx context.Context) (Session, bool) {
	blob, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Str("key", r.key).Msg("session key unreadable, treating as signed out")
		}
		return Session{}, false
	}

	s, err := r.codec.Decode(blob)
	if err == nil {
		err = usable(s, time.Now())
	}
	if err != nil {
		log.Debug().Err(err).Str("key", r.key).Msg("discarding persisted session")
		return Session{}, false
	}
	return s, true
}

// Persist sets the key, expiring it with the access token when an expiry is known.
func (r *RedisStore) Persist(ctx context.Context, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	blob, err := r.codec.Encode(s)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if s.Expiry != nil {
		ttl = time.Until(*s.Expiry)
		if ttl <= 0 {
			return r.Clear(ctx)
		}
	}
	if err := r.client.Set(ctx, r.key, blob, ttl).Err(); err != nil {
		return fmt.Errorf("[RedisStore Persist] %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("[RedisStore Clear] %w", err)
	}
	return nil
}
