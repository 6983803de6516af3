package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcogenualdo/authgate/internal/config"
	"github.com/marcogenualdo/authgate/internal/store"
)

const sessionKeyPrefix = "session:"

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.New("failed to connect to Redis: " + err.Error())
	}

	return &RedisCache{client: client}, nil
}

func (rc *RedisCache) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	data, err := rc.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var session store.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// A corrupt entry behaves like a miss; the store is authoritative.
		rc.client.Del(ctx, sessionKeyPrefix+sessionID)
		return nil, ErrNotFound
	}
	return &session, nil
}

func (rc *RedisCache) SetSession(ctx context.Context, session *store.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, sessionKeyPrefix+session.SessionID, data, ttl).Err()
}

func (rc *RedisCache) DeleteSession(ctx context.Context, sessionID string) error {
	return rc.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
