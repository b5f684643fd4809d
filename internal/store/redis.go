package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lox/pokerrooms/internal/game"
	"github.com/redis/go-redis/v9"
)

// DefaultRoomTTL is how long an untouched snapshot stays cached.
const DefaultRoomTTL = 24 * time.Hour

// RoomKey is the cache key for a room snapshot.
func RoomKey(id string) string {
	return "room:" + id
}

// RedisCache stores Session snapshots as JSON under room:<id>.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a cache whose entries expire ttl after the last write.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, id string) (*game.Session, error) {
	data, err := c.rdb.Get(ctx, RoomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache get %s: %w", id, game.ErrRoomNotFound)
	}
	if err != nil {
		return nil, game.Unavailable("cache get "+id, err)
	}
	var s game.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", id, err)
	}
	return &s, nil
}

func (c *RedisCache) Put(ctx context.Context, s *game.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", s.ID, err)
	}
	if err := c.rdb.Set(ctx, RoomKey(s.ID), data, c.ttl).Err(); err != nil {
		return game.Unavailable("cache put "+s.ID, err)
	}
	return nil
}

func (c *RedisCache) PutIfAbsent(ctx context.Context, s *game.Session) (bool, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("encode room %s: %w", s.ID, err)
	}
	ok, err := c.rdb.SetNX(ctx, RoomKey(s.ID), data, c.ttl).Result()
	if err != nil {
		return false, game.Unavailable("cache put "+s.ID, err)
	}
	return ok, nil
}

func (c *RedisCache) Delete(ctx context.Context, id string) error {
	if err := c.rdb.Del(ctx, RoomKey(id)).Err(); err != nil {
		return game.Unavailable("cache delete "+id, err)
	}
	return nil
}

// Connect opens a client and verifies the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return rdb, nil
}
