package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/redis/go-redis/v9"
)

// Locker serialises work on one room. Lock blocks until the lock is held or
// ctx ends and returns the function that releases it.
type Locker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{rooms: make(map[string]*roomLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	rl, ok := l.rooms[id]
	if !ok {
		rl = &roomLock{ch: make(chan struct{}, 1)}
		l.rooms[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, rl, false)
		return nil, fmt.Errorf("lock room %s: %w: %w", id, game.ErrRoomBusy, ctx.Err())
	}
	var once sync.Once
	return func() { once.Do(func() { l.release(id, rl, true) }) }, nil
}

func (l *LocalLocker) release(id string, rl *roomLock, held bool) {
	if held {
		<-rl.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.rooms, id)
	}
}

// RoomLockKey is the Redis key guarding a room.
func RoomLockKey(id string) string {
	return "room:" + id + ":lock"
}

// Deletes the lock only if it still carries our token, so an expired lock
// re-taken by another node is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes room:<id>:lock with SET NX so several server processes
// can share one cache.
type RedisLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
}

// NewRedisLocker returns a locker whose locks expire after ttl if the holder
// dies, polling every retry while contended.
func NewRedisLocker(rdb *redis.Client, ttl, retry time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, retry: retry}
}

func (l *RedisLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := RoomLockKey(id)
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("lock room %s: %w: %w", id, game.ErrRoomBusy, ctx.Err())
			}
			return nil, game.Unavailable("lock room "+id, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("lock room %s: %w: %w", id, game.ErrRoomBusy, ctx.Err())
		case <-t.C:
		}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		// On failure the lock still expires after ttl.
		_ = unlockScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}
