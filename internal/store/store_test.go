package store

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func sampleSession(id string, activity time.Time) *game.Session {
	s := game.NewSession(id, "Room by alice", "alice", game.DefaultOptions(), epoch)
	_ = s.AddPlayer(game.NewParticipant("alice", 1000, epoch), epoch)
	s.LastActivityAt = activity
	return s
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Hour)

	_, err := cache.Get(ctx, "missing")
	require.ErrorIs(t, err, game.ErrRoomNotFound)

	s := sampleSession("r1", epoch)
	require.NoError(t, cache.Put(ctx, s))
	assert.True(t, mr.Exists("room:r1"))
	assert.Equal(t, time.Hour, mr.TTL("room:r1"))

	got, err := cache.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Participants[0].Username)
	assert.Equal(t, s.Name, got.Name)

	mr.FastForward(2 * time.Hour)
	_, err = cache.Get(ctx, "r1")
	require.ErrorIs(t, err, game.ErrRoomNotFound, "entry expires after the TTL")

	require.NoError(t, cache.Put(ctx, s))
	require.NoError(t, cache.Delete(ctx, "r1"))
	assert.False(t, mr.Exists("room:r1"))
}

func TestRedisCacheUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewRedisCache(rdb, 0)

	_, err := cache.Get(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, game.KindUnavailable, game.KindOf(err))
}

func TestSQLiteRecords(t *testing.T) {
	ctx := context.Background()
	db := newSQLite(t)

	_, err := db.Room(ctx, "nope")
	require.ErrorIs(t, err, game.ErrRoomNotFound)

	old := RecordOf(sampleSession("old", epoch.Add(-3*time.Hour)))
	recent := RecordOf(sampleSession("recent", epoch))
	playing := RecordOf(sampleSession("playing", epoch.Add(-5*time.Hour)))
	playing.Status = game.Playing
	done := RecordOf(sampleSession("done", epoch.Add(time.Hour)))
	done.Status = game.Finished
	for _, r := range []RoomRecord{old, recent, playing, done} {
		require.NoError(t, db.SaveRoom(ctx, r))
	}

	got, err := db.Room(ctx, "recent")
	require.NoError(t, err)
	assert.Equal(t, recent, got)

	active, err := db.ActiveRooms(ctx, 20)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, []string{"recent", "old", "playing"}, ids(active))

	limited, err := db.ActiveRooms(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"recent"}, ids(limited))

	idle, err := db.IdleRooms(ctx, epoch.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids(idle), "playing rooms are never idle")

	require.NoError(t, db.MarkFinished(ctx, "old", epoch))
	got, err = db.Room(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, game.Finished, got.Status)
	require.ErrorIs(t, db.MarkFinished(ctx, "nope", epoch), game.ErrRoomNotFound)

	// Upsert keeps the creation time and updates activity.
	recent.Pot = 40
	recent.LastActivityAt = epoch.Add(time.Minute)
	require.NoError(t, db.SaveRoom(ctx, recent))
	got, err = db.Room(ctx, "recent")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Pot)
	assert.Equal(t, epoch.Add(time.Minute), got.LastActivityAt)
}

func TestPostgresRecords(t *testing.T) {
	dsn := os.Getenv("POKERROOMS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POKERROOMS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := OpenPostgres(ctx, dsn, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rec := RecordOf(sampleSession("pg-"+time.Now().Format("150405.000000"), epoch))
	require.NoError(t, db.SaveRoom(ctx, rec))
	got, err := db.Room(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.True(t, rec.LastActivityAt.Equal(got.LastActivityAt))
	require.NoError(t, db.MarkFinished(ctx, rec.ID, epoch))
}

func TestRoomsFallsBackToDurableRecord(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	rooms := NewRooms(NewRedisCache(rdb, time.Hour), newSQLite(t), testLogger())

	s := sampleSession("r1", epoch)
	require.NoError(t, rooms.Create(ctx, s))
	mr.FlushAll()

	got, err := rooms.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Empty(t, got.Participants, "seats are not recoverable")
	assert.Equal(t, game.Waiting, got.Status)
	assert.True(t, mr.Exists("room:r1"), "rebuilt room is cached again")

	_, err = rooms.Load(ctx, "unknown")
	require.ErrorIs(t, err, game.ErrRoomNotFound)
}

// writeDuringRead runs beforeRead each time the durable record is fetched,
// standing in for a locked writer that lands between the cache miss and the
// rebuild.
type writeDuringRead struct {
	Durable
	beforeRead func()
}

func (d writeDuringRead) Room(ctx context.Context, id string) (RoomRecord, error) {
	d.beforeRead()
	return d.Durable.Room(ctx, id)
}

func TestRoomsRebuildKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Hour)
	db := newSQLite(t)

	require.NoError(t, NewRooms(cache, db, testLogger()).Create(ctx, sampleSession("r1", epoch)))
	mr.FlushAll()

	joined := sampleSession("r1", epoch)
	require.NoError(t, joined.AddPlayer(game.NewParticipant("bob", 1000, epoch), epoch))
	rooms := NewRooms(cache, writeDuringRead{Durable: db, beforeRead: func() {
		require.NoError(t, cache.Put(ctx, joined))
	}}, testLogger())

	got, err := rooms.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, got.Participants, 2, "the writer's snapshot is returned")

	cached, err := cache.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, cached.Participants, 2, "the rebuild does not overwrite the writer")
}

func TestRedisCachePutIfAbsent(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Hour)

	ok, err := cache.PutIfAbsent(ctx, sampleSession("r1", epoch))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("room:r1"))

	other := game.NewSession("r1", "Room by carol", "carol", game.DefaultOptions(), epoch)
	ok, err = cache.PutIfAbsent(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := cache.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Room by alice", got.Name)
}

func TestRoomsFinish(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	db := newSQLite(t)
	rooms := NewRooms(NewRedisCache(rdb, time.Hour), db, testLogger())

	require.NoError(t, rooms.Create(ctx, sampleSession("r1", epoch)))
	require.NoError(t, rooms.Finish(ctx, "r1", epoch))
	assert.False(t, mr.Exists("room:r1"))

	got, err := rooms.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, game.Finished, got.Status)
	assert.False(t, mr.Exists("room:r1"), "finished rooms are not re-cached")
}

func TestLocalLockerSerialises(t *testing.T) {
	testLockerSerialises(t, NewLocalLocker())
}

func TestRedisLockerSerialises(t *testing.T) {
	_, rdb := newRedis(t)
	testLockerSerialises(t, NewRedisLocker(rdb, time.Second, time.Millisecond))
}

func testLockerSerialises(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()
	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "room")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())

	// Different rooms do not contend.
	u1, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	u2, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	u1()
	u2()
}

func TestLockTimesOutAsBusy(t *testing.T) {
	_, rdb := newRedis(t)
	for name, l := range map[string]Locker{
		"local": NewLocalLocker(),
		"redis": NewRedisLocker(rdb, time.Second, time.Millisecond),
	} {
		t.Run(name, func(t *testing.T) {
			unlock, err := l.Lock(context.Background(), "room")
			require.NoError(t, err)
			defer unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			_, err = l.Lock(ctx, "room")
			require.ErrorIs(t, err, game.ErrRoomBusy)
			assert.Equal(t, game.KindUnavailable, game.KindOf(err))
		})
	}
}

func TestRedisUnlockLeavesForeignLock(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewRedisLocker(rdb, time.Second, time.Millisecond)
	unlock, err := l.Lock(context.Background(), "room")
	require.NoError(t, err)

	// Our lock expired and another node took it.
	require.NoError(t, mr.Set(RoomLockKey("room"), "someone-else"))
	unlock()
	got, err := mr.Get(RoomLockKey("room"))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func ids(rs []RoomRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
