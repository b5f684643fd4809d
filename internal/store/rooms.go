package store

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/pokerrooms/internal/game"
	"golang.org/x/sync/singleflight"
)

// Rooms combines the cache and the durable store.
type Rooms struct {
	cache   Cache
	durable Durable
	logger  *log.Logger
	loads   singleflight.Group
}

// NewRooms returns a repository reading through cache to durable.
func NewRooms(cache Cache, durable Durable, logger *log.Logger) *Rooms {
	return &Rooms{cache: cache, durable: durable, logger: logger.WithPrefix("store")}
}

// Load returns the cached snapshot. On a cache miss the room is rebuilt
// empty from its durable record and cached again unless a writer got there
// first, in which case the writer's snapshot wins. Concurrent misses for the
// same id share one rebuild.
func (r *Rooms) Load(ctx context.Context, id string) (*game.Session, error) {
	s, err := r.cache.Get(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, game.ErrRoomNotFound) {
		return nil, err
	}

	v, err, _ := r.loads.Do(id, func() (any, error) {
		rec, err := r.durable.Room(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec.Status == game.Finished {
			return rebuild{rec: rec}, nil
		}
		stored, err := r.cache.PutIfAbsent(ctx, rec.Session())
		if err != nil {
			return nil, err
		}
		if stored {
			r.logger.Info("Rebuilt room from durable record", "room", id, "status", rec.Status)
		}
		return rebuild{rec: rec, raced: !stored}, nil
	})
	if err != nil {
		return nil, err
	}
	res := v.(rebuild)
	if res.raced {
		return r.cache.Get(ctx, id)
	}
	return res.rec.Session(), nil
}

type rebuild struct {
	rec RoomRecord
	// raced is set when another writer cached the room during the rebuild.
	raced bool
}

// Create persists a new room, durable record first so it is discoverable.
func (r *Rooms) Create(ctx context.Context, s *game.Session) error {
	if err := r.durable.SaveRoom(ctx, RecordOf(s)); err != nil {
		return err
	}
	return r.cache.Put(ctx, s)
}

// Save writes the snapshot and refreshes the durable record. The cache copy
// is authoritative, so a durable failure is logged rather than returned.
func (r *Rooms) Save(ctx context.Context, s *game.Session) error {
	if err := r.cache.Put(ctx, s); err != nil {
		return err
	}
	if err := r.durable.SaveRoom(ctx, RecordOf(s)); err != nil {
		r.logger.Error("Failed to sync room record", "room", s.ID, "error", err)
	}
	return nil
}

// Active lists rooms not Finished, most recently active first.
func (r *Rooms) Active(ctx context.Context, limit int) ([]RoomRecord, error) {
	return r.durable.ActiveRooms(ctx, limit)
}

// Idle lists Waiting rooms untouched since cutoff.
func (r *Rooms) Idle(ctx context.Context, cutoff time.Time) ([]RoomRecord, error) {
	return r.durable.IdleRooms(ctx, cutoff)
}

// Finish marks the room Finished and evicts its snapshot.
func (r *Rooms) Finish(ctx context.Context, id string, at time.Time) error {
	if err := r.durable.MarkFinished(ctx, id, at); err != nil {
		return err
	}
	return r.cache.Delete(ctx, id)
}
