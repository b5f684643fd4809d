// Package store persists rooms. A fast cache holds the authoritative Session
// snapshot between actions; a durable store keeps a coarse RoomRecord used for
// discovery, inactivity sweeps and rebuilding rooms the cache has lost.
package store

import (
	"context"
	"time"

	"github.com/lox/pokerrooms/internal/game"
)

// Cache holds full Session snapshots.
type Cache interface {
	// Get returns game.ErrRoomNotFound (wrapped) on a miss.
	Get(ctx context.Context, id string) (*game.Session, error)
	Put(ctx context.Context, s *game.Session) error
	// PutIfAbsent stores s only when no snapshot is cached and reports
	// whether it did.
	PutIfAbsent(ctx context.Context, s *game.Session) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Durable keeps room records across restarts.
type Durable interface {
	SaveRoom(ctx context.Context, rec RoomRecord) error
	// Room returns game.ErrRoomNotFound (wrapped) for unknown ids.
	Room(ctx context.Context, id string) (RoomRecord, error)
	// ActiveRooms returns rooms not Finished, most recently active first.
	ActiveRooms(ctx context.Context, limit int) ([]RoomRecord, error)
	// IdleRooms returns Waiting rooms whose last activity is before cutoff.
	IdleRooms(ctx context.Context, cutoff time.Time) ([]RoomRecord, error)
	MarkFinished(ctx context.Context, id string, at time.Time) error
	Close() error
}

// RoomRecord is the durable summary of a room.
type RoomRecord struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Creator        string      `json:"creator"`
	Status         game.Status `json:"status"`
	Pot            int         `json:"pot"`
	Players        int         `json:"players"`
	MinSeats       int         `json:"minSeats"`
	MaxSeats       int         `json:"maxSeats"`
	SmallBlind     int         `json:"smallBlind"`
	BigBlind       int         `json:"bigBlind"`
	StartingChips  int         `json:"startingChips"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastActivityAt time.Time   `json:"lastActivityAt"`
}

// RecordOf summarises s.
func RecordOf(s *game.Session) RoomRecord {
	return RoomRecord{
		ID:             s.ID,
		Name:           s.Name,
		Creator:        s.Creator,
		Status:         s.Status,
		Pot:            s.Pot,
		Players:        len(s.Participants),
		MinSeats:       s.MinSeats,
		MaxSeats:       s.MaxSeats,
		SmallBlind:     s.Round.SmallBlind,
		BigBlind:       s.Round.BigBlind,
		StartingChips:  s.StartingChips,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

// Session rebuilds an empty room from the record. Seats, cards and the hand
// in progress are not recoverable from the durable store.
func (r RoomRecord) Session() *game.Session {
	s := game.NewSession(r.ID, r.Name, r.Creator, game.Options{
		MinSeats:      r.MinSeats,
		MaxSeats:      r.MaxSeats,
		SmallBlind:    r.SmallBlind,
		BigBlind:      r.BigBlind,
		StartingChips: r.StartingChips,
	}, r.CreatedAt)
	s.LastActivityAt = r.LastActivityAt
	if r.Status == game.Finished {
		s.Status = game.Finished
	}
	return s
}
