// Package room is the session orchestrator: it loads a room, applies one
// operation under the room's lock, persists the result and fans out
// per-recipient views.
package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/store"
)

// Repository is the persistence the orchestrator needs; *store.Rooms
// implements it.
type Repository interface {
	Load(ctx context.Context, id string) (*game.Session, error)
	Create(ctx context.Context, s *game.Session) error
	Save(ctx context.Context, s *game.Session) error
	Active(ctx context.Context, limit int) ([]store.RoomRecord, error)
	Idle(ctx context.Context, cutoff time.Time) ([]store.RoomRecord, error)
	Finish(ctx context.Context, id string, at time.Time) error
}

// Config holds orchestrator limits.
type Config struct {
	Table               game.Options
	ActiveRoomLimit     int
	InactivityThreshold time.Duration
	SweepInterval       time.Duration
	LockTimeout         time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Table:               game.DefaultOptions(),
		ActiveRoomLimit:     20,
		InactivityThreshold: 2 * time.Hour,
		SweepInterval:       30 * time.Minute,
		LockTimeout:         5 * time.Second,
	}
}

// ErrInvalidUsername rejects empty or oversized usernames.
var ErrInvalidUsername = &game.Error{Kind: game.KindInvalidState, Msg: "invalid username"}

const maxUsernameLen = 64

// Service implements the room operations.
type Service struct {
	rooms       Repository
	locker      store.Locker
	engine      *game.Engine
	clock       quartz.Clock
	broadcaster Broadcaster
	logger      *log.Logger
	cfg         Config
}

// Option configures a Service.
type Option func(*Service)

// WithLocker replaces the in-process locker, e.g. with a store.RedisLocker.
func WithLocker(l store.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithBroadcaster sets where deliveries go.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.broadcaster = b }
}

// NewService wires an orchestrator.
func NewService(rooms Repository, engine *game.Engine, clock quartz.Clock, logger *log.Logger, cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.ActiveRoomLimit <= 0 {
		cfg.ActiveRoomLimit = def.ActiveRoomLimit
	}
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = def.InactivityThreshold
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = def.LockTimeout
	}
	if cfg.Table.MaxSeats == 0 {
		cfg.Table = def.Table
	}
	s := &Service{
		rooms:       rooms,
		locker:      store.NewLocalLocker(),
		engine:      engine,
		clock:       clock,
		broadcaster: nopBroadcaster{},
		logger:      logger.WithPrefix("rooms"),
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBroadcaster replaces the broadcaster after construction, for transports
// that need the Service before they exist.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateRoom opens a room named after username and seats them.
func (s *Service) CreateRoom(ctx context.Context, username string) (*game.Session, error) {
	if err := validUsername(username); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("room id: %w", err)
	}
	now := s.clock.Now()
	sess := game.NewSession(id.String(), "Room by "+username, username, s.cfg.Table, now)
	if err := sess.AddPlayer(game.NewParticipant(username, sess.StartingChips, now), now); err != nil {
		return nil, err
	}
	if err := s.rooms.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("Room created", "room", sess.ID, "creator", username)
	s.publish(ctx, sess, change{events: []string{EventRoomCreated}, actor: username})
	return sess, nil
}

// JoinRoom seats username with the room's starting stack.
func (s *Service) JoinRoom(ctx context.Context, roomID, username string) (*game.Session, error) {
	if err := validUsername(username); err != nil {
		return nil, err
	}
	return s.mutate(ctx, roomID, "join", func(sess *game.Session) (change, error) {
		now := s.clock.Now()
		if err := sess.AddPlayer(game.NewParticipant(username, sess.StartingChips, now), now); err != nil {
			return change{}, err
		}
		return change{events: []string{EventPlayerJoined}, actor: username}, nil
	})
}

// LeaveRoom unseats username, settling the hand if they were the last
// opponent.
func (s *Service) LeaveRoom(ctx context.Context, roomID, username string) (*game.Session, error) {
	return s.mutate(ctx, roomID, "leave", func(sess *game.Session) (change, error) {
		out, err := s.engine.Leave(sess, username)
		if err != nil {
			return change{}, err
		}
		c := change{events: []string{EventPlayerLeft}, actor: username}
		if out.HandEnded {
			c.events = append(c.events, EventHandEnded)
		}
		return c, nil
	})
}

// StartHand deals a new hand in a Waiting room with enough players.
func (s *Service) StartHand(ctx context.Context, roomID string) (*game.Session, error) {
	return s.mutate(ctx, roomID, "start hand", func(sess *game.Session) (change, error) {
		if !sess.IsReadyToStart() {
			return change{}, fmt.Errorf("room %s is %s with %d seated: %w", sess.ID, sess.Status, len(sess.Participants), game.ErrRoomNotReady)
		}
		if err := s.engine.StartHand(sess); err != nil {
			return change{}, err
		}
		c := change{events: []string{EventHandStarted}}
		if !sess.Round.HandActive {
			c.events = append(c.events, EventHandEnded)
		}
		return c, nil
	})
}

// PlaceBet adds amount chips for username. An amount at or above the stack
// is an all-in.
func (s *Service) PlaceBet(ctx context.Context, roomID, username string, amount int) (*game.Session, error) {
	return s.act(ctx, roomID, game.Action{Kind: game.ActionBet, Username: username, Amount: amount})
}

// Check passes when nothing is owed.
func (s *Service) Check(ctx context.Context, roomID, username string) (*game.Session, error) {
	return s.act(ctx, roomID, game.Action{Kind: game.ActionCheck, Username: username})
}

// Call matches the current bet.
func (s *Service) Call(ctx context.Context, roomID, username string) (*game.Session, error) {
	return s.act(ctx, roomID, game.Action{Kind: game.ActionCall, Username: username})
}

// Raise adds amount chips, which must be at least the minimum raise.
func (s *Service) Raise(ctx context.Context, roomID, username string, amount int) (*game.Session, error) {
	return s.act(ctx, roomID, game.Action{Kind: game.ActionRaise, Username: username, Amount: amount})
}

// Fold gives up the hand.
func (s *Service) Fold(ctx context.Context, roomID, username string) (*game.Session, error) {
	return s.act(ctx, roomID, game.Action{Kind: game.ActionFold, Username: username})
}

// AllIn commits username's whole stack.
func (s *Service) AllIn(ctx context.Context, roomID, username string) (*game.Session, error) {
	return s.act(ctx, roomID, game.Action{Kind: game.ActionAllIn, Username: username})
}

func (s *Service) act(ctx context.Context, roomID string, a game.Action) (*game.Session, error) {
	return s.mutate(ctx, roomID, a.Kind.String(), func(sess *game.Session) (change, error) {
		out, err := s.engine.Apply(sess, a)
		if err != nil {
			return change{}, err
		}
		c := change{events: []string{actionEvent(out.Kind)}, actor: out.Username, amount: out.Amount}
		if out.HandEnded {
			c.events = append(c.events, EventHandEnded)
		}
		return c, nil
	})
}

// GetRoomState returns the current snapshot. Callers project it with
// ViewFor before sending it anywhere.
func (s *Service) GetRoomState(ctx context.Context, roomID string) (*game.Session, error) {
	if err := validRoomID(roomID); err != nil {
		return nil, err
	}
	return s.rooms.Load(ctx, roomID)
}

// GetActiveRooms lists rooms that are not Finished, most recently active first.
func (s *Service) GetActiveRooms(ctx context.Context) ([]store.RoomRecord, error) {
	return s.rooms.Active(ctx, s.cfg.ActiveRoomLimit)
}

// mutate runs fn on a freshly loaded snapshot while holding the room lock and
// persists the result only if fn succeeds.
func (s *Service) mutate(ctx context.Context, roomID, op string, fn func(*game.Session) (change, error)) (*game.Session, error) {
	if err := validRoomID(roomID); err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.rooms.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if sess.Status == game.Finished {
		return nil, fmt.Errorf("%s in room %s: %w", op, roomID, game.ErrRoomClosed)
	}
	c, err := fn(sess)
	if err != nil {
		s.logger.Debug("Rejected", "op", op, "room", roomID, "actor", c.actor, "error", err)
		return nil, err
	}
	if err := s.rooms.Save(ctx, sess); err != nil {
		s.logger.Error("Failed to persist room", "op", op, "room", roomID, "error", err)
		return nil, err
	}
	s.publish(ctx, sess, c)
	return sess, nil
}

func (s *Service) lock(ctx context.Context, roomID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancel()
	return s.locker.Lock(lockCtx, roomID)
}

func (s *Service) publish(ctx context.Context, sess *game.Session, c change) {
	if len(c.events) == 0 {
		return
	}
	if err := s.broadcaster.Deliver(ctx, deliveriesFor(sess, c)); err != nil {
		s.logger.Warn("Delivery failed", "room", sess.ID, "events", c.events, "error", err)
	}
}

func validRoomID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("room %q: %w", id, game.ErrRoomNotFound)
	}
	return nil
}

func validUsername(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > maxUsernameLen {
		return fmt.Errorf("username %q: %w", name, ErrInvalidUsername)
	}
	return nil
}

// IsNotFound reports whether err means the room or participant does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, game.ErrRoomNotFound) || errors.Is(err, game.ErrParticipantNotFound)
}
