// Package server is the websocket transport: it authenticates connections,
// routes client messages to the room service and pushes room deliveries to
// the right connections.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/pokerrooms/internal/auth"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/room"
	"github.com/lox/pokerrooms/internal/store"
)

// RoomService is the orchestrator surface the transport drives.
type RoomService interface {
	CreateRoom(ctx context.Context, username string) (*game.Session, error)
	JoinRoom(ctx context.Context, roomID, username string) (*game.Session, error)
	LeaveRoom(ctx context.Context, roomID, username string) (*game.Session, error)
	StartHand(ctx context.Context, roomID string) (*game.Session, error)
	PlaceBet(ctx context.Context, roomID, username string, amount int) (*game.Session, error)
	Check(ctx context.Context, roomID, username string) (*game.Session, error)
	Call(ctx context.Context, roomID, username string) (*game.Session, error)
	Raise(ctx context.Context, roomID, username string, amount int) (*game.Session, error)
	Fold(ctx context.Context, roomID, username string) (*game.Session, error)
	AllIn(ctx context.Context, roomID, username string) (*game.Session, error)
	GetRoomState(ctx context.Context, roomID string) (*game.Session, error)
	GetActiveRooms(ctx context.Context) ([]store.RoomRecord, error)
}

// Server represents the WebSocket server
type Server struct {
	upgrader  websocket.Upgrader
	registry  *Registry
	service   RoomService
	validator auth.Validator
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry shares a connection registry.
func WithRegistry(r *Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithAllowedOrigins restricts websocket upgrades to the given origins. With
// no origins every origin is accepted.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) == 0 {
			return
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(origins, r.Header.Get("Origin"))
		}
	}
}

// NewServer creates a new WebSocket server
func NewServer(validator auth.Validator, logger *log.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		registry:  NewRegistry(),
		validator: validator,
		logger:    logger.WithPrefix("server"),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetService sets the room service. The service needs the server as its
// broadcaster, so the two are wired after construction.
func (s *Server) SetService(svc RoomService) {
	s.service = svc
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every connection.
func (s *Server) Stop() {
	s.cancel()
	for _, c := range s.registry.all() {
		_ = c.Close()
	}
}

// handleWebSocket authenticates the request and upgrades it
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := s.validator.Validate(r.Context(), auth.TokenFromRequest(r))
	switch {
	case errors.Is(err, auth.ErrUnavailable):
		s.logger.Warn("Auth service unavailable", "error", err)
		http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
		return
	case err != nil:
		s.logger.Debug("Rejected connection", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, identity, s, s.logger)
	s.registry.Add(client)
	s.logger.Info("Client connected", "user", identity.Username, "total", s.registry.Connected())
	client.Start()

	welcome, _ := NewMessage(MessageTypeWelcome, WelcomeData{Username: identity.Username, Role: identity.Role})
	_ = client.SendMessage(welcome)

	go func() {
		<-client.ctx.Done()
		s.disconnect(client)
	}()
}

// disconnect unregisters the connection and leaves every room the user no
// longer has a connection in.
func (s *Server) disconnect(c *Connection) {
	rooms := s.registry.Remove(c)
	s.logger.Info("Client disconnected", "user", c.Username(), "total", s.registry.Connected())
	// Seats outlive a server shutdown; the snapshot stays in the cache.
	if s.service == nil || s.ctx.Err() != nil {
		return
	}
	for _, id := range rooms {
		if len(s.registry.Members(id, c.Username())) > 0 {
			continue
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 10*time.Second)
		_, err := s.service.LeaveRoom(ctx, id, c.Username())
		cancel()
		if err != nil && game.KindOf(err) != game.KindNotFound && !errors.Is(err, game.ErrRoomClosed) {
			s.logger.Warn("Failed to leave room on disconnect", "room", id, "user", c.Username(), "error", err)
		}
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// Deliver implements room.Broadcaster. Participant deliveries go to that
// user's connections in the room group; spectator deliveries go to every
// other connection in the group.
func (s *Server) Deliver(_ context.Context, deliveries []room.Delivery) error {
	sent := 0
	for _, d := range deliveries {
		msg, err := NewMessage(MessageTypeEvent, EventData{
			Event:  d.Event,
			RoomID: d.RoomID,
			Actor:  d.Actor,
			Amount: d.Amount,
			Room:   d.View,
		})
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.Event, err)
		}

		var targets []*Connection
		if d.Spectator {
			for _, c := range s.registry.Group(d.RoomID) {
				if !seated(d.View, c.Username()) {
					targets = append(targets, c)
				}
			}
		} else {
			targets = s.registry.Members(d.RoomID, d.Recipient)
		}
		for _, c := range targets {
			if err := c.SendMessage(msg); err != nil {
				s.logger.Debug("Dropped delivery", "user", c.Username(), "event", d.Event, "error", err)
				continue
			}
			sent++
		}
	}
	s.logger.Debug("Delivered", "deliveries", len(deliveries), "sent", sent)
	return nil
}

func seated(v game.View, username string) bool {
	for _, p := range v.Participants {
		if p.Username == username {
			return true
		}
	}
	return false
}
