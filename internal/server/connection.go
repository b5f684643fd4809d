package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/pokerrooms/internal/auth"
	"github.com/lox/pokerrooms/internal/game"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	identity  auth.Identity
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, identity auth.Identity, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(server.ctx)

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		identity: identity,
		server:   server,
		logger:   logger.WithPrefix("conn").With("user", identity.Username),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Username returns the authenticated username.
func (c *Connection) Username() string {
	return c.identity.Username
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client without blocking. A client
// whose buffer is full is disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Longest chat message relayed
	maxChatLength = 500

	// Time allowed for one request to the room service
	requestTimeout = 10 * time.Second
)

var ErrConnectionClosed = errors.New("connection closed")

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	if c.server.service == nil {
		c.sendError(msg, "unavailable", "Room service not available")
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	switch msg.Type {
	case MessageTypeCreateRoom:
		c.handleCreateRoom(ctx, msg)
	case MessageTypeJoinRoom:
		c.withRoom(msg, func(req RoomRequest) { c.handleJoinRoom(ctx, msg, req) })
	case MessageTypeWatchRoom:
		c.withRoom(msg, func(req RoomRequest) { c.handleWatchRoom(ctx, msg, req) })
	case MessageTypeLeaveRoom:
		c.withRoom(msg, func(req RoomRequest) { c.handleLeaveRoom(ctx, msg, req) })
	case MessageTypeStartHand:
		c.withRoom(msg, func(req RoomRequest) { c.handleStartHand(ctx, msg, req) })
	case MessageTypeGetRoomState:
		c.withRoom(msg, func(req RoomRequest) { c.handleGetRoomState(ctx, msg, req) })
	case MessageTypeGetActiveRooms:
		c.handleGetActiveRooms(ctx, msg)
	case MessageTypeCheck, MessageTypeCall, MessageTypeFold, MessageTypeAllIn,
		MessageTypePlaceBet, MessageTypeRaise:
		var req AmountRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.RoomID == "" {
			c.sendError(msg, "invalid_message", "Failed to parse "+msg.Type.String()+" data")
			return
		}
		c.handleAction(ctx, msg, req)
	case MessageTypeSendMessage:
		var req ChatRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.RoomID == "" {
			c.sendError(msg, "invalid_message", "Failed to parse chat data")
			return
		}
		c.handleChat(msg, req)
	default:
		c.sendError(msg, "unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) withRoom(msg *Message, fn func(RoomRequest)) {
	var req RoomRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.RoomID == "" {
		c.sendError(msg, "invalid_message", "Failed to parse "+msg.Type.String()+" data")
		return
	}
	fn(req)
}

func (c *Connection) handleCreateRoom(ctx context.Context, msg *Message) {
	s, err := c.server.service.CreateRoom(ctx, c.Username())
	if err != nil {
		c.sendServiceError(msg, err)
		return
	}
	c.logger.Info("Created room", "room", s.ID)
	c.server.registry.Join(s.ID, c)
	c.reply(msg, MessageTypeRoomState, s.ViewFor(c.Username()))
}

func (c *Connection) handleJoinRoom(ctx context.Context, msg *Message, req RoomRequest) {
	// Join the group first so the PlayerJoined delivery reaches this client.
	c.server.registry.Join(req.RoomID, c)
	s, err := c.server.service.JoinRoom(ctx, req.RoomID, c.Username())
	if err != nil {
		c.server.registry.Leave(req.RoomID, c)
		c.sendServiceError(msg, err)
		return
	}
	c.reply(msg, MessageTypeRoomState, s.ViewFor(c.Username()))
}

func (c *Connection) handleWatchRoom(ctx context.Context, msg *Message, req RoomRequest) {
	s, err := c.server.service.GetRoomState(ctx, req.RoomID)
	if err != nil {
		c.sendServiceError(msg, err)
		return
	}
	c.server.registry.Join(req.RoomID, c)
	c.reply(msg, MessageTypeRoomState, s.ViewFor(c.Username()))
}

func (c *Connection) handleLeaveRoom(ctx context.Context, msg *Message, req RoomRequest) {
	_, err := c.server.service.LeaveRoom(ctx, req.RoomID, c.Username())
	c.server.registry.Leave(req.RoomID, c)
	if err != nil && !errors.Is(err, game.ErrParticipantNotFound) {
		c.sendServiceError(msg, err)
		return
	}
	c.reply(msg, MessageTypeAck, AckData{RoomID: req.RoomID})
}

func (c *Connection) handleStartHand(ctx context.Context, msg *Message, req RoomRequest) {
	s, err := c.server.service.GetRoomState(ctx, req.RoomID)
	if err != nil {
		c.sendServiceError(msg, err)
		return
	}
	if s.Creator != c.Username() && !c.identity.IsAdmin() {
		c.sendError(msg, "forbidden", "Only the room creator can start a hand")
		return
	}
	if _, err := c.server.service.StartHand(ctx, req.RoomID); err != nil {
		c.sendServiceError(msg, err)
		return
	}
	c.reply(msg, MessageTypeAck, AckData{RoomID: req.RoomID})
}

func (c *Connection) handleGetRoomState(ctx context.Context, msg *Message, req RoomRequest) {
	s, err := c.server.service.GetRoomState(ctx, req.RoomID)
	if err != nil {
		c.sendServiceError(msg, err)
		return
	}
	c.reply(msg, MessageTypeRoomState, s.ViewFor(c.Username()))
}

func (c *Connection) handleGetActiveRooms(ctx context.Context, msg *Message) {
	recs, err := c.server.service.GetActiveRooms(ctx)
	if err != nil {
		c.sendServiceError(msg, err)
		return
	}
	rooms := make([]RoomSummary, len(recs))
	for i, r := range recs {
		rooms[i] = roomSummary(r)
	}
	c.reply(msg, MessageTypeRoomList, RoomListData{Rooms: rooms})
}

func (c *Connection) handleAction(ctx context.Context, msg *Message, req AmountRequest) {
	svc, user := c.server.service, c.Username()
	var err error
	switch msg.Type {
	case MessageTypeCheck:
		_, err = svc.Check(ctx, req.RoomID, user)
	case MessageTypeCall:
		_, err = svc.Call(ctx, req.RoomID, user)
	case MessageTypeFold:
		_, err = svc.Fold(ctx, req.RoomID, user)
	case MessageTypeAllIn:
		_, err = svc.AllIn(ctx, req.RoomID, user)
	case MessageTypePlaceBet:
		_, err = svc.PlaceBet(ctx, req.RoomID, user, req.Amount)
	case MessageTypeRaise:
		_, err = svc.Raise(ctx, req.RoomID, user, req.Amount)
	}
	if err != nil {
		c.sendServiceError(msg, err)
		return
	}
	c.reply(msg, MessageTypeAck, AckData{RoomID: req.RoomID})
}

func (c *Connection) handleChat(msg *Message, req ChatRequest) {
	text := strings.TrimSpace(req.Text)
	if text == "" || len(text) > maxChatLength {
		c.sendError(msg, "invalid_message", "Chat messages must be 1 to 500 characters")
		return
	}
	if !c.server.registry.InGroup(req.RoomID, c) {
		c.sendError(msg, "invalid_state", "Join or watch the room first")
		return
	}
	out, err := NewMessage(MessageTypeMessageReceived, ChatData{
		RoomID: req.RoomID,
		From:   c.Username(),
		Text:   text,
		SentAt: time.Now(),
	})
	if err != nil {
		c.logger.Error("Failed to create chat message", "error", err)
		return
	}
	for _, member := range c.server.registry.Group(req.RoomID) {
		_ = member.SendMessage(out)
	}
}

func (c *Connection) reply(req *Message, typ MessageType, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", typ, "error", err)
		return
	}
	msg.RequestID = req.RequestID
	_ = c.SendMessage(msg)
}

// sendServiceError maps a service error to a wire code. Internal errors
// are logged and not described to the client.
func (c *Connection) sendServiceError(req *Message, err error) {
	kind := game.KindOf(err)
	switch kind {
	case game.KindInternal:
		c.logger.Error("Request failed", "type", req.Type, "error", err)
		c.sendError(req, kind.String(), "Internal error")
		return
	case game.KindUnavailable:
		c.logger.Warn("Request failed", "type", req.Type, "error", err)
	}
	c.sendError(req, kind.String(), err.Error())
}

// sendError sends an error message to the client
func (c *Connection) sendError(req *Message, code, message string) {
	c.reply(req, MessageTypeError, ErrorData{Code: code, Message: message})
}
