package server

import (
	"encoding/json"
	"time"

	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/store"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type AmountRequest struct {
	RoomID string `json:"roomId"`
	Amount int    `json:"amount"`
}

type ChatRequest struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// Server → Client Messages

type WelcomeData struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AckData struct {
	RoomID string `json:"roomId"`
}

// EventData carries one room delivery. Event names match the room
// package's Event constants, with the Spectator suffix for watchers.
type EventData struct {
	Event  string    `json:"event"`
	RoomID string    `json:"roomId"`
	Actor  string    `json:"actor,omitempty"`
	Amount int       `json:"amount,omitempty"`
	Room   game.View `json:"room"`
}

type RoomSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Creator        string    `json:"creator"`
	Status         string    `json:"status"`
	Players        int       `json:"players"`
	MaxPlayers     int       `json:"maxPlayers"`
	Stakes         string    `json:"stakes"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

type RoomListData struct {
	Rooms []RoomSummary `json:"rooms"`
}

type ChatData struct {
	RoomID string    `json:"roomId"`
	From   string    `json:"from"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

func roomSummary(r store.RoomRecord) RoomSummary {
	return RoomSummary{
		ID:             r.ID,
		Name:           r.Name,
		Creator:        r.Creator,
		Status:         r.Status.String(),
		Players:        r.Players,
		MaxPlayers:     r.MaxSeats,
		Stakes:         stakes(r.SmallBlind, r.BigBlind),
		LastActivityAt: r.LastActivityAt,
	}
}
