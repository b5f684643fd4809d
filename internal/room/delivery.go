package room

import (
	"context"

	"github.com/lox/pokerrooms/internal/game"
)

// Event names carried by deliveries. Spectator deliveries append
// SpectatorSuffix.
const (
	EventRoomCreated   = "RoomCreated"
	EventPlayerJoined  = "PlayerJoined"
	EventPlayerLeft    = "PlayerLeft"
	EventHandStarted   = "HandStarted"
	EventBetPlaced     = "BetPlaced"
	EventPlayerChecked = "PlayerChecked"
	EventPlayerCalled  = "PlayerCalled"
	EventPlayerRaised  = "PlayerRaised"
	EventPlayerFolded  = "PlayerFolded"
	EventPlayerAllIn   = "PlayerAllIn"
	EventHandEnded     = "HandEnded"
	EventRoomClosed    = "RoomClosed"

	SpectatorSuffix = "Spectator"
)

// Delivery is one message for one audience: a seated participant, or every
// spectator of the room when Spectator is set.
type Delivery struct {
	RoomID    string    `json:"roomId"`
	Event     string    `json:"event"`
	Recipient string    `json:"recipient,omitempty"`
	Spectator bool      `json:"spectator,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	View      game.View `json:"room"`
}

// Broadcaster fans deliveries out to connected clients. Implementations must
// not block on slow clients.
type Broadcaster interface {
	Deliver(ctx context.Context, deliveries []Delivery) error
}

// Broadcasters delivers to each broadcaster in turn, returning the first error.
type Broadcasters []Broadcaster

func (bs Broadcasters) Deliver(ctx context.Context, deliveries []Delivery) error {
	var first error
	for _, b := range bs {
		if err := b.Deliver(ctx, deliveries); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopBroadcaster struct{}

func (nopBroadcaster) Deliver(context.Context, []Delivery) error { return nil }

// change describes what a mutation did, for building deliveries.
type change struct {
	events []string
	actor  string
	amount int
}

// deliveriesFor builds one delivery per seated participant, showing only
// their own hole cards, plus one spectator delivery, for every event.
func deliveriesFor(s *game.Session, c change) []Delivery {
	out := make([]Delivery, 0, len(c.events)*(len(s.Participants)+1))
	spectator := s.SpectatorView()
	for _, ev := range c.events {
		for _, p := range s.Participants {
			out = append(out, Delivery{
				RoomID:    s.ID,
				Event:     ev,
				Recipient: p.Username,
				Actor:     c.actor,
				Amount:    c.amount,
				View:      s.ViewFor(p.Username),
			})
		}
		out = append(out, Delivery{
			RoomID:    s.ID,
			Event:     ev + SpectatorSuffix,
			Spectator: true,
			Actor:     c.actor,
			Amount:    c.amount,
			View:      spectator,
		})
	}
	return out
}

func actionEvent(k game.ActionKind) string {
	switch k {
	case game.ActionCheck:
		return EventPlayerChecked
	case game.ActionCall:
		return EventPlayerCalled
	case game.ActionRaise:
		return EventPlayerRaised
	case game.ActionAllIn:
		return EventPlayerAllIn
	case game.ActionFold:
		return EventPlayerFolded
	}
	return EventBetPlaced
}
