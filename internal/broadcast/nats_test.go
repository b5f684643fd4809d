package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/pokerrooms/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	fail string
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if subject == f.fail {
		return errors.New("nats: connection closed")
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name string
		d    room.Delivery
		want string
	}{
		{"player", room.Delivery{RoomID: "r1", Recipient: "alice"}, "pokerrooms.room.r1.user.alice"},
		{"spectators", room.Delivery{RoomID: "r1", Spectator: true}, "pokerrooms.room.r1.spectators"},
		{"escaped", room.Delivery{RoomID: "r1", Recipient: "a.b*c>d e"}, "pokerrooms.room.r1.user.a_b_c_d_e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(DefaultPrefix, tt.d))
		})
	}
}

func TestDeliver(t *testing.T) {
	pub := &fakePublisher{fail: "rooms.room.r1.spectators"}
	b := NewNATS(pub, "rooms", log.NewWithOptions(io.Discard, log.Options{}))

	err := b.Deliver(context.Background(), []room.Delivery{
		{RoomID: "r1", Event: room.EventPlayerJoined, Recipient: "alice", Actor: "bob"},
		{RoomID: "r1", Event: room.EventPlayerJoined + room.SpectatorSuffix, Spectator: true},
		{RoomID: "r1", Event: room.EventPlayerJoined, Recipient: "bob", Actor: "bob"},
	})
	require.Error(t, err, "failed publish is reported")
	assert.Contains(t, err.Error(), "rooms.room.r1.spectators")

	require.Len(t, pub.msgs, 2, "other deliveries still go out")
	assert.Equal(t, "rooms.room.r1.user.alice", pub.msgs[0].subject)
	var got room.Delivery
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, room.EventPlayerJoined, got.Event)
	assert.Equal(t, "bob", got.Actor)
}
