package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewHidesOtherHands(t *testing.T) {
	e, _ := newTestEngine(t)
	s := seatPlayers(t, "a", "b", "c")
	require.NoError(t, e.StartHand(s))

	v := s.ViewFor("b")
	assert.True(t, v.Seated)
	for _, p := range v.Participants {
		assert.True(t, p.HasCards)
		if p.Username == "b" {
			assert.Equal(t, player(t, s, "b").Hand, p.Hand)
		} else {
			assert.Nil(t, p.Hand, "%s cards leaked to b", p.Username)
		}
	}
	assert.Equal(t, "a", v.CurrentTurn)
}

func TestSpectatorViewHidesAllHands(t *testing.T) {
	e, _ := newTestEngine(t)
	s := seatPlayers(t, "a", "b")
	require.NoError(t, e.StartHand(s))

	for _, v := range []View{s.SpectatorView(), s.ViewFor("outsider")} {
		assert.False(t, v.Seated)
		for _, p := range v.Participants {
			assert.Nil(t, p.Hand)
		}
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), `"deck"`)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(ErrRoomNotFound))
	assert.Equal(t, KindUnavailable, KindOf(Unavailable("load room", assert.AnError)))
	assert.ErrorIs(t, Unavailable("load room", assert.AnError), assert.AnError)
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, "load room: "+assert.AnError.Error(), Unavailable("load room", assert.AnError).Error())
}
