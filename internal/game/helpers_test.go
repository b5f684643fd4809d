package game

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/internal/randutil"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *quartz.Mock) {
	t.Helper()
	clk := quartz.NewMock(t)
	return NewEngine(clk, randutil.New(1)), clk
}

func seatPlayers(t *testing.T, names ...string) *Session {
	t.Helper()
	s := NewSession("room-1", "Room by "+names[0], names[0], DefaultOptions(), testEpoch)
	for _, n := range names {
		require.NoError(t, s.AddPlayer(NewParticipant(n, 1000, testEpoch), testEpoch))
	}
	return s
}

func player(t *testing.T, s *Session, name string) *Participant {
	t.Helper()
	p, _ := s.Participant(name)
	require.NotNil(t, p, "participant %s", name)
	return p
}

// act applies kind for whoever holds the turn and checks it was expected.
func act(t *testing.T, e *Engine, s *Session, who string, kind ActionKind, amount int) Outcome {
	t.Helper()
	require.Equal(t, who, s.Round.CurrentTurn, "turn before %s", kind)
	out, err := e.Apply(s, Action{Kind: kind, Username: who, Amount: amount})
	require.NoError(t, err)
	return out
}

func totalChips(s *Session) int {
	sum := s.Pot
	for _, p := range s.Participants {
		sum += p.Chips
	}
	return sum
}

func totalContributed(s *Session) int {
	sum := 0
	for _, p := range s.Participants {
		sum += p.TotalBet
	}
	return sum
}
