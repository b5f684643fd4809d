package game

import (
	"fmt"
	"time"

	"github.com/lox/pokerrooms/internal/deck"
)

// Phase is the street of a hand.
type Phase int

const (
	PreFlop Phase = iota
	Flop
	Turn
	River
	Showdown
)

var phaseNames = [...]string{"PreFlop", "Flop", "Turn", "River", "Showdown"}

func (p Phase) String() string {
	if p < PreFlop || p > Showdown {
		return "Unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < PreFlop || p > Showdown {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// maxActionLog bounds the log carried in every snapshot.
const maxActionLog = 100

// ActionEntry is one line of the human readable action log.
type ActionEntry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Award records chips paid to one participant when a hand ends.
type Award struct {
	Username string `json:"username"`
	Amount   int    `json:"amount"`
	Hand     string `json:"hand,omitempty"`
}

// HandResult summarises the last completed hand.
type HandResult struct {
	HandNumber int         `json:"handNumber"`
	Showdown   bool        `json:"showdown"`
	Board      []deck.Card `json:"board,omitempty"`
	Awards     []Award     `json:"awards"`
}

// RoundState is the per-hand betting state of a Session.
type RoundState struct {
	Phase          Phase         `json:"phase"`
	CommunityCards []deck.Card   `json:"communityCards"`
	CurrentBet     int           `json:"currentBet"`
	MinRaise       int           `json:"minRaise"`
	DealerIndex    int           `json:"dealerIndex"`
	SmallBlind     int           `json:"smallBlind"`
	BigBlind       int           `json:"bigBlind"`
	CurrentTurn    string        `json:"currentTurn,omitempty"`
	HandActive     bool          `json:"handActive"`
	HandNumber     int           `json:"handNumber"`
	LastActionAt   time.Time     `json:"lastActionAt"`
	ActionLog      []ActionEntry `json:"actionLog"`
	LastResult     *HandResult   `json:"lastResult,omitempty"`
}

// NewRoundState returns an idle round with the given blinds.
func NewRoundState(smallBlind, bigBlind int) RoundState {
	return RoundState{
		Phase:      PreFlop,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		MinRaise:   bigBlind,
	}
}

// UpdateCurrentBet raises the level to match when amount exceeds it. The
// minimum raise becomes amount plus the size of the increase.
func (r *RoundState) UpdateCurrentBet(amount int) {
	if amount <= r.CurrentBet {
		return
	}
	r.MinRaise = amount + (amount - r.CurrentBet)
	r.CurrentBet = amount
}

// NextPhase moves to the following street. Showdown is terminal.
func (r *RoundState) NextPhase() {
	if r.Phase < Showdown {
		r.Phase++
	}
}

// ResetForNewHand prepares the round for the next deal.
func (r *RoundState) ResetForNewHand(now time.Time) {
	r.Phase = PreFlop
	r.CommunityCards = nil
	r.ActionLog = nil
	r.CurrentBet = 0
	r.MinRaise = r.BigBlind
	r.CurrentTurn = ""
	r.HandActive = true
	r.HandNumber++
	r.LastResult = nil
	r.LastActionAt = now
}

// ResetForNewBettingRound clears the bet level at the start of a street.
func (r *RoundState) ResetForNewBettingRound() {
	r.CurrentBet = 0
	r.MinRaise = r.BigBlind
}

// SetTurn hands the action to username; an empty name means nobody can act.
func (r *RoundState) SetTurn(username string, now time.Time) {
	r.CurrentTurn = username
	r.LastActionAt = now
}

// Logf appends a timestamped entry, discarding the oldest past maxActionLog.
func (r *RoundState) Logf(now time.Time, format string, args ...any) {
	r.ActionLog = append(r.ActionLog, ActionEntry{At: now, Text: fmt.Sprintf(format, args...)})
	if n := len(r.ActionLog); n > maxActionLog {
		r.ActionLog = append(r.ActionLog[:0:0], r.ActionLog[n-maxActionLog:]...)
	}
}
