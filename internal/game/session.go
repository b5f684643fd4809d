package game

import (
	"fmt"
	"time"

	"github.com/lox/pokerrooms/internal/deck"
)

// Status is the lifecycle state of a room.
type Status int

const (
	Waiting Status = iota
	Playing
	Finished
)

var statusNames = [...]string{"Waiting", "Playing", "Finished"}

func (s Status) String() string {
	if s < Waiting || s > Finished {
		return "Unknown"
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) {
	if s < Waiting || s > Finished {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus parses the String form of a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// Options are the table limits fixed when a room is created.
type Options struct {
	MinSeats      int
	MaxSeats      int
	SmallBlind    int
	BigBlind      int
	StartingChips int
}

// DefaultOptions returns a nine-seat 10/20 table with 1000 chip stacks.
func DefaultOptions() Options {
	return Options{
		MinSeats:      2,
		MaxSeats:      9,
		SmallBlind:    10,
		BigBlind:      20,
		StartingChips: 1000,
	}
}

// Session is the authoritative state of one room.
type Session struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Creator        string         `json:"creator"`
	Status         Status         `json:"status"`
	Pot            int            `json:"pot"`
	MinSeats       int            `json:"minSeats"`
	MaxSeats       int            `json:"maxSeats"`
	StartingChips  int            `json:"startingChips"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
	Participants   []*Participant `json:"participants"`
	Round          RoundState     `json:"round"`
	Deck           *deck.Deck     `json:"deck,omitempty"`
}

// NewSession returns an empty room in the Waiting state.
func NewSession(id, name, creator string, opts Options, now time.Time) *Session {
	return &Session{
		ID:             id,
		Name:           name,
		Creator:        creator,
		Status:         Waiting,
		MinSeats:       opts.MinSeats,
		MaxSeats:       opts.MaxSeats,
		StartingChips:  opts.StartingChips,
		CreatedAt:      now,
		LastActivityAt: now,
		Round:          NewRoundState(opts.SmallBlind, opts.BigBlind),
	}
}

// Touch records activity.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}

// Participant returns the seated participant and its seat index, or nil and -1.
func (s *Session) Participant(username string) (*Participant, int) {
	for i, p := range s.Participants {
		if p.Username == username {
			return p, i
		}
	}
	return nil, -1
}

// AddPlayer seats p. A participant joining mid-hand sits out until the next deal.
func (s *Session) AddPlayer(p *Participant, now time.Time) error {
	if s.Status == Finished {
		return ErrRoomClosed
	}
	if existing, _ := s.Participant(p.Username); existing != nil {
		return fmt.Errorf("join %s: %w", p.Username, ErrDuplicateUsername)
	}
	if len(s.Participants) >= s.MaxSeats {
		return fmt.Errorf("join %s with %d/%d seats taken: %w", p.Username, len(s.Participants), s.MaxSeats, ErrRoomFull)
	}
	if s.Round.HandActive {
		p.Fold()
	}
	s.Participants = append(s.Participants, p)
	s.Round.Logf(now, "%s joined the room", p.Username)
	s.Touch(now)
	return nil
}

// RemovePlayer unseats username. If a hand is running and only one
// participant is left holding cards, that participant takes the pot and the
// hand ends.
func (s *Session) RemovePlayer(username string, now time.Time) (*Participant, error) {
	p, idx := s.Participant(username)
	if p == nil {
		return nil, fmt.Errorf("leave %s: %w", username, ErrParticipantNotFound)
	}
	s.Participants = append(s.Participants[:idx], s.Participants[idx+1:]...)
	if idx < s.Round.DealerIndex {
		s.Round.DealerIndex--
	}
	if n := len(s.Participants); n > 0 {
		s.Round.DealerIndex %= n
	} else {
		s.Round.DealerIndex = 0
	}
	if s.Round.CurrentTurn == username {
		s.Round.CurrentTurn = ""
	}
	s.Round.Logf(now, "%s left the room", username)
	s.Touch(now)

	if s.Round.HandActive {
		if eligible := s.Eligible(); len(eligible) == 1 {
			s.awardUncontested(eligible[0], now)
		} else if len(eligible) == 0 {
			s.Pot = 0
			s.EndHand(now)
		}
	}
	return p, nil
}

// Eligible returns participants still contesting the pot (not folded).
func (s *Session) Eligible() []*Participant {
	var out []*Participant
	for _, p := range s.Participants {
		if !p.Folded {
			out = append(out, p)
		}
	}
	return out
}

// Actionable returns participants that can still bet (not folded, not all-in).
func (s *Session) Actionable() []*Participant {
	var out []*Participant
	for _, p := range s.Participants {
		if p.CanAct() {
			out = append(out, p)
		}
	}
	return out
}

// NextActivePlayer scans forward from username's seat with wrap-around and
// returns the first participant that can act. The scan ends on username
// itself. It returns nil when nobody can act.
func (s *Session) NextActivePlayer(username string) *Participant {
	n := len(s.Participants)
	if n == 0 {
		return nil
	}
	_, from := s.Participant(username)
	if from < 0 {
		from = n - 1
	}
	for i := 1; i <= n; i++ {
		if p := s.Participants[(from+i)%n]; p.CanAct() {
			return p
		}
	}
	return nil
}

// firstActiveFrom returns the first participant that can act starting at seat
// (inclusive).
func (s *Session) firstActiveFrom(seat int) *Participant {
	n := len(s.Participants)
	for i := 0; i < n; i++ {
		if p := s.Participants[(seat+i)%n]; p.CanAct() {
			return p
		}
	}
	return nil
}

// smallBlindSeat returns the seat that posted this hand's small blind. If
// that participant has left, the seat after the dealer stands in; if the
// dealer has left too, DealerIndex already points at the seat after them.
func (s *Session) smallBlindSeat() int {
	n := len(s.Participants)
	if n == 0 {
		return 0
	}
	dealer := -1
	for i, p := range s.Participants {
		if p.SmallBlind {
			return i
		}
		if p.Dealer {
			dealer = i
		}
	}
	if dealer < 0 {
		return s.Round.DealerIndex % n
	}
	return (dealer + 1) % n
}

// IsBettingRoundComplete reports whether the current street is settled: no
// participant can act, the only one who can has matched the bet, or every
// participant who can act has acted and matched the bet.
//
// Matching contributions alone is not enough: a street where everyone has
// checked at zero would otherwise close before anyone acts, so Acted is
// required as well and a raise clears it for the others.
func (s *Session) IsBettingRoundComplete() bool {
	actionable := s.Actionable()
	switch len(actionable) {
	case 0:
		return true
	case 1:
		return actionable[0].CurrentBet >= s.Round.CurrentBet
	}
	for _, p := range actionable {
		if p.CurrentBet != s.Round.CurrentBet || !p.Acted {
			return false
		}
	}
	return true
}

// IsReadyToStart reports whether a hand may be dealt.
func (s *Session) IsReadyToStart() bool {
	return s.Status == Waiting && len(s.Participants) >= max(s.MinSeats, 2)
}

// StartNewBettingRound resets street contributions and the bet level.
func (s *Session) StartNewBettingRound() {
	for _, p := range s.Participants {
		p.ResetForNewBettingRound()
	}
	s.Round.ResetForNewBettingRound()
}

// EndHand returns the room to Waiting, moves the dealer button and unseats
// participants with no chips left.
func (s *Session) EndHand(now time.Time) {
	s.Status = Waiting
	s.Round.HandActive = false
	s.Round.CurrentTurn = ""
	s.Deck = nil
	if n := len(s.Participants); n > 0 {
		s.Round.DealerIndex = (s.Round.DealerIndex + 1) % n
	}
	dealer := s.Round.DealerIndex
	kept := s.Participants[:0]
	for i, p := range s.Participants {
		if p.Chips > 0 {
			kept = append(kept, p)
			continue
		}
		if i < dealer {
			s.Round.DealerIndex--
		}
		s.Round.Logf(now, "%s is out of chips", p.Username)
	}
	s.Participants = kept
	if n := len(s.Participants); n > 0 {
		s.Round.DealerIndex %= n
	} else {
		s.Round.DealerIndex = 0
	}
	s.Touch(now)
}

func (s *Session) awardUncontested(winner *Participant, now time.Time) {
	amount := s.Pot
	winner.Win(amount)
	s.Pot = 0
	s.Round.Logf(now, "%s wins %d chips", winner.Username, amount)
	s.Round.LastResult = &HandResult{
		HandNumber: s.Round.HandNumber,
		Awards:     []Award{{Username: winner.Username, Amount: amount}},
	}
	s.EndHand(now)
}

func (s *Session) seatOf(username string) int {
	_, i := s.Participant(username)
	return i
}
