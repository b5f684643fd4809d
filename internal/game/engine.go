package game

import (
	"fmt"
	rand "math/rand/v2"
	"slices"
	"strings"

	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/internal/deck"
	"github.com/lox/pokerrooms/internal/evaluator"
)

// ActionKind is a betting decision.
type ActionKind int

const (
	ActionBet ActionKind = iota
	ActionCheck
	ActionCall
	ActionRaise
	ActionAllIn
	ActionFold
)

func (a ActionKind) String() string {
	return [...]string{"bet", "check", "call", "raise", "allin", "fold"}[a]
}

// Action is a request from username to make a decision. Amount is the number
// of chips to add for ActionBet and ActionRaise and is ignored otherwise.
type Action struct {
	Kind     ActionKind
	Username string
	Amount   int
}

// Outcome describes what an accepted action did.
type Outcome struct {
	// Kind is the action as resolved, e.g. a call that emptied the stack
	// resolves to ActionAllIn.
	Kind          ActionKind
	Username      string
	Amount        int
	PhaseAdvanced bool
	HandEnded     bool
}

// Engine applies Texas Hold'em rules to a Session.
type Engine struct {
	clock quartz.Clock
	rng   *rand.Rand
}

// NewEngine returns an engine dealing from rng. rng must be safe for
// concurrent use when the engine serves several rooms (see randutil.New).
func NewEngine(clock quartz.Clock, rng *rand.Rand) *Engine {
	return &Engine{clock: clock, rng: rng}
}

func blindSeats(n, dealer int) (sb, bb int) {
	if n == 2 {
		return dealer, (dealer + 1) % n
	}
	return (dealer + 1) % n, (dealer + 2) % n
}

// StartHand deals a new hand: blinds, hole cards and the first turn.
func (e *Engine) StartHand(s *Session) error {
	now := e.clock.Now()
	switch {
	case s.Status == Finished:
		return ErrRoomClosed
	case s.Round.HandActive:
		return ErrHandInProgress
	case len(s.Participants) < 2:
		return fmt.Errorf("start hand with %d seated: %w", len(s.Participants), ErrNotEnoughPlayers)
	}

	d := deck.New(e.rng)
	d.Shuffle()
	hands := make([][]deck.Card, len(s.Participants))
	for i := range s.Participants {
		cards, err := d.DealHoleCards(2)
		if err != nil {
			return fmt.Errorf("start hand: %w", err)
		}
		hands[i] = cards
	}

	n := len(s.Participants)
	s.Status = Playing
	s.Pot = 0
	s.Deck = d
	s.Round.ResetForNewHand(now)
	s.Round.DealerIndex %= n
	for i, p := range s.Participants {
		p.ResetForNewHand()
		p.Hand = hands[i]
	}

	dealer := s.Round.DealerIndex
	sbSeat, bbSeat := blindSeats(n, dealer)
	s.Participants[dealer].Dealer = true
	sb, bb := s.Participants[sbSeat], s.Participants[bbSeat]
	sb.SmallBlind = true
	bb.BigBlind = true
	s.Round.Logf(now, "Hand #%d started, %s has the button", s.Round.HandNumber, s.Participants[dealer].Username)

	sbPosted, _ := sb.PlaceBet(s.Round.SmallBlind)
	s.Pot += sbPosted
	s.Round.Logf(now, "%s posts small blind %d", sb.Username, sbPosted)
	bbPosted, _ := bb.PlaceBet(s.Round.BigBlind)
	s.Pot += bbPosted
	s.Round.Logf(now, "%s posts big blind %d", bb.Username, bbPosted)
	s.Round.UpdateCurrentBet(max(sbPosted, bbPosted))

	next := ""
	if p := s.NextActivePlayer(bb.Username); p != nil {
		next = p.Username
	}
	s.Round.SetTurn(next, now)
	s.Touch(now)

	if s.IsBettingRoundComplete() {
		return e.AdvancePhase(s)
	}
	return nil
}

// AdvancePhase deals the next street, or resolves the hand after the river.
// Streets with fewer than two participants able to bet are dealt straight
// through to showdown.
func (e *Engine) AdvancePhase(s *Session) error {
	if !s.Round.HandActive {
		return ErrHandNotActive
	}
	now := e.clock.Now()
	for {
		var count int
		switch s.Round.Phase {
		case PreFlop:
			count = 3
		case Flop, Turn:
			count = 1
		case River, Showdown:
			return e.showdown(s)
		}
		if s.Deck == nil {
			return fmt.Errorf("advance from %s: %w", s.Round.Phase, deck.ErrInsufficientCards)
		}
		cards, err := s.Deck.DealCommunityCards(count)
		if err != nil {
			return fmt.Errorf("advance from %s: %w", s.Round.Phase, err)
		}
		s.Round.NextPhase()
		s.Round.CommunityCards = append(s.Round.CommunityCards, cards...)
		s.StartNewBettingRound()
		s.Round.Logf(now, "%s dealt: %s", s.Round.Phase, cardText(cards))

		next := ""
		if p := s.firstActiveFrom(s.smallBlindSeat()); p != nil {
			next = p.Username
		}
		s.Round.SetTurn(next, now)
		s.Touch(now)

		if !s.IsBettingRoundComplete() {
			return nil
		}
	}
}

// showdown pays the pot to the best hand(s) among participants that have not
// folded and ends the hand.
func (e *Engine) showdown(s *Session) error {
	now := e.clock.Now()
	s.Round.Phase = Showdown
	s.Round.CurrentTurn = ""

	eligible := s.Eligible()
	if len(eligible) == 1 {
		s.awardUncontested(eligible[0], now)
		return nil
	}
	if len(eligible) == 0 {
		s.Pot = 0
		s.EndHand(now)
		return nil
	}

	type scored struct {
		p    *Participant
		rank evaluator.HandRank
	}
	var winners []scored
	for _, p := range eligible {
		cards := append(slices.Clone(p.Hand), s.Round.CommunityCards...)
		rank, err := evaluator.Best(cards)
		if err != nil {
			return fmt.Errorf("showdown for %s: %w", p.Username, err)
		}
		s.Round.Logf(now, "%s shows %s (%s)", p.Username, cardText(p.Hand), rank.Describe())
		switch {
		case len(winners) == 0 || rank.Beats(winners[0].rank):
			winners = []scored{{p, rank}}
		case rank.Compare(winners[0].rank) == 0:
			winners = append(winners, scored{p, rank})
		}
	}

	// Odd chips go one at a time to winners in seat order left of the button.
	n := len(s.Participants)
	dealer := s.Round.DealerIndex % n
	distance := func(p *Participant) int {
		return (s.seatOf(p.Username) - dealer - 1 + n) % n
	}
	slices.SortFunc(winners, func(a, b scored) int { return distance(a.p) - distance(b.p) })

	pot := s.Pot
	share, remainder := pot/len(winners), pot%len(winners)
	result := &HandResult{HandNumber: s.Round.HandNumber, Showdown: true, Board: slices.Clone(s.Round.CommunityCards)}
	names := make([]string, 0, len(winners))
	for i, w := range winners {
		amount := share
		if i < remainder {
			amount++
		}
		w.p.Win(amount)
		result.Awards = append(result.Awards, Award{Username: w.p.Username, Amount: amount, Hand: w.rank.String()})
		names = append(names, w.p.Username)
	}
	s.Pot = 0
	if len(winners) == 1 {
		s.Round.Logf(now, "%s wins %d chips with %s", winners[0].p.Username, pot, winners[0].rank.Describe())
	} else {
		s.Round.Logf(now, "Split pot: %s share %d chips with %s", strings.Join(names, ", "), pot, winners[0].rank.Describe())
	}
	s.Round.LastResult = result
	s.EndHand(now)
	return nil
}

// Apply validates and applies a betting decision for the participant whose
// turn it is.
func (e *Engine) Apply(s *Session, a Action) (Outcome, error) {
	if !s.Round.HandActive {
		return Outcome{}, ErrHandNotActive
	}
	p, _ := s.Participant(a.Username)
	if p == nil {
		return Outcome{}, fmt.Errorf("%s by %s: %w", a.Kind, a.Username, ErrParticipantNotFound)
	}
	if s.Round.CurrentTurn != a.Username {
		return Outcome{}, fmt.Errorf("%s by %s: %w", a.Kind, a.Username, ErrNotYourTurn)
	}
	if !p.CanAct() {
		return Outcome{}, fmt.Errorf("%s by %s: %w", a.Kind, a.Username, ErrCannotAct)
	}

	if a.Kind == ActionFold {
		return e.fold(s, p)
	}

	toCall := s.Round.CurrentBet - p.CurrentBet
	amount := a.Amount
	switch a.Kind {
	case ActionCheck:
		amount = 0
	case ActionCall:
		amount = toCall
	case ActionAllIn:
		amount = p.Chips
	case ActionRaise:
		if amount < s.Round.MinRaise {
			return Outcome{}, fmt.Errorf("raise %d below minimum %d: %w", amount, s.Round.MinRaise, ErrRaiseTooSmall)
		}
	}
	return e.bet(s, p, a.Kind, amount, toCall)
}

func (e *Engine) bet(s *Session, p *Participant, kind ActionKind, amount, toCall int) (Outcome, error) {
	if amount < 0 {
		return Outcome{}, fmt.Errorf("%s %d: %w", kind, amount, ErrInvalidAmount)
	}
	allIn := amount >= p.Chips
	if amount < toCall && !allIn {
		return Outcome{}, fmt.Errorf("%s %d with %d to call: %w", kind, amount, toCall, ErrInvalidAmount)
	}

	now := e.clock.Now()
	prevBet := s.Round.CurrentBet
	contributed, err := p.PlaceBet(amount)
	if err != nil {
		return Outcome{}, err
	}
	s.Pot += contributed
	s.Round.UpdateCurrentBet(p.CurrentBet)
	p.Acted = true
	if s.Round.CurrentBet > prevBet {
		for _, other := range s.Participants {
			if other != p && other.CanAct() {
				other.Acted = false
			}
		}
	}

	resolved := kind
	switch {
	case p.AllIn:
		resolved = ActionAllIn
		s.Round.Logf(now, "%s goes all-in with %d", p.Username, contributed)
	case contributed == 0:
		resolved = ActionCheck
		s.Round.Logf(now, "%s checks", p.Username)
	case contributed == toCall:
		resolved = ActionCall
		s.Round.Logf(now, "%s calls %d", p.Username, contributed)
	case prevBet == 0:
		s.Round.Logf(now, "%s bets %d", p.Username, contributed)
	default:
		s.Round.Logf(now, "%s raises to %d", p.Username, p.CurrentBet)
	}
	if kind == ActionBet && resolved != ActionAllIn {
		resolved = ActionBet
	}

	out := Outcome{Kind: resolved, Username: p.Username, Amount: contributed}
	return out, e.afterAction(s, p, &out)
}

func (e *Engine) fold(s *Session, p *Participant) (Outcome, error) {
	p.Fold()
	s.Round.Logf(e.clock.Now(), "%s folds", p.Username)
	out := Outcome{Kind: ActionFold, Username: p.Username}
	return out, e.afterAction(s, p, &out)
}

// afterAction ends the hand, closes the street or passes the turn.
func (e *Engine) afterAction(s *Session, actor *Participant, out *Outcome) error {
	now := e.clock.Now()
	s.Touch(now)
	hand := s.Round.HandNumber
	phase := s.Round.Phase

	if eligible := s.Eligible(); len(eligible) == 1 {
		s.awardUncontested(eligible[0], now)
	} else if s.IsBettingRoundComplete() {
		if err := e.AdvancePhase(s); err != nil {
			return err
		}
	} else {
		next := ""
		if p := s.NextActivePlayer(actor.Username); p != nil {
			next = p.Username
		}
		s.Round.SetTurn(next, now)
	}

	out.HandEnded = !s.Round.HandActive && s.Round.HandNumber == hand
	out.PhaseAdvanced = out.HandEnded || s.Round.Phase != phase
	return nil
}

// Leave unseats username, keeping the hand in progress consistent: the turn
// moves on if the leaver held it and a street the leaver was blocking closes.
func (e *Engine) Leave(s *Session, username string) (Outcome, error) {
	now := e.clock.Now()
	hadTurn := s.Round.HandActive && s.Round.CurrentTurn == username
	var next string
	if hadTurn {
		if p := s.NextActivePlayer(username); p != nil && p.Username != username {
			next = p.Username
		}
	}
	hand := s.Round.HandNumber
	wasActive := s.Round.HandActive
	phase := s.Round.Phase

	if _, err := s.RemovePlayer(username, now); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Kind: ActionFold, Username: username}
	if s.Round.HandActive {
		if s.IsBettingRoundComplete() {
			if err := e.AdvancePhase(s); err != nil {
				return out, err
			}
		} else if hadTurn {
			s.Round.SetTurn(next, now)
		}
	}
	out.HandEnded = wasActive && !s.Round.HandActive && s.Round.HandNumber == hand
	out.PhaseAdvanced = out.HandEnded || (wasActive && s.Round.Phase != phase)
	return out, nil
}

func cardText(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
