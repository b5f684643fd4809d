package game

import (
	"slices"
	"time"

	"github.com/lox/pokerrooms/internal/deck"
)

// viewLogTail is how many action log entries a view carries.
const viewLogTail = 20

// ParticipantView is a participant as seen by one recipient. Hand is nil
// unless the recipient is this participant; HasCards still tells others
// whether cards are held.
type ParticipantView struct {
	Username   string      `json:"username"`
	Chips      int         `json:"chips"`
	Hand       []deck.Card `json:"hand"`
	HasCards   bool        `json:"hasCards"`
	CurrentBet int         `json:"currentBet"`
	TotalBet   int         `json:"totalBet"`
	Folded     bool        `json:"folded"`
	AllIn      bool        `json:"allIn"`
	Dealer     bool        `json:"dealer"`
	SmallBlind bool        `json:"smallBlind"`
	BigBlind   bool        `json:"bigBlind"`
	IsTurn     bool        `json:"isTurn"`
}

// View is the visibility-filtered projection of a Session sent to clients.
// It never includes the deck.
type View struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Creator        string            `json:"creator"`
	Status         Status            `json:"status"`
	Pot            int               `json:"pot"`
	MinSeats       int               `json:"minSeats"`
	MaxSeats       int               `json:"maxSeats"`
	LastActivityAt time.Time         `json:"lastActivityAt"`
	Participants   []ParticipantView `json:"participants"`
	Phase          Phase             `json:"phase"`
	CommunityCards []deck.Card       `json:"communityCards"`
	CurrentBet     int               `json:"currentBet"`
	MinRaise       int               `json:"minRaise"`
	SmallBlind     int               `json:"smallBlind"`
	BigBlind       int               `json:"bigBlind"`
	CurrentTurn    string            `json:"currentTurn,omitempty"`
	HandActive     bool              `json:"handActive"`
	HandNumber     int               `json:"handNumber"`
	ActionLog      []ActionEntry     `json:"actionLog"`
	LastResult     *HandResult       `json:"lastResult,omitempty"`
	// Viewer is the recipient; empty for spectators.
	Viewer string `json:"viewer,omitempty"`
	// Seated is true when Viewer holds a seat.
	Seated bool `json:"seated"`
}

// ViewFor projects s for viewer. Only the viewer's own hole cards are shown;
// an unseated viewer (spectator) sees none.
func (s *Session) ViewFor(viewer string) View {
	v := View{
		ID:             s.ID,
		Name:           s.Name,
		Creator:        s.Creator,
		Status:         s.Status,
		Pot:            s.Pot,
		MinSeats:       s.MinSeats,
		MaxSeats:       s.MaxSeats,
		LastActivityAt: s.LastActivityAt,
		Phase:          s.Round.Phase,
		CommunityCards: slices.Clone(s.Round.CommunityCards),
		CurrentBet:     s.Round.CurrentBet,
		MinRaise:       s.Round.MinRaise,
		SmallBlind:     s.Round.SmallBlind,
		BigBlind:       s.Round.BigBlind,
		CurrentTurn:    s.Round.CurrentTurn,
		HandActive:     s.Round.HandActive,
		HandNumber:     s.Round.HandNumber,
		LastResult:     s.Round.LastResult,
	}
	if n := len(s.Round.ActionLog); n > viewLogTail {
		v.ActionLog = slices.Clone(s.Round.ActionLog[n-viewLogTail:])
	} else {
		v.ActionLog = slices.Clone(s.Round.ActionLog)
	}

	v.Participants = make([]ParticipantView, len(s.Participants))
	for i, p := range s.Participants {
		pv := ParticipantView{
			Username:   p.Username,
			Chips:      p.Chips,
			HasCards:   len(p.Hand) > 0,
			CurrentBet: p.CurrentBet,
			TotalBet:   p.TotalBet,
			Folded:     p.Folded,
			AllIn:      p.AllIn,
			Dealer:     p.Dealer,
			SmallBlind: p.SmallBlind,
			BigBlind:   p.BigBlind,
			IsTurn:     s.Round.HandActive && s.Round.CurrentTurn == p.Username,
		}
		if viewer != "" && p.Username == viewer {
			pv.Hand = slices.Clone(p.Hand)
			v.Viewer = viewer
			v.Seated = true
		}
		v.Participants[i] = pv
	}
	return v
}

// SpectatorView projects s with every hole card hidden.
func (s *Session) SpectatorView() View {
	return s.ViewFor("")
}
