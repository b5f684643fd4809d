package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/store"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	playingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
)

// RoomsCmd prints the active rooms.
type RoomsCmd struct {
	Limit int `default:"20" help:"Maximum rooms to list"`
}

func (c *RoomsCmd) Run(g *Globals) error {
	cfg, logger, err := loadConfig(g)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	recs, err := a.rooms.Active(ctx, c.Limit)
	if err != nil {
		return err
	}
	renderRooms(os.Stdout, recs, a.clock.Now())
	return nil
}

func renderRooms(w io.Writer, recs []store.RoomRecord, now time.Time) {
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(w, "No active rooms")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "STATUS", "PLAYERS", "STAKES", "POT", "IDLE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2 && recs[row].Status == game.Playing:
				return playingStyle
			}
			return cellStyle
		})
	for _, r := range recs {
		t.Row(
			r.ID,
			r.Name,
			r.Status.String(),
			fmt.Sprintf("%d/%d", r.Players, r.MaxSeats),
			fmt.Sprintf("%d/%d", r.SmallBlind, r.BigBlind),
			strconv.Itoa(r.Pot),
			now.Sub(r.LastActivityAt).Truncate(time.Second).String(),
		)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}
