package main

import (
	"fmt"

	"github.com/lox/pokerrooms/cmd/pokerrooms/shared"
	"github.com/lox/pokerrooms/internal/broadcast"
	"github.com/lox/pokerrooms/internal/room"
	"github.com/lox/pokerrooms/internal/server"
	"golang.org/x/sync/errgroup"
)

// ServeCmd runs the websocket server and the sweeper.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)"`
	Seed *int64 `help:"Deterministic RNG seed for dealing (optional)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, logger, err := loadConfig(g)
	if err != nil {
		return err
	}
	ctx := shared.SetupSignalHandler(logger)

	a, err := newApp(ctx, cfg, logger, c.Seed)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	addr := cfg.Server.Address
	if c.Addr != "" {
		addr = c.Addr
	}

	srv := server.NewServer(a.validator(), a.logger, server.WithAllowedOrigins(cfg.Server.AllowedOrigins))
	broadcasters := room.Broadcasters{srv}
	if cfg.NATS != nil {
		nc, err := broadcast.Connect(cfg.NATS.URL, a.logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		broadcasters = append(broadcasters, broadcast.NewNATS(nc, cfg.NATS.SubjectPrefix, a.logger))
	}
	a.service.SetBroadcaster(broadcasters)
	srv.SetService(a.service)

	a.logger.Info("Starting pokerrooms",
		"addr", addr,
		"stakes", fmt.Sprintf("%d/%d", cfg.Table.SmallBlind, cfg.Table.BigBlind),
		"starting_chips", cfg.Table.StartingChips,
		"seats", fmt.Sprintf("%d-%d", cfg.Table.MinSeats, cfg.Table.MaxSeats),
		"database", cfg.Database.Driver,
		"auth", cfg.Auth.Mode,
		"nats", cfg.NATS != nil)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.Serve(egCtx, addr) })
	eg.Go(func() error { return a.service.RunSweeper(egCtx) })
	return eg.Wait()
}
