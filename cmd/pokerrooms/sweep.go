package main

import (
	"context"
	"fmt"
)

// SweepCmd closes inactive rooms once, for running from cron.
type SweepCmd struct{}

func (c *SweepCmd) Run(g *Globals) error {
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

	n, err := a.service.CleanupInactiveRooms(ctx)
	fmt.Printf("Closed %d inactive room(s)\n", n)
	return err
}
