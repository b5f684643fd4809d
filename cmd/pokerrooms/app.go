package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/cmd/pokerrooms/shared"
	"github.com/lox/pokerrooms/internal/auth"
	"github.com/lox/pokerrooms/internal/config"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/randutil"
	"github.com/lox/pokerrooms/internal/room"
	"github.com/lox/pokerrooms/internal/store"
	"github.com/redis/go-redis/v9"
)

// app holds the wiring shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	clock   quartz.Clock
	rdb     *redis.Client
	durable store.Durable
	rooms   *store.Rooms
	service *room.Service
}

func loadConfig(g *Globals) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := shared.SetupLogger(cfg.Server.LogLevel, cfg.Server.LogFormat, g.Debug, g.NoColor)
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger, seed *int64) (*app, error) {
	rdb, err := store.Connect(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	var durable store.Durable
	switch cfg.Database.Driver {
	case "postgres":
		durable, err = store.OpenPostgres(ctx, cfg.Database.DSN, int32(cfg.Database.MaxConns))
	default:
		durable, err = store.OpenSQLite(ctx, cfg.Database.DSN)
	}
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	clock := quartz.NewReal()
	rooms := store.NewRooms(store.NewRedisCache(rdb, cfg.CacheTTL()), durable, logger)

	var locker store.Locker = store.NewLocalLocker()
	if cfg.Redis.Lock == "redis" {
		locker = store.NewRedisLocker(rdb, cfg.LockTTL(), 0)
	}

	s := randutil.Seed(seed)
	logger.Info("Dealing with seed", "seed", s)
	engine := game.NewEngine(clock, randutil.New(s))

	return &app{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		rdb:     rdb,
		durable: durable,
		rooms:   rooms,
		service: room.NewService(rooms, engine, clock, logger, cfg.Rooms(), room.WithLocker(locker)),
	}, nil
}

// validator builds the identity collaborator for the configured auth mode.
func (a *app) validator() auth.Validator {
	c := a.cfg.Auth
	switch c.Mode {
	case "jwt":
		return auth.NewJWTValidator(c.Secret, c.Issuer, c.Audience, a.clock)
	case "http":
		return auth.NewHTTPValidator(c.URL, c.AdminSecret)
	}
	a.logger.Warn("Authentication disabled, tokens are trusted as usernames")
	return auth.NewNoopValidator()
}

func (a *app) Close() error {
	return errors.Join(a.durable.Close(), a.rdb.Close())
}
