// Package config loads the HCL configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/room"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "pokerrooms.hcl"

// Config is the complete server configuration. Every block is optional;
// missing blocks and attributes take defaults. A nil NATS block disables
// NATS publishing.
type Config struct {
	Server   *ServerConfig   `hcl:"server,block"`
	Table    *TableConfig    `hcl:"table,block"`
	Redis    *RedisConfig    `hcl:"redis,block"`
	Database *DatabaseConfig `hcl:"database,block"`
	NATS     *NATSConfig     `hcl:"nats,block"`
	Auth     *AuthConfig     `hcl:"auth,block"`
}

// ServerConfig holds the listener and room lifecycle settings.
type ServerConfig struct {
	Address             string   `hcl:"address,optional"`
	LogLevel            string   `hcl:"log_level,optional"`
	LogFormat           string   `hcl:"log_format,optional"`
	InactivityThreshold string   `hcl:"inactivity_threshold,optional"`
	SweepInterval       string   `hcl:"sweep_interval,optional"`
	ActiveRoomLimit     int      `hcl:"active_room_limit,optional"`
	AllowedOrigins      []string `hcl:"allowed_origins,optional"`
}

// TableConfig holds the stakes every new room is created with.
type TableConfig struct {
	StartingChips int `hcl:"starting_chips,optional"`
	SmallBlind    int `hcl:"small_blind,optional"`
	BigBlind      int `hcl:"big_blind,optional"`
	MinSeats      int `hcl:"min_seats,optional"`
	MaxSeats      int `hcl:"max_seats,optional"`
}

// RedisConfig configures the snapshot cache and the room lock.
type RedisConfig struct {
	Address  string `hcl:"address,optional"`
	Password string `hcl:"password,optional"`
	DB       int    `hcl:"db,optional"`
	CacheTTL string `hcl:"cache_ttl,optional"`
	// Lock is "redis" for locks shared between processes or "local".
	Lock    string `hcl:"lock,optional"`
	LockTTL string `hcl:"lock_ttl,optional"`
}

// DatabaseConfig selects the durable store.
type DatabaseConfig struct {
	Driver   string `hcl:"driver,optional"`
	DSN      string `hcl:"dsn,optional"`
	MaxConns int    `hcl:"max_conns,optional"`
}

// NATSConfig enables publishing deliveries to NATS.
type NATSConfig struct {
	URL           string `hcl:"url"`
	SubjectPrefix string `hcl:"subject_prefix,optional"`
}

// AuthConfig selects how connections are identified: "none" trusts the
// token as the username, "jwt" verifies HS256 tokens, "http" asks an
// external service.
type AuthConfig struct {
	Mode        string `hcl:"mode,optional"`
	Secret      string `hcl:"secret,optional"`
	Issuer      string `hcl:"issuer,optional"`
	Audience    string `hcl:"audience,optional"`
	URL         string `hcl:"url,optional"`
	AdminSecret string `hcl:"admin_secret,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads filename, falling back to defaults when it does not exist.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decode(file.Body)
}

// Parse decodes HCL source, for tests and embedded configs.
func Parse(src []byte, filename string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*Config, error) {
	var config Config
	if diags := gohcl.DecodeBody(body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}
	if c.Server.InactivityThreshold == "" {
		c.Server.InactivityThreshold = "2h"
	}
	if c.Server.SweepInterval == "" {
		c.Server.SweepInterval = "30m"
	}
	if c.Server.ActiveRoomLimit == 0 {
		c.Server.ActiveRoomLimit = 20
	}

	def := game.DefaultOptions()
	if c.Table == nil {
		c.Table = &TableConfig{}
	}
	if c.Table.StartingChips == 0 {
		c.Table.StartingChips = def.StartingChips
	}
	if c.Table.SmallBlind == 0 {
		c.Table.SmallBlind = def.SmallBlind
	}
	if c.Table.BigBlind == 0 {
		c.Table.BigBlind = def.BigBlind
	}
	if c.Table.MinSeats == 0 {
		c.Table.MinSeats = def.MinSeats
	}
	if c.Table.MaxSeats == 0 {
		c.Table.MaxSeats = def.MaxSeats
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.Address == "" {
		c.Redis.Address = "localhost:6379"
	}
	if c.Redis.CacheTTL == "" {
		c.Redis.CacheTTL = "24h"
	}
	if c.Redis.Lock == "" {
		c.Redis.Lock = "redis"
	}
	if c.Redis.LockTTL == "" {
		c.Redis.LockTTL = "5s"
	}

	if c.Database == nil {
		c.Database = &DatabaseConfig{}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "pokerrooms.db"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}

	if c.NATS != nil && c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "pokerrooms"
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "none"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	t := c.Table
	if t.SmallBlind <= 0 {
		return fmt.Errorf("table: small blind must be positive")
	}
	if t.BigBlind <= t.SmallBlind {
		return fmt.Errorf("table: big blind must be greater than small blind")
	}
	if t.StartingChips < t.BigBlind {
		return fmt.Errorf("table: starting chips must cover the big blind")
	}
	if t.MinSeats < 2 || t.MaxSeats > 10 {
		return fmt.Errorf("table: seats must be between 2 and 10")
	}
	if t.MinSeats > t.MaxSeats {
		return fmt.Errorf("table: min seats %d exceeds max seats %d", t.MinSeats, t.MaxSeats)
	}
	if c.Server.ActiveRoomLimit < 1 {
		return fmt.Errorf("server: active_room_limit must be positive")
	}

	durations := map[string]string{
		"server.inactivity_threshold": c.Server.InactivityThreshold,
		"server.sweep_interval":       c.Server.SweepInterval,
		"redis.cache_ttl":             c.Redis.CacheTTL,
		"redis.lock_ttl":              c.Redis.LockTTL,
	}
	for name, raw := range durations {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s: must be positive", name)
		}
	}

	switch c.Redis.Lock {
	case "redis", "local":
	default:
		return fmt.Errorf("redis: unknown lock %q", c.Redis.Lock)
	}

	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database: postgres requires a dsn")
		}
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}

	if c.NATS != nil && c.NATS.URL == "" {
		return fmt.Errorf("nats: url is required")
	}

	switch c.Auth.Mode {
	case "none":
	case "jwt":
		if c.Auth.Secret == "" {
			return fmt.Errorf("auth: jwt mode requires a secret")
		}
	case "http":
		if c.Auth.URL == "" {
			return fmt.Errorf("auth: http mode requires a url")
		}
	default:
		return fmt.Errorf("auth: unknown mode %q", c.Auth.Mode)
	}
	return nil
}

// TableOptions returns the options new rooms are created with.
func (c *Config) TableOptions() game.Options {
	return game.Options{
		MinSeats:      c.Table.MinSeats,
		MaxSeats:      c.Table.MaxSeats,
		SmallBlind:    c.Table.SmallBlind,
		BigBlind:      c.Table.BigBlind,
		StartingChips: c.Table.StartingChips,
	}
}

// Rooms returns the orchestrator settings. Call Validate first.
func (c *Config) Rooms() room.Config {
	return room.Config{
		Table:               c.TableOptions(),
		ActiveRoomLimit:     c.Server.ActiveRoomLimit,
		InactivityThreshold: duration(c.Server.InactivityThreshold),
		SweepInterval:       duration(c.Server.SweepInterval),
		LockTimeout:         duration(c.Redis.LockTTL),
	}
}

// CacheTTL returns how long room snapshots live in Redis.
func (c *Config) CacheTTL() time.Duration { return duration(c.Redis.CacheTTL) }

// LockTTL returns how long a Redis room lock is held before it expires.
func (c *Config) LockTTL() time.Duration { return duration(c.Redis.LockTTL) }

func duration(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}
