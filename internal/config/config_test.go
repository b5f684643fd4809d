package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, ":8080", c.Server.Address)
	assert.Equal(t, 1000, c.Table.StartingChips)
	assert.Equal(t, 10, c.Table.SmallBlind)
	assert.Equal(t, 20, c.Table.BigBlind)
	assert.Equal(t, 2, c.Table.MinSeats)
	assert.Equal(t, 9, c.Table.MaxSeats)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, "pokerrooms.db", c.Database.DSN)
	assert.Nil(t, c.NATS)
	assert.Equal(t, "none", c.Auth.Mode)

	rooms := c.Rooms()
	assert.Equal(t, 2*time.Hour, rooms.InactivityThreshold)
	assert.Equal(t, 30*time.Minute, rooms.SweepInterval)
	assert.Equal(t, 5*time.Second, rooms.LockTimeout)
	assert.Equal(t, 20, rooms.ActiveRoomLimit)
	assert.Equal(t, 24*time.Hour, c.CacheTTL())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pokerrooms.hcl")
	src := `
server {
  address        = "127.0.0.1:9000"
  sweep_interval = "5m"
}

table {
  small_blind = 25
  big_blind   = 50
  max_seats   = 6
}

database {
  driver = "postgres"
  dsn    = "postgres://localhost/pokerrooms"
}

nats {
  url = "nats://localhost:4222"
}

auth {
  mode   = "jwt"
  secret = "s3cret"
  issuer = "auth.example"
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "127.0.0.1:9000", c.Server.Address)
	assert.Equal(t, 5*time.Minute, c.Rooms().SweepInterval)
	assert.Equal(t, 2*time.Hour, c.Rooms().InactivityThreshold, "unset attributes keep defaults")
	opts := c.TableOptions()
	assert.Equal(t, 25, opts.SmallBlind)
	assert.Equal(t, 50, opts.BigBlind)
	assert.Equal(t, 6, opts.MaxSeats)
	assert.Equal(t, 1000, opts.StartingChips)
	assert.Equal(t, "postgres", c.Database.Driver)
	require.NotNil(t, c.NATS)
	assert.Equal(t, "pokerrooms", c.NATS.SubjectPrefix)
	assert.Equal(t, "auth.example", c.Auth.Issuer)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`server {`), "broken.hcl")
	require.Error(t, err)

	_, err = Parse([]byte(`table { colour = "red" }`), "unknown.hcl")
	require.Error(t, err, "unknown attributes are rejected")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		errMsg string
	}{
		{"blinds inverted", `table {
  small_blind = 20
  big_blind = 10
}`, "big blind"},
		{"too many seats", `table { max_seats = 11 }`, "seats"},
		{"min above max", `table {
  min_seats = 6
  max_seats = 4
}`, "min seats"},
		{"bad duration", `server { sweep_interval = "soon" }`, "sweep_interval"},
		{"negative duration", `redis { cache_ttl = "-1h" }`, "cache_ttl"},
		{"unknown driver", `database { driver = "mysql" }`, "unknown driver"},
		{"postgres without dsn", `database { driver = "postgres" }`, "dsn"},
		{"unknown lock", `redis { lock = "zookeeper" }`, "unknown lock"},
		{"jwt without secret", `auth { mode = "jwt" }`, "secret"},
		{"http without url", `auth { mode = "http" }`, "url"},
		{"unknown auth", `auth { mode = "ldap" }`, "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.src), "test.hcl")
			require.NoError(t, err)
			err = c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
