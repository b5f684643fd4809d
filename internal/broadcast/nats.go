// Package broadcast publishes room deliveries to NATS so that other
// processes (audit, bots, extra gateways) can follow rooms.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/pokerrooms/internal/room"
	"github.com/nats-io/nats.go"
)

// DefaultPrefix is the subject root.
const DefaultPrefix = "pokerrooms"

// Publisher is the part of *nats.Conn used here.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Subject returns where d is published:
// <prefix>.room.<id>.user.<username> or <prefix>.room.<id>.spectators.
func Subject(prefix string, d room.Delivery) string {
	if d.Spectator {
		return fmt.Sprintf("%s.room.%s.spectators", prefix, d.RoomID)
	}
	return fmt.Sprintf("%s.room.%s.user.%s", prefix, d.RoomID, token(d.Recipient))
}

// token escapes characters NATS treats as subject syntax.
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// NATS implements room.Broadcaster over a NATS connection.
type NATS struct {
	pub    Publisher
	prefix string
	logger *log.Logger
}

func NewNATS(pub Publisher, prefix string, logger *log.Logger) *NATS {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &NATS{pub: pub, prefix: prefix, logger: logger.WithPrefix("nats")}
}

func (n *NATS) Deliver(_ context.Context, deliveries []room.Delivery) error {
	var errs []error
	for _, d := range deliveries {
		data, err := json.Marshal(d)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s: %w", d.Event, err))
			continue
		}
		subject := Subject(n.prefix, d)
		if err := n.pub.Publish(subject, data); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", subject, err))
			continue
		}
		n.logger.Debug("Published", "subject", subject, "event", d.Event)
	}
	return errors.Join(errs...)
}

// Connect dials NATS with reconnect handling logged through logger.
func Connect(url string, logger *log.Logger) (*nats.Conn, error) {
	logger = logger.WithPrefix("nats")
	nc, err := nats.Connect(url,
		nats.Name("pokerrooms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("Connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}
