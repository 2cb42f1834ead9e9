package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/ulyssesdeck/internal/deck"
)

// Notifier announces completed rebuilds.
type Notifier interface {
	Notify(ctx context.Context, res deck.Result) error
	Close()
}

// NoopNotifier discards notifications.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, deck.Result) error { return nil }
func (NoopNotifier) Close()                                    {}

// DeckUpdated is the payload published after each successful rebuild.
type DeckUpdated struct {
	RebuildID   string    `json:"rebuild_id"`
	Output      string    `json:"output"`
	Slides      int       `json:"slides"`
	Fragments   int       `json:"fragments"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewDeckUpdated builds the payload for res.
func NewDeckUpdated(res deck.Result) DeckUpdated {
	return DeckUpdated{
		RebuildID:   res.ID,
		Output:      res.Output,
		Slides:      res.Slides,
		Fragments:   res.Fragments,
		CompletedAt: res.CompletedAt.UTC(),
	}
}

// NATSNotifier publishes DeckUpdated messages to a NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to url. The client reconnects on its own after
// the initial connection succeeds.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("ulyssesdeck"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, res deck.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NewDeckUpdated(res))
	if err != nil {
		return fmt.Errorf("failed to marshal deck update: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish deck update: %w", err)
	}
	return nil
}

func (n *NATSNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
