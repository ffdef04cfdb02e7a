package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const flushTimeout = 5 * time.Second

// NATSStream publishes events over core NATS
type NATSStream struct {
	conn *nats.Conn
}

// New creates a new NATS stream client
func New(url string) (*NATSStream, error) {
	conn, err := nats.Connect(url,
		nats.Name("vastdeploy"),
		nats.Timeout(flushTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSStream{conn: conn}, nil
}

// Publish publishes a message to a subject and waits for the server to
// acknowledge the flush, so short-lived runs do not lose their last event.
func (s *NATSStream) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	if err := s.conn.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection
func (s *NATSStream) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
