package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/timerd/internal/config"
	"git.home.luguber.info/inful/timerd/internal/logfields"
)

// NATSBus publishes timer events to NATS JetStream.
type NATSBus struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	prefix  string
	timeout time.Duration
}

// NewNATSBus connects to NATS and prepares a JetStream publisher.
func NewNATSBus(cfg config.NATSConfig) (*NATSBus, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("nats is disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS event bus initialized",
		slog.String("url", cfg.URL),
		slog.String("subject_prefix", cfg.SubjectPrefix))

	return &NATSBus{
		conn:    conn,
		js:      js,
		prefix:  cfg.SubjectPrefix,
		timeout: cfg.PublishTimeout.Std(),
	}, nil
}

// Publish marshals payload as JSON and publishes it under the prefixed subject.
func (b *NATSBus) Publish(ctx context.Context, subject string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	full := b.prefix + "." + subject
	if _, err := b.js.Publish(ctx, full, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published event", logfields.Subject(full))
	return nil
}

// Close closes the NATS connection.
func (b *NATSBus) Close() error {
	if b.conn != nil {
		b.conn.Close()
	}
	return nil
}
