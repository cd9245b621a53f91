// Package messaging provides a NATS client wrapper for the moderation
// service. It handles connection lifecycle, the request/reply subscription
// for moderation requests, and publishing of escalation events.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATS subjects used by the moderation service.
const (
	SubjectModerationRequest = "moderation.request"
	SubjectEscalation        = "moderation.escalation" // + .<kind>

	// QueueModerators load-balances requests across service replicas.
	QueueModerators = "moderators"
)

// EscalationSubject returns the subject escalation events of kind are
// published on.
func EscalationSubject(kind string) string {
	return SubjectEscalation + "." + kind
}

// Handler processes one request payload and returns the reply payload.
type Handler func(data []byte) []byte

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn   *nats.Conn
	log    zerolog.Logger
	closed chan struct{}

	mu  sync.Mutex
	sub *nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "moderator",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// drainPoll is how often StopServing checks whether the drain finished.
const drainPoll = 10 * time.Millisecond

// NewNATSClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig, log zerolog.Logger) (*NATSClient, error) {
	log = log.With().Str("component", "nats").Logger()
	closed := make(chan struct{})
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("connection closed")
			close(closed)
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("connected")

	return &NATSClient{conn: nc, log: log, closed: closed}, nil
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Request sends data on subject and waits for a reply.
func (c *NATSClient) Request(subject string, data []byte, timeout time.Duration) ([]byte, error) {
	msg, err := c.conn.Request(subject, data, timeout)
	if err != nil {
		return nil, fmt.Errorf("nats request %s: %w", subject, err)
	}
	return msg.Data, nil
}

// ServeModerationRequests answers moderation requests through a queue
// subscription. Messages without a reply subject are handled and dropped.
func (c *NATSClient) ServeModerationRequests(handler Handler) error {
	sub, err := c.conn.QueueSubscribe(SubjectModerationRequest, QueueModerators, func(msg *nats.Msg) {
		reply := handler(msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			c.log.Error().Err(err).Msg("respond failed")
		}
	})
	if err != nil {
		return fmt.Errorf("nats queue subscribe %s: %w", SubjectModerationRequest, err)
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
	return nil
}

// PublishEscalation publishes an escalation event for a subject kind.
func (c *NATSClient) PublishEscalation(kind string, data []byte) error {
	return c.Publish(EscalationSubject(kind), data)
}

// Flush waits until the server has processed every buffered publish.
func (c *NATSClient) Flush() error {
	return c.conn.Flush()
}

// StopServing drains the moderation request subscription and blocks until
// every message already delivered to it has been handled, or ctx is done.
// Publishing keeps working afterwards.
func (c *NATSClient) StopServing(ctx context.Context) error {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub == nil {
		return nil
	}

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain %s: %w", SubjectModerationRequest, err)
	}
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for sub.IsValid() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("nats drain %s: %w", SubjectModerationRequest, ctx.Err())
		case <-ticker.C:
		}
	}
	c.log.Info().Msg("stopped serving moderation requests")
	return nil
}

// Close drains the connection, flushing pending publishes, and blocks until
// it is closed or ctx is done.
func (c *NATSClient) Close(ctx context.Context) error {
	if err := c.conn.Drain(); err != nil && !c.conn.IsClosed() {
		return fmt.Errorf("nats drain: %w", err)
	}
	select {
	case <-c.closed:
		c.log.Info().Msg("client closed")
		return nil
	case <-ctx.Done():
		c.conn.Close()
		return fmt.Errorf("nats close: %w", ctx.Err())
	}
}
