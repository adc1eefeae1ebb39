package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tcg-hq/followers/internal/logger"
)

// natsConn is the subset of *nats.Conn used by natsPublisher.
type natsConn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// natsPublisher publishes each event on "<subject_prefix>.<event type>".
type natsPublisher struct {
	id           string
	prefix       string
	flushTimeout time.Duration
	conn         natsConn
	log          logger.Logger
}

func newNATSPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.NATS == nil {
		return nil, fmt.Errorf("publisher %q missing nats configuration", cfg.ID)
	}

	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("followers-"+cfg.ID))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &natsPublisher{
		id:           cfg.ID,
		prefix:       cfg.NATS.SubjectPrefix,
		flushTimeout: time.Duration(cfg.NATS.FlushTimeoutSeconds) * time.Second,
		conn:         nc,
		log:          logger.Ensure(log),
	}, nil
}

func (n *natsPublisher) ID() string   { return n.id }
func (n *natsPublisher) Type() string { return TypeNATS }

func (n *natsPublisher) subject(evt Event) string {
	if n.prefix == "" {
		return evt.Type
	}
	return n.prefix + "." + evt.Type
}

// Publish sends the event and flushes so server-side rejections surface here.
// The flush is bounded by flushTimeout when ctx carries no deadline.
func (n *natsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(n.subject(evt))
	msg.Data = payload
	for k, v := range evt.attributes() {
		msg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(msg); err != nil {
		n.log.ErrorObj("nats publisher send failed", "publisher_nats_error", map[string]any{
			"publisher_id": n.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to nats: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.flushDeadline())
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	n.log.DebugObj("nats publisher delivered event", "publisher_nats_delivery", map[string]any{
		"publisher_id": n.id,
		"subject":      msg.Subject,
	})
	return nil
}

func (n *natsPublisher) flushDeadline() time.Duration {
	if n.flushTimeout <= 0 {
		return natsDefaultFlushSeconds * time.Second
	}
	return n.flushTimeout
}

// Close drains in-flight messages before disconnecting.
func (n *natsPublisher) Close() error { return n.conn.Drain() }
