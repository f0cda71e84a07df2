// Package bus carries chat envelopes over NATS: inbound messages are read
// from an inbox subject and replies are published to an outbox subject.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"nft-curator/internal/domain"
	"nft-curator/internal/usecase"
)

// Outbound item kinds.
const (
	KindAck     = "ack"
	KindMessage = "message"
)

// Outbound is the wire shape published to the outbox.
type Outbound struct {
	Kind      string                  `json:"kind"`
	Recipient string                  `json:"recipient"`
	Ack       *domain.Acknowledgement `json:"ack,omitempty"`
	Message   *domain.Envelope        `json:"message,omitempty"`
}

// Handler processes one inbound message. *usecase.CuratorService satisfies it.
type Handler interface {
	Handle(ctx context.Context, in domain.Inbound, out usecase.Replier) error
}

// publisher is the part of *nats.Conn used for replies.
type publisher interface {
	Publish(subject string, data []byte) error
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name("nft-curator"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{conn: nc, logger: logger}, nil
}

// Connected reports whether the underlying connection is up.
func (c *Client) Connected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Serve subscribes to inbox and hands every decoded message to h, publishing
// replies on outbox. Messages on one subscription are processed in order.
func (c *Client) Serve(ctx context.Context, inbox, outbox string, h Handler) error {
	if h == nil {
		return errors.New("bus: handler must not be nil")
	}
	if strings.TrimSpace(inbox) == "" || strings.TrimSpace(outbox) == "" {
		return errors.New("bus: inbox and outbox subjects are required")
	}
	replier := NewReplier(c.conn, outbox)
	sub, err := c.conn.Subscribe(inbox, func(msg *nats.Msg) {
		if err := dispatch(ctx, msg.Data, h, replier); err != nil {
			c.logger.Error("inbound message failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", inbox, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", inbox, "outbox", outbox)
	return nil
}

// Close drains subscriptions and closes the connection.
func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func dispatch(ctx context.Context, data []byte, h Handler, out usecase.Replier) error {
	var in domain.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode inbound: %w", err)
	}
	return h.Handle(ctx, in, out)
}

// Replier publishes acknowledgements and messages to a fixed subject.
type Replier struct {
	pub     publisher
	subject string
}

func NewReplier(pub publisher, subject string) *Replier {
	return &Replier{pub: pub, subject: subject}
}

func (r *Replier) Acknowledge(_ context.Context, sender string, ack domain.Acknowledgement) error {
	return r.publish(Outbound{Kind: KindAck, Recipient: sender, Ack: &ack})
}

func (r *Replier) Send(_ context.Context, sender string, msg domain.Envelope) error {
	return r.publish(Outbound{Kind: KindMessage, Recipient: sender, Message: &msg})
}

func (r *Replier) publish(o Outbound) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("bus: marshal %s: %w", o.Kind, err)
	}
	if err := r.pub.Publish(r.subject, payload); err != nil {
		return fmt.Errorf("bus: publish %s to %s: %w", o.Kind, r.subject, err)
	}
	return nil
}
