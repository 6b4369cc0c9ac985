package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/bloghub/internal/config"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
)

const publishTimeout = 5 * time.Second

// publisher is the part of jetstream.JetStream the notifier uses.
type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSNotifier publishes events to a JetStream stream. Each event goes to
// <subject>.<type>, e.g. bloghub.posts.published.
type NATSNotifier struct {
	conn    *nats.Conn
	js      publisher
	subject string
	now     func() time.Time
}

// NewNATSNotifier connects to cfg.NATSURL and makes sure the stream exists.
func NewNATSNotifier(ctx context.Context, cfg config.NotifyConfig) (*NATSNotifier, error) {
	if cfg.NATSURL == "" {
		return nil, errors.ConfigError("notify.nats_url is required").Build()
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("bloghub"))
	if err != nil {
		return nil, errors.NotifyError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", cfg.NATSURL).
			Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.NotifyError("failed to create JetStream context").WithCause(err).Build()
	}

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "bloghub post publication events",
		Subjects:    []string{cfg.Subject + ".>"},
		MaxAge:      30 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, errors.NotifyError("failed to create JetStream stream").
			WithCause(err).
			WithContext("stream", cfg.Stream).
			Build()
	}

	slog.Info("NATS notifier initialized",
		logfields.URL(cfg.NATSURL),
		logfields.Subject(cfg.Subject),
		slog.String("stream", cfg.Stream))

	return newNATSNotifier(conn, js, cfg.Subject), nil
}

func newNATSNotifier(conn *nats.Conn, js publisher, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, js: js, subject: strings.TrimSuffix(subject, "."), now: time.Now}
}

// Notify publishes ev. The JetStream message id makes redelivery of the
// same event idempotent.
func (n *NATSNotifier) Notify(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = n.now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	subject := n.subject + "." + string(ev.Type)
	if _, err := n.js.Publish(ctx, subject, data, jetstream.WithMsgID(messageID(ev))); err != nil {
		return errors.NotifyError("failed to publish event").
			WithCause(err).
			WithContext("subject", subject).
			WithContext("issue", ev.Number).
			Build()
	}
	slog.Debug("Published post event", logfields.Subject(subject), logfields.Issue(ev.Number), logfields.Slug(ev.Slug))
	return nil
}

func messageID(ev Event) string {
	id := fmt.Sprintf("%d-%s", ev.Number, ev.Type)
	if ev.Fingerprint != "" {
		id += "-" + ev.Fingerprint
	}
	return id
}

// Close drains the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
