package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"imagegallery/internal/model"
)

// Publisher announces image lifecycle events to other services.
type Publisher interface {
	Publish(ctx context.Context, event model.ImageEvent) error
	Close()
}

// conn is the subset of *nats.Conn used for publishing.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type natsPublisher struct {
	nc     conn
	prefix string
}

// NewNATS connects to url and returns a Publisher that writes JSON events to
// <prefix>.<event type>.
func NewNATS(url, prefix string, log *zap.Logger) (Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("image-gallery"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newPublisher(nc, prefix), nil
}

func newPublisher(nc conn, prefix string) *natsPublisher {
	if prefix == "" {
		prefix = "images"
	}
	return &natsPublisher{nc: nc, prefix: prefix}
}

// Subject returns the subject an event type is published on.
func (p *natsPublisher) Subject(t model.ImageEventType) string {
	return p.prefix + "." + string(t)
}

func (p *natsPublisher) Publish(ctx context.Context, event model.ImageEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	_ = p.nc.Drain()
}

type noopPublisher struct{}

// Noop returns a Publisher that discards events. Used when NATS is not configured.
func Noop() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, model.ImageEvent) error { return nil }
func (noopPublisher) Close()                                         {}
