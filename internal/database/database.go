package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"imagegallery/internal/config"
)

var mongoConnect = mongo.Connect

// ClientOptions builds driver options from configuration: URI, pool bounds,
// connect timeout and the OpenTelemetry command monitor.
func ClientOptions(c config.MongoConfig) (*options.ClientOptions, error) {
	if c.URI == "" {
		return nil, fmt.Errorf("invalid mongo config: uri is required")
	}
	if c.Database == "" {
		return nil, fmt.Errorf("invalid mongo config: database name is required")
	}

	opts := options.Client().
		ApplyURI(c.URI).
		SetAppName("image-gallery").
		SetMonitor(otelmongo.NewMonitor())

	if c.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(c.MaxPoolSize)
	}
	if c.MinPoolSize > 0 {
		opts.SetMinPoolSize(c.MinPoolSize)
	}
	if c.ConnectTimeoutSec > 0 {
		timeout := time.Duration(c.ConnectTimeoutSec) * time.Second
		opts.SetConnectTimeout(timeout)
		opts.SetServerSelectionTimeout(timeout)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongo config: %w", err)
	}
	return opts, nil
}

// NewMongo connects to MongoDB and verifies connectivity. The caller owns the client and
// must Disconnect it at shutdown.
func NewMongo(ctx context.Context, c config.MongoConfig) (*mongo.Client, error) {
	opts, err := ClientOptions(c)
	if err != nil {
		return nil, err
	}

	client, err := mongoConnect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	// Verify connectivity with a short timeout
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, nil
}

// Ping checks that the primary answers within timeout.
func Ping(ctx context.Context, client *mongo.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

// Probe answers readiness checks against a connected client.
type Probe struct {
	Client  *mongo.Client
	Timeout time.Duration
}

func (p Probe) Ping(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return Ping(ctx, p.Client, timeout)
}
