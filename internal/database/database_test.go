package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"imagegallery/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name    string
		config  config.MongoConfig
		wantErr bool
		check   func(t *testing.T, o *options.ClientOptions)
	}{
		{
			name: "valid config with pool bounds",
			config: config.MongoConfig{
				URI:               "mongodb://localhost:27017",
				Database:          "image_upload_db",
				MaxPoolSize:       10,
				MinPoolSize:       2,
				ConnectTimeoutSec: 3,
			},
			check: func(t *testing.T, o *options.ClientOptions) {
				assert.Equal(t, uint64(10), *o.MaxPoolSize)
				assert.Equal(t, uint64(2), *o.MinPoolSize)
				assert.Equal(t, 3*time.Second, *o.ConnectTimeout)
				assert.Equal(t, 3*time.Second, *o.ServerSelectionTimeout)
				assert.NotNil(t, o.Monitor)
				assert.Equal(t, []string{"localhost:27017"}, o.Hosts)
			},
		},
		{
			name: "valid config without pool bounds",
			config: config.MongoConfig{
				URI:      "mongodb://db:27017",
				Database: "images",
			},
			check: func(t *testing.T, o *options.ClientOptions) {
				assert.Nil(t, o.MaxPoolSize)
				assert.Nil(t, o.MinPoolSize)
			},
		},
		{
			name:    "invalid config missing uri",
			config:  config.MongoConfig{Database: "images"},
			wantErr: true,
		},
		{
			name:    "invalid config missing database",
			config:  config.MongoConfig{URI: "mongodb://localhost:27017"},
			wantErr: true,
		},
		{
			name:    "invalid uri",
			config:  config.MongoConfig{URI: "postgres://localhost", Database: "images"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClientOptions(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestNewMongo(t *testing.T) {
	conf := config.MongoConfig{
		URI:               "mongodb://localhost:27017",
		Database:          "image_upload_db",
		ConnectTimeoutSec: 1,
	}

	t.Run("connect error", func(t *testing.T) {
		orig := mongoConnect
		mongoConnect = func(ctx context.Context, opts ...*options.ClientOptions) (*mongo.Client, error) {
			return nil, errors.New("connect error")
		}
		defer func() { mongoConnect = orig }()

		client, err := NewMongo(context.Background(), conf)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "mongo connect: connect error")
		assert.Nil(t, client)
	})

	t.Run("invalid config", func(t *testing.T) {
		client, err := NewMongo(context.Background(), config.MongoConfig{})
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("live server", func(t *testing.T) {
		uri := os.Getenv("MONGODB_TEST_URI")
		if uri == "" {
			t.Skip("MONGODB_TEST_URI not set")
		}
		client, err := NewMongo(context.Background(), config.MongoConfig{URI: uri, Database: "ping_test"})
		require.NoError(t, err)
		defer client.Disconnect(context.Background())

		assert.NoError(t, Ping(context.Background(), client, 2*time.Second))
	})
}
