package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultMaxUploadSizeMB   = 20
	defaultConnectTimeoutSec = 10
)

// MongoConfig holds MongoDB connection and GridFS layout settings.
type MongoConfig struct {
	URI                string
	Database           string
	Bucket             string
	MetadataCollection string
	MaxPoolSize        uint64
	MinPoolSize        uint64
	ConnectTimeoutSec  int
}

// NATSConfig holds settings for publishing image lifecycle events.
// An empty URL disables publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables; every value has a default.
type AppConfig struct {
	Env              string
	Port             string
	LogLevel         string
	Timezone         string
	MaxUploadSizeMB  int
	CORSAllowOrigins string
	ReconcileOnStart bool
	Mongo            MongoConfig
	NATS             NATSConfig
}

// IsDevelopment reports whether error responses may carry internal details.
func (c *AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over defaults.
func Load() *AppConfig {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &AppConfig{
		Env:              v.GetString("APP_ENV"),
		Port:             v.GetString("PORT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		Timezone:         v.GetString("TIMEZONE"),
		MaxUploadSizeMB:  v.GetInt("MAX_UPLOAD_SIZE_MB"),
		CORSAllowOrigins: v.GetString("CORS_ALLOW_ORIGINS"),
		ReconcileOnStart: v.GetBool("RECONCILE_ON_START"),
		Mongo: MongoConfig{
			URI:                v.GetString("MONGODB_URI"),
			Database:           v.GetString("DB_NAME"),
			Bucket:             v.GetString("GRIDFS_BUCKET"),
			MetadataCollection: v.GetString("METADATA_COLLECTION"),
			MaxPoolSize:        v.GetUint64("MONGO_MAX_POOL_SIZE"),
			MinPoolSize:        v.GetUint64("MONGO_MIN_POOL_SIZE"),
			ConnectTimeoutSec:  v.GetInt("MONGO_CONNECT_TIMEOUT_SEC"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
	}

	// Unparsable numbers come back from viper as zero.
	if cfg.MaxUploadSizeMB <= 0 {
		cfg.MaxUploadSizeMB = defaultMaxUploadSizeMB
	}
	if cfg.Mongo.ConnectTimeoutSec <= 0 {
		cfg.Mongo.ConnectTimeoutSec = defaultConnectTimeoutSec
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("MAX_UPLOAD_SIZE_MB", defaultMaxUploadSizeMB)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("RECONCILE_ON_START", false)

	v.SetDefault("MONGODB_URI", "mongodb://127.0.0.1:27017")
	v.SetDefault("DB_NAME", "image_upload_db")
	v.SetDefault("GRIDFS_BUCKET", "images")
	v.SetDefault("METADATA_COLLECTION", "imageMetadata")
	v.SetDefault("MONGO_MAX_POOL_SIZE", 10)
	v.SetDefault("MONGO_MIN_POOL_SIZE", 0)
	v.SetDefault("MONGO_CONNECT_TIMEOUT_SEC", defaultConnectTimeoutSec)

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "images")
}
