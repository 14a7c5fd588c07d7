package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"imagegallery/docs"
	"imagegallery/internal/config"
	"imagegallery/internal/database"
	"imagegallery/internal/database/migration"
	"imagegallery/internal/events"
	handlers "imagegallery/internal/http/handler"
	"imagegallery/internal/http/middleware"
	"imagegallery/internal/logger"
	"imagegallery/internal/otel"
	"imagegallery/internal/repository/mongodb"
	"imagegallery/internal/service"
	"imagegallery/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Image Upload API
// @version 1.0
// @description Upload, list, download and delete images stored in MongoDB GridFS.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server_exited", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		time.Local = loc
	} else {
		log.Warn("invalid_timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	shutdownTracing, err := otel.Init(ctx, cfg.Env, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	// One client for the process; GridFS and the metadata repository share it.
	connectCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Mongo.ConnectTimeoutSec)*time.Second)
	client, err := database.NewMongo(connectCtx, cfg.Mongo)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	log.Info("mongo_connected", zap.String("database", cfg.Mongo.Database), zap.String("bucket", cfg.Mongo.Bucket))

	db := client.Database(cfg.Mongo.Database)
	if err := migration.EnsureIndexes(ctx, db, cfg.Mongo.MetadataCollection, log); err != nil {
		return err
	}

	objStore, err := storage.NewGridFS(db, cfg.Mongo.Bucket)
	if err != nil {
		return err
	}
	imageRepo := mongodb.NewImageMongo(db, cfg.Mongo.MetadataCollection, cfg.Mongo.Bucket)

	publisher := events.Noop()
	if cfg.NATS.URL != "" {
		publisher, err = events.NewNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			return err
		}
	}
	defer publisher.Close()

	imageSvc := service.NewImageService(objStore, imageRepo, publisher, log)

	if cfg.ReconcileOnStart {
		removed, err := imageSvc.Reconcile(ctx)
		if err != nil {
			log.Warn("reconcile_failed", zap.Error(err))
		} else {
			log.Info("reconcile_done", zap.Int64("orphans_removed", removed))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:               "image-gallery",
		BodyLimit:             cfg.MaxUploadSizeMB * 1024 * 1024,
		ErrorHandler:          handlers.ErrorHandler(cfg.IsDevelopment()),
		DisableStartupMessage: true,
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(otelfiber.Middleware())
	app.Use(metrics.Handler())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))

	handlers.RegisterRoutes(app, handlers.Dependencies{
		Images: imageSvc,
		DB:     database.Probe{Client: client},
		Log:    log,
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/api-docs/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server_shutting_down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
