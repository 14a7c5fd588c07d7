package migration

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type migrationStep struct {
	Name  string
	Index mongo.IndexModel
}

// steps are index creations on the metadata collection; CreateOne is a no-op when an
// identical index exists.
var steps = []migrationStep{
	{
		Name:  "create_index_metadata_file_id",
		Index: mongo.IndexModel{
			Keys:    bson.D{{Key: "fileId", Value: 1}},
			Options: options.Index().SetName("idx_metadata_file_id"),
		},
	},
	{
		Name:  "create_index_metadata_upload_date",
		Index: mongo.IndexModel{
			Keys:    bson.D{{Key: "uploadDate", Value: 1}},
			Options: options.Index().SetName("idx_metadata_upload_date"),
		},
	},
}

// EnsureIndexes creates the metadata collection indexes. GridFS creates its own
// files/chunks indexes on first upload.
func EnsureIndexes(ctx context.Context, db *mongo.Database, metadataCollection string, log *zap.Logger) error {
	start := time.Now()
	log = log.With(
		zap.String("component", "database"),
		zap.String("db_name", db.Name()),
	)

	log.Info("db_migration_start", zap.String("status", "in_progress"))

	coll := db.Collection(metadataCollection)
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := coll.Indexes().CreateOne(ctx, step.Index); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
