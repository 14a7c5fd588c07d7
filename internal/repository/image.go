package repository

import (
	"context"

	"imagegallery/internal/model"
)

// ImageRepository defines data access for image metadata records.
// No business logic here, strictly persistence operations.
type ImageRepository interface {
	// Insert appends one metadata record. No uniqueness is enforced on FileID.
	Insert(ctx context.Context, meta *model.ImageMetadata) error

	// FindAllJoined returns every stored file left-joined with its metadata record,
	// in the store's natural order. Files without metadata are kept.
	FindAllJoined(ctx context.Context) ([]model.Image, error)

	// DeleteByFileID removes the metadata record(s) of a file. It is a no-op when none exist.
	DeleteByFileID(ctx context.Context, fileID string) error

	// DeleteOrphans removes metadata records whose file no longer exists and
	// returns how many were removed.
	DeleteOrphans(ctx context.Context) (int64, error)
}
