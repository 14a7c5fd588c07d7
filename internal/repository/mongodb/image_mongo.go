package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"imagegallery/internal/model"
	"imagegallery/internal/repository"
)

// ImageMongo is a MongoDB implementation of repository.ImageRepository.
// Metadata lives in a flat collection keyed by fileId; file records are read from the
// GridFS <bucket>.files collection of the same database.
type ImageMongo struct {
	meta      *mongo.Collection
	filesName string
}

// NewImageMongo creates a new ImageMongo repository.
func NewImageMongo(db *mongo.Database, metadataCollection, bucket string) *ImageMongo {
	return &ImageMongo{
		meta:      db.Collection(metadataCollection),
		filesName: bucket + ".files",
	}
}

var _ repository.ImageRepository = (*ImageMongo)(nil)

type metadataDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	FileID      primitive.ObjectID `bson:"fileId"`
	Filename    string             `bson:"filename"`
	ContentType string             `bson:"contentType"`
	Size        int64              `bson:"size"`
	UploadDate  time.Time          `bson:"uploadDate"`
	Title       string             `bson:"title,omitempty"`
	Description string             `bson:"description,omitempty"`
	Tags        []string           `bson:"tags"`
}

type joinedDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Filename    string             `bson:"filename"`
	Length      int64              `bson:"length"`
	ContentType string             `bson:"contentType"`
	UploadDate  time.Time          `bson:"uploadDate"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Tags        []string           `bson:"tags"`
}

// Insert stores one metadata record.
func (r *ImageMongo) Insert(ctx context.Context, meta *model.ImageMetadata) error {
	fileID, err := primitive.ObjectIDFromHex(meta.FileID)
	if err != nil {
		return fmt.Errorf("metadata file id %q: %w", meta.FileID, err)
	}

	tags := meta.Tags
	if tags == nil {
		tags = []string{}
	}

	doc := metadataDocument{
		FileID:      fileID,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		UploadDate:  meta.UploadDate,
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        tags,
	}
	if _, err := r.meta.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert metadata: %w", err)
	}
	return nil
}

// FindAllJoined runs one aggregation over the files collection with a left-outer $lookup.
func (r *ImageMongo) FindAllJoined(ctx context.Context) ([]model.Image, error) {
	files := r.meta.Database().Collection(r.filesName)

	cur, err := files.Aggregate(ctx, joinedPipeline(r.meta.Name()))
	if err != nil {
		return nil, fmt.Errorf("aggregate images: %w", err)
	}

	var docs []joinedDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}

	items := make([]model.Image, 0, len(docs))
	for _, d := range docs {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		items = append(items, model.Image{
			ID:          d.ID.Hex(),
			Filename:    d.Filename,
			Length:      d.Length,
			ContentType: d.ContentType,
			UploadDate:  d.UploadDate,
			Title:       d.Title,
			Description: d.Description,
			Tags:        tags,
		})
	}
	return items, nil
}

// DeleteByFileID removes every metadata record referencing fileID.
func (r *ImageMongo) DeleteByFileID(ctx context.Context, fileID string) error {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("metadata file id %q: %w", fileID, err)
	}
	if _, err := r.meta.DeleteMany(ctx, bson.M{"fileId": oid}); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

// DeleteOrphans removes metadata whose fileId has no matching file record.
func (r *ImageMongo) DeleteOrphans(ctx context.Context) (int64, error) {
	cur, err := r.meta.Aggregate(ctx, orphanPipeline(r.filesName))
	if err != nil {
		return 0, fmt.Errorf("find orphaned metadata: %w", err)
	}

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode orphaned metadata: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	res, err := r.meta.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("delete orphaned metadata: %w", err)
	}
	return res.DeletedCount, nil
}

// joinedPipeline projects files left-joined with the first matching metadata record.
// Content type prefers the GridFS metadata document, then the legacy top-level field,
// then the metadata record.
func joinedPipeline(metadataCollection string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: metadataCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "fileId"},
			{Key: "as", Value: "meta"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "meta", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$meta", 0}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "filename", Value: 1},
			{Key: "length", Value: 1},
			{Key: "uploadDate", Value: 1},
			{Key: "contentType", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				"$metadata.contentType",
				bson.D{{Key: "$ifNull", Value: bson.A{"$contentType", "$meta.contentType"}}},
			}}}},
			{Key: "title", Value: "$meta.title"},
			{Key: "description", Value: "$meta.description"},
			{Key: "tags", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$meta.tags", bson.A{}}}}},
		}}},
	}
}

func orphanPipeline(filesCollection string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: filesCollection},
			{Key: "localField", Value: "fileId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "file"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "file", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}
