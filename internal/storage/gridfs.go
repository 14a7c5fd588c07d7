package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// contentTypeKey is where the content type lives inside the GridFS metadata document.
// The driver does not write the deprecated top-level contentType field.
const contentTypeKey = "contentType"

// gridFSStorage implements Storage on top of a MongoDB GridFS bucket
// (<bucket>.files and <bucket>.chunks). It is safe for concurrent use.
type gridFSStorage struct {
	bucket *gridfs.Bucket
	files  *mongo.Collection
}

// fileDocument mirrors a document of the <bucket>.files collection.
type fileDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Length      int64              `bson:"length"`
	ChunkSize   int32              `bson:"chunkSize"`
	UploadDate  time.Time          `bson:"uploadDate"`
	Filename    string             `bson:"filename"`
	ContentType string             `bson:"contentType,omitempty"`
	Metadata    bson.M             `bson:"metadata,omitempty"`
}

// NewGridFS creates a GridFS-backed Storage on the given database.
func NewGridFS(db *mongo.Database, bucketName string) (Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("gridfs database is required")
	}
	if bucketName == "" {
		return nil, fmt.Errorf("gridfs bucket name is required")
	}

	b, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("create gridfs bucket: %w", err)
	}

	return &gridFSStorage{
		bucket: b,
		files:  db.Collection(bucketName + ".files"),
	}, nil
}

// ValidID reports whether id can address a file in storage.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// Put opens an upload stream, copies r into it and closes it. The file record is written
// only when the stream closes; a failed copy aborts the stream and drops written chunks.
func (g *gridFSStorage) Put(ctx context.Context, filename string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	meta := bson.M{}
	for k, v := range opt.Metadata {
		meta[k] = v
	}
	if opt.ContentType != "" {
		meta[contentTypeKey] = opt.ContentType
	}

	us, err := g.bucket.OpenUploadStream(filename, options.GridFSUpload().SetMetadata(meta))
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("open upload stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = us.SetWriteDeadline(deadline)
	}

	n, err := io.Copy(us, r)
	if err != nil {
		_ = us.Abort()
		return ObjectInfo{}, fmt.Errorf("write chunks: %w", err)
	}
	if err := us.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("close upload stream: %w", err)
	}

	oid, ok := us.FileID.(primitive.ObjectID)
	if !ok {
		return ObjectInfo{}, fmt.Errorf("unexpected file id type %T", us.FileID)
	}

	return ObjectInfo{
		ID:          oid.Hex(),
		Filename:    filename,
		Size:        n,
		ContentType: opt.ContentType,
		UploadDate:  time.Now().UTC(),
		Metadata:    opt.Metadata,
	}, nil
}

// Stat looks up the file record without touching chunks.
func (g *gridFSStorage) Stat(ctx context.Context, id string) (ObjectInfo, error) {
	oid, err := parseID(id)
	if err != nil {
		return ObjectInfo{}, err
	}

	var doc fileDocument
	if err := g.files.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("find file record: %w", err)
	}
	return doc.info(), nil
}

// Get opens a download stream. The caller must close the returned reader.
func (g *gridFSStorage) Get(ctx context.Context, id string) (io.ReadCloser, ObjectInfo, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	ds, err := g.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("open download stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ds.SetReadDeadline(deadline)
	}

	f := ds.GetFile()
	info := ObjectInfo{
		ID:         id,
		Filename:   f.Name,
		Size:       f.Length,
		UploadDate: f.UploadDate,
	}
	if len(f.Metadata) > 0 {
		if v, err := f.Metadata.LookupErr(contentTypeKey); err == nil {
			info.ContentType, _ = v.StringValueOK()
		}
	}
	return ds, info, nil
}

// Delete removes the file record and its chunks. GridFS reports a missing file as an error;
// it is swallowed so deleting an unknown id succeeds.
func (g *gridFSStorage) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	if err := g.bucket.DeleteContext(ctx, oid); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("delete gridfs file: %w", err)
	}
	return nil
}

func (d fileDocument) info() ObjectInfo {
	info := ObjectInfo{
		ID:          d.ID.Hex(),
		Filename:    d.Filename,
		Size:        d.Length,
		ContentType: d.ContentType,
		UploadDate:  d.UploadDate,
	}
	if len(d.Metadata) == 0 {
		return info
	}

	info.Metadata = make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if k == contentTypeKey {
			info.ContentType = s
			continue
		}
		info.Metadata[k] = s
	}
	return info
}
