// Package storage contains the large-object store abstraction used for image bytes.
// Implementations stream content in and out; nothing touches local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when no file exists for an id.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidID is returned when an id is not a valid file identifier.
	ErrInvalidID = errors.New("invalid file id")
)

// PutObjectOptions define optional parameters for uploading objects.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains the file record of an object in storage.
type ObjectInfo struct {
	ID          string
	Filename    string
	Size        int64
	ContentType string
	UploadDate  time.Time
	Metadata    map[string]string
}

// Storage is the chunked binary store holding image payloads.
type Storage interface {
	// Put streams r into a new file and returns its record, including the newly assigned id.
	Put(ctx context.Context, filename string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Stat returns the file record for id, or ErrNotFound.
	Stat(ctx context.Context, id string) (ObjectInfo, error)
	// Get opens a streaming reader over the file's content.
	Get(ctx context.Context, id string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes the file and all of its chunks. A missing id is not an error.
	Delete(ctx context.Context, id string) error
}
