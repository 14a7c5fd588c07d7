package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"imagegallery/internal/events"
	"imagegallery/internal/logger"
	"imagegallery/internal/model"
	"imagegallery/internal/repository"
	"imagegallery/internal/storage"
)

var (
	ErrInvalidID    = errors.New("invalid image id")
	ErrNotFound     = errors.New("file not found")
	ErrFileRequired = errors.New("no file uploaded")
)

// DefaultContentType is served when a stored file carries no content type.
const DefaultContentType = "application/octet-stream"

// UploadInput carries one uploaded file part and its optional form fields.
// Tags is the raw comma-separated form value.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Title       string
	Description string
	Tags        string
}

// Download is an open stream over a stored image. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// ImageService defines the use cases behind the image API.
type ImageService interface {
	// Upload writes the bytes to the large-object store and, once that completes, inserts the
	// metadata record. The two writes are not atomic and a failed insert is not rolled back.
	Upload(ctx context.Context, in UploadInput) (*model.UploadResult, error)

	// List returns every stored image joined with its metadata.
	List(ctx context.Context) ([]model.Image, error)

	// Download opens the stored bytes of an image.
	Download(ctx context.Context, id string) (*Download, error)

	// Delete removes an image from storage and then its metadata. Unknown ids succeed.
	Delete(ctx context.Context, id string) error

	// Reconcile removes metadata records whose file is gone and returns how many were removed.
	Reconcile(ctx context.Context) (int64, error)
}

type imageService struct {
	store  storage.Storage
	repo   repository.ImageRepository
	events events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

// NewImageService constructs a new ImageService.
func NewImageService(store storage.Storage, repo repository.ImageRepository, pub events.Publisher, log *zap.Logger) ImageService {
	if pub == nil {
		pub = events.Noop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &imageService{
		store:  store,
		repo:   repo,
		events: pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ParseTags splits a comma-separated tag string and trims each tag.
// Blank input yields an empty, non-nil list; empty tokens are dropped.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (s *imageService) Upload(ctx context.Context, in UploadInput) (*model.UploadResult, error) {
	if in.Reader == nil {
		return nil, ErrFileRequired
	}

	info, err := s.store.Put(ctx, in.Filename, in.Reader, storage.PutObjectOptions{
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"originalName": in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	meta := &model.ImageMetadata{
		FileID:      info.ID,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Size:        info.Size,
		UploadDate:  s.now(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Tags:        ParseTags(in.Tags),
	}
	if err := s.repo.Insert(ctx, meta); err != nil {
		// The file stays in storage and lists without metadata.
		logger.WithTrace(ctx, s.log).Warn("metadata insert failed after file write",
			zap.String("file_id", info.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("save metadata: %w", err)
	}

	s.publish(ctx, model.ImageEvent{
		Type:        model.ImageUploaded,
		ID:          info.ID,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Size:        info.Size,
		OccurredAt:  meta.UploadDate,
	})

	return &model.UploadResult{
		ID:          info.ID,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
	}, nil
}

func (s *imageService) List(ctx context.Context) ([]model.Image, error) {
	items, err := s.repo.FindAllJoined(ctx)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return items, nil
}

func (s *imageService) Download(ctx context.Context, id string) (*Download, error) {
	if !storage.ValidID(id) {
		return nil, ErrInvalidID
	}

	info, err := s.store.Stat(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}

	body, _, err := s.store.Get(ctx, id)
	if err != nil {
		// deleted between Stat and Get
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}

	ct := info.ContentType
	if ct == "" {
		ct = DefaultContentType
	}
	return &Download{
		Body:        body,
		Filename:    info.Filename,
		ContentType: ct,
		Size:        info.Size,
	}, nil
}

func (s *imageService) Delete(ctx context.Context, id string) error {
	if !storage.ValidID(id) {
		return ErrInvalidID
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	if err := s.repo.DeleteByFileID(ctx, id); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}

	s.publish(ctx, model.ImageEvent{
		Type:       model.ImageDeleted,
		ID:         id,
		OccurredAt: s.now(),
	})
	return nil
}

func (s *imageService) Reconcile(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteOrphans(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile metadata: %w", err)
	}
	s.log.Info("metadata reconciled", zap.Int64("orphans_removed", n))
	return n, nil
}

// publish never fails the request; events are best effort.
func (s *imageService) publish(ctx context.Context, ev model.ImageEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.WithTrace(ctx, s.log).Warn("publish image event",
			zap.String("type", string(ev.Type)),
			zap.String("file_id", ev.ID),
			zap.Error(err),
		)
	}
}
