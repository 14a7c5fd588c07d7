package model

import "time"

// ImageEventType names a lifecycle transition of an image.
type ImageEventType string

const (
	ImageUploaded ImageEventType = "uploaded"
	ImageDeleted  ImageEventType = "deleted"
)

// ImageEvent is published after an image is uploaded or deleted.
type ImageEvent struct {
	Type        ImageEventType `json:"type"`
	ID          string         `json:"id"`
	Filename    string         `json:"filename,omitempty"`
	ContentType string         `json:"contentType,omitempty"`
	Size        int64          `json:"size,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
}
