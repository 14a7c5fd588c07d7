package model

import "time"

// ImageMetadata holds the descriptive fields for one stored file.
// Filename, content type, size and upload date are duplicated from the file record.
type ImageMetadata struct {
	FileID      string    `json:"fileId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadDate  time.Time `json:"uploadDate"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
}

// Image is a stored file left-joined with its metadata, as returned by the list endpoint.
// Title and Description are empty when the file has no metadata record.
type Image struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Length      int64     `json:"length"`
	ContentType string    `json:"contentType,omitempty"`
	UploadDate  time.Time `json:"uploadDate"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	ContentType string   `json:"contentType"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
}
