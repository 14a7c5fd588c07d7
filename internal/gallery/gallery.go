package gallery

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"imagegallery/internal/model"
)

// DefaultToastDuration is how long a toast stays visible.
const DefaultToastDuration = 3 * time.Second

var (
	ErrNoFileSelected = errors.New("no file selected")
	// ErrBusy is returned when an upload or delete is already in flight.
	ErrBusy = errors.New("another operation is in progress")
)

// API is the subset of the Image API the gallery needs. *Client implements it.
type API interface {
	List(ctx context.Context) ([]model.Image, error)
	Upload(ctx context.Context, in UploadRequest) (*model.UploadResult, error)
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, id string) ([]byte, error)
	ImageURL(id string) string
}

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

type Toast struct {
	Message string
	Kind    ToastKind
}

// SelectedFile is the file staged for upload with its local data-URL preview.
type SelectedFile struct {
	Name        string
	ContentType string
	Data        []byte
	PreviewURL  string
}

// UploadForm holds the text fields typed into the upload panel.
type UploadForm struct {
	Title       string
	Description string
	Tags        string
}

// Preview is the image shown in the detail view.
type Preview struct {
	model.Image
	Src string
}

// State is a point-in-time copy of the view-model.
type State struct {
	Images     []model.Image
	Loading    bool
	Toast      *Toast
	ShowUpload bool
	Selected   *SelectedFile
	Dragging   bool
	Form       UploadForm
	Preview    *Preview
}

type Option func(*Gallery)

// WithToastDuration overrides DefaultToastDuration.
func WithToastDuration(d time.Duration) Option {
	return func(g *Gallery) { g.toastFor = d }
}

// Gallery is the view-model behind the gallery screen. It is safe for concurrent use;
// toasts are dismissed from a timer goroutine.
type Gallery struct {
	api      API
	toastFor time.Duration

	mu         sync.Mutex
	images     []model.Image
	loading    bool
	toast      *Toast
	toastTimer *time.Timer
	toastSeq   uint64
	showUpload bool
	selected   *SelectedFile
	dragging   bool
	form       UploadForm
	preview    *Preview
}

// New creates an empty gallery. Call Load to populate it.
func New(api API, opts ...Option) *Gallery {
	g := &Gallery{
		api:      api,
		toastFor: DefaultToastDuration,
		images:   []model.Image{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gallery) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := State{
		Images:     append([]model.Image(nil), g.images...),
		Loading:    g.loading,
		ShowUpload: g.showUpload,
		Dragging:   g.dragging,
		Form:       g.form,
	}
	if g.toast != nil {
		t := *g.toast
		s.Toast = &t
	}
	if g.selected != nil {
		f := *g.selected
		s.Selected = &f
	}
	if g.preview != nil {
		p := *g.preview
		s.Preview = &p
	}
	return s
}

// Load replaces the image list with the server's.
func (g *Gallery) Load(ctx context.Context) error {
	images, err := g.api.List(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.showToast("Failed to load images", ToastError)
		return err
	}
	if images == nil {
		images = []model.Image{}
	}
	g.images = images
	return nil
}

func (g *Gallery) OpenUpload() {
	g.mu.Lock()
	g.showUpload = true
	g.mu.Unlock()
}

// CloseUpload hides the upload panel and discards the staged file and form.
func (g *Gallery) CloseUpload() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeUpload()
}

func (g *Gallery) closeUpload() {
	g.showUpload = false
	g.selected = nil
	g.form = UploadForm{}
}

func (g *Gallery) CancelSelectedFile() {
	g.mu.Lock()
	g.selected = nil
	g.mu.Unlock()
}

// SelectFile stages a file for upload and builds its preview. An empty content type
// is detected from the data.
func (g *Gallery) SelectFile(name, contentType string, data []byte) {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	f := &SelectedFile{
		Name:        name,
		ContentType: contentType,
		Data:        data,
		PreviewURL:  "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}

	g.mu.Lock()
	g.selected = f
	g.mu.Unlock()
}

func (g *Gallery) DragOver() {
	g.mu.Lock()
	g.dragging = true
	g.mu.Unlock()
}

func (g *Gallery) DragLeave() {
	g.mu.Lock()
	g.dragging = false
	g.mu.Unlock()
}

// Drop ends a drag and stages the dropped file.
func (g *Gallery) Drop(name, contentType string, data []byte) {
	g.DragLeave()
	g.SelectFile(name, contentType, data)
}

func (g *Gallery) SetForm(f UploadForm) {
	g.mu.Lock()
	g.form = f
	g.mu.Unlock()
}

// SubmitUpload sends the staged file with the trimmed form fields. On success the panel
// is closed and reset and the list reloaded; on failure the form is kept.
func (g *Gallery) SubmitUpload(ctx context.Context) error {
	g.mu.Lock()
	if g.loading {
		g.mu.Unlock()
		return ErrBusy
	}
	if g.selected == nil {
		g.mu.Unlock()
		return ErrNoFileSelected
	}
	req := UploadRequest{
		Filename:    g.selected.Name,
		ContentType: g.selected.ContentType,
		Data:        g.selected.Data,
		Title:       strings.TrimSpace(g.form.Title),
		Description: strings.TrimSpace(g.form.Description),
		Tags:        strings.TrimSpace(g.form.Tags),
	}
	g.loading = true
	g.mu.Unlock()

	_, err := g.api.Upload(ctx, req)

	g.mu.Lock()
	g.loading = false
	if err != nil {
		g.showToast("Upload failed", ToastError)
		g.mu.Unlock()
		return err
	}
	g.showToast("Upload successful!", ToastSuccess)
	g.closeUpload()
	g.mu.Unlock()

	// The upload itself succeeded; a failed reload only raises its own toast.
	_ = g.Load(ctx)
	return nil
}

// Delete removes an image on the server and, on success, from the local list.
func (g *Gallery) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	if g.loading {
		g.mu.Unlock()
		return ErrBusy
	}
	g.loading = true
	g.mu.Unlock()

	err := g.api.Delete(ctx, id)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.loading = false
	if err != nil {
		g.showToast("Delete failed", ToastError)
		return err
	}

	kept := make([]model.Image, 0, len(g.images))
	for _, img := range g.images {
		if img.ID != id {
			kept = append(kept, img)
		}
	}
	g.images = kept
	if g.preview != nil && g.preview.ID == id {
		g.preview = nil
	}
	g.showToast("Image deleted 🗑️", ToastSuccess)
	return nil
}

// Download fetches the bytes of an image and hands them to s under filename.
func (g *Gallery) Download(ctx context.Context, id, filename string, s Saver) error {
	data, err := g.api.Download(ctx, id)
	if err == nil {
		err = s.Save(filename, data)
	}
	if err != nil {
		g.mu.Lock()
		g.showToast("Download failed", ToastError)
		g.mu.Unlock()
		return err
	}
	return nil
}

// OpenPreview shows the detail view of a listed image. It reports false for unknown ids.
func (g *Gallery) OpenPreview(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, img := range g.images {
		if img.ID != id {
			continue
		}
		if img.Tags == nil {
			img.Tags = []string{}
		}
		g.preview = &Preview{Image: img, Src: g.api.ImageURL(id)}
		return true
	}
	return false
}

func (g *Gallery) ClosePreview() {
	g.mu.Lock()
	g.preview = nil
	g.mu.Unlock()
}

// Close stops a pending toast timer.
func (g *Gallery) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.toastTimer != nil {
		g.toastTimer.Stop()
	}
}

// showToast must be called with mu held. A newer toast cancels the dismissal of an older one.
func (g *Gallery) showToast(msg string, kind ToastKind) {
	g.toast = &Toast{Message: msg, Kind: kind}
	g.toastSeq++
	seq := g.toastSeq

	if g.toastTimer != nil {
		g.toastTimer.Stop()
	}
	g.toastTimer = time.AfterFunc(g.toastFor, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.toastSeq == seq {
			g.toast = nil
		}
	})
}
