package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagegallery/internal/gallery"
)

const id = "65a1b2c3d4e5f60718293a4b"

func newGallery(t *testing.T) *gallery.Gallery {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /images", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": id, "filename": "cat.png", "length": 2048, "uploadDate": "2024-01-02T03:04:05Z", "title": "Cat", "tags": []string{"pets"}},
			},
		})
	})
	mux.HandleFunc("GET /images/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	})
	mux.HandleFunc("DELETE /images/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "File deleted successfully"})
	})
	mux.HandleFunc("POST /images/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"id": id}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := gallery.New(gallery.NewClient(srv.URL+"/images", srv.Client()))
	t.Cleanup(g.Close)
	return g
}

func TestRunList(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), newGallery(t), &out, "list", nil))

	assert.Contains(t, out.String(), "cat.png")
	assert.Contains(t, out.String(), "2.0 KB")
	assert.Contains(t, out.String(), "1 images, 2.0 KiB total")
}

func TestRunShow(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), newGallery(t), &out, "show", []string{id}))
	assert.Contains(t, out.String(), "/images/"+id)
	assert.Contains(t, out.String(), "title:       Cat")

	assert.Error(t, run(context.Background(), newGallery(t), &out, "show", []string{"65a1b2c3d4e5f60718293a4c"}))
}

func TestRunUploadDeleteDownload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cat.png")
	require.NoError(t, os.WriteFile(src, []byte("\x89PNG\r\n\x1a\n"), 0o644))

	var out bytes.Buffer
	g := newGallery(t)

	require.NoError(t, run(context.Background(), g, &out, "upload", []string{"-title", "Cat", "-tags", "pets", src}))
	assert.Contains(t, out.String(), "[success] Upload successful!")

	out.Reset()
	require.NoError(t, run(context.Background(), g, &out, "delete", []string{id}))
	assert.Contains(t, out.String(), "[success] Image deleted")

	out.Reset()
	dst := filepath.Join(dir, "out")
	require.NoError(t, run(context.Background(), g, &out, "download", []string{"-o", dst, id}))
	data, err := os.ReadFile(filepath.Join(dst, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestRunUnknownCommand(t *testing.T) {
	assert.Error(t, run(context.Background(), newGallery(t), &bytes.Buffer{}, "rename", nil))
}
