package gallery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"imagegallery/internal/model"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) List(ctx context.Context) ([]model.Image, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Image), args.Error(1)
}

func (m *mockAPI) Upload(ctx context.Context, in UploadRequest) (*model.UploadResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadResult), args.Error(1)
}

func (m *mockAPI) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) Download(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockAPI) ImageURL(id string) string {
	return "http://api/images/" + id
}

type memSaver struct {
	files map[string][]byte
	err   error
}

func (s *memSaver) Save(filename string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[filename] = data
	return nil
}

var (
	imgA = model.Image{ID: "65a1b2c3d4e5f60718293a4b", Filename: "a.png", Length: 10, Tags: []string{"x"}}
	imgB = model.Image{ID: "65a1b2c3d4e5f60718293a4c", Filename: "b.jpg", Length: 20}
)

func TestGalleryLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces images", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()
		api.On("List", ctx).Return([]model.Image{imgA, imgB}, nil).Once()

		require.NoError(t, g.Load(ctx))
		assert.Equal(t, []model.Image{imgA, imgB}, g.State().Images)
		assert.Nil(t, g.State().Toast)
	})

	t.Run("failure raises error toast", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()
		api.On("List", ctx).Return(nil, errors.New("connection refused")).Once()

		assert.Error(t, g.Load(ctx))
		st := g.State()
		require.NotNil(t, st.Toast)
		assert.Equal(t, ToastError, st.Toast.Kind)
		assert.Empty(t, st.Images)
	})
}

func TestGallerySelectAndDrop(t *testing.T) {
	g := New(new(mockAPI))
	defer g.Close()

	g.DragOver()
	assert.True(t, g.State().Dragging)

	g.Drop("a.png", "image/png", []byte("abc"))
	st := g.State()
	assert.False(t, st.Dragging)
	require.NotNil(t, st.Selected)
	assert.Equal(t, "a.png", st.Selected.Name)
	assert.Equal(t, "data:image/png;base64,YWJj", st.Selected.PreviewURL)

	g.SelectFile("notes", "", []byte("plain text"))
	st = g.State()
	assert.True(t, strings.HasPrefix(st.Selected.ContentType, "text/plain"))
	assert.True(t, strings.HasPrefix(st.Selected.PreviewURL, "data:text/plain"))

	g.CancelSelectedFile()
	assert.Nil(t, g.State().Selected)

	g.DragOver()
	g.DragLeave()
	assert.False(t, g.State().Dragging)
}

func TestGallerySubmitUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("no file selected", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()

		assert.ErrorIs(t, g.SubmitUpload(ctx), ErrNoFileSelected)
		api.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("success resets panel and reloads", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()

		api.On("Upload", ctx, UploadRequest{
			Filename:    "a.png",
			ContentType: "image/png",
			Data:        []byte("abc"),
			Title:       "Cat",
			Description: "A cat",
			Tags:        "x, y",
		}).Return(&model.UploadResult{ID: imgA.ID}, nil).Once()
		api.On("List", ctx).Return([]model.Image{imgA}, nil).Once()

		g.OpenUpload()
		g.SelectFile("a.png", "image/png", []byte("abc"))
		g.SetForm(UploadForm{Title: "  Cat ", Description: "A cat\n", Tags: " x, y "})

		require.NoError(t, g.SubmitUpload(ctx))

		st := g.State()
		assert.False(t, st.ShowUpload)
		assert.False(t, st.Loading)
		assert.Nil(t, st.Selected)
		assert.Equal(t, UploadForm{}, st.Form)
		assert.Equal(t, []model.Image{imgA}, st.Images)
		require.NotNil(t, st.Toast)
		assert.Equal(t, Toast{Message: "Upload successful!", Kind: ToastSuccess}, *st.Toast)
		api.AssertExpectations(t)
	})

	t.Run("failure keeps form", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()

		api.On("Upload", ctx, mock.Anything).Return(nil, &APIError{Status: 500, Message: "Internal Server Error"}).Once()

		g.OpenUpload()
		g.SelectFile("a.png", "image/png", []byte("abc"))
		g.SetForm(UploadForm{Title: "Cat"})

		assert.Error(t, g.SubmitUpload(ctx))

		st := g.State()
		assert.True(t, st.ShowUpload)
		assert.NotNil(t, st.Selected)
		assert.Equal(t, "Cat", st.Form.Title)
		assert.Equal(t, Toast{Message: "Upload failed", Kind: ToastError}, *st.Toast)
		api.AssertNotCalled(t, "List", mock.Anything)
	})
}

func TestGalleryDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes locally on success", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()
		api.On("List", ctx).Return([]model.Image{imgA, imgB}, nil).Once()
		api.On("Delete", ctx, imgA.ID).Return(nil).Once()

		require.NoError(t, g.Load(ctx))
		require.True(t, g.OpenPreview(imgA.ID))
		require.NoError(t, g.Delete(ctx, imgA.ID))

		st := g.State()
		assert.Equal(t, []model.Image{imgB}, st.Images)
		assert.Nil(t, st.Preview)
		assert.False(t, st.Loading)
		assert.Equal(t, ToastSuccess, st.Toast.Kind)
	})

	t.Run("failure keeps list", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()
		api.On("List", ctx).Return([]model.Image{imgA}, nil).Once()
		api.On("Delete", ctx, imgA.ID).Return(errors.New("timeout")).Once()

		require.NoError(t, g.Load(ctx))
		assert.Error(t, g.Delete(ctx, imgA.ID))

		st := g.State()
		assert.Equal(t, []model.Image{imgA}, st.Images)
		assert.Equal(t, Toast{Message: "Delete failed", Kind: ToastError}, *st.Toast)
	})
}

func TestGalleryRejectsOverlappingOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("while uploading", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()

		started := make(chan struct{})
		release := make(chan struct{})
		api.On("Upload", ctx, mock.Anything).Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return(nil, errors.New("boom")).Once()

		g.SelectFile("a.png", "image/png", []byte("abc"))
		done := make(chan error, 1)
		go func() { done <- g.SubmitUpload(ctx) }()
		<-started

		assert.True(t, g.State().Loading)
		assert.ErrorIs(t, g.SubmitUpload(ctx), ErrBusy)
		assert.ErrorIs(t, g.Delete(ctx, imgA.ID), ErrBusy)

		close(release)
		assert.EqualError(t, <-done, "boom")
		assert.False(t, g.State().Loading)
		api.AssertNumberOfCalls(t, "Upload", 1)
		api.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("while deleting", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()

		started := make(chan struct{})
		release := make(chan struct{})
		api.On("Delete", ctx, imgA.ID).Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return(nil).Once()

		g.SelectFile("a.png", "image/png", []byte("abc"))
		done := make(chan error, 1)
		go func() { done <- g.Delete(ctx, imgA.ID) }()
		<-started

		assert.ErrorIs(t, g.Delete(ctx, imgA.ID), ErrBusy)
		assert.ErrorIs(t, g.SubmitUpload(ctx), ErrBusy)

		close(release)
		require.NoError(t, <-done)
		api.AssertNumberOfCalls(t, "Delete", 1)
		api.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})
}

func TestGalleryDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("saves with original filename", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()
		api.On("Download", ctx, imgA.ID).Return([]byte("bytes"), nil).Once()

		s := &memSaver{}
		require.NoError(t, g.Download(ctx, imgA.ID, "a.png", s))
		assert.Equal(t, []byte("bytes"), s.files["a.png"])
		assert.Nil(t, g.State().Toast)
	})

	t.Run("failure raises error toast", func(t *testing.T) {
		api := new(mockAPI)
		g := New(api)
		defer g.Close()
		api.On("Download", ctx, imgA.ID).Return(nil, &APIError{Status: 404, Message: "File not found"}).Once()

		assert.Error(t, g.Download(ctx, imgA.ID, "a.png", &memSaver{}))
		assert.Equal(t, Toast{Message: "Download failed", Kind: ToastError}, *g.State().Toast)
	})
}

func TestGalleryPreview(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	g := New(api)
	defer g.Close()
	api.On("List", ctx).Return([]model.Image{imgA, imgB}, nil).Once()
	require.NoError(t, g.Load(ctx))

	assert.False(t, g.OpenPreview("65a1b2c3d4e5f60718293a4d"))
	assert.Nil(t, g.State().Preview)

	require.True(t, g.OpenPreview(imgB.ID))
	p := g.State().Preview
	assert.Equal(t, "http://api/images/"+imgB.ID, p.Src)
	assert.Equal(t, "b.jpg", p.Filename)
	assert.Equal(t, []string{}, p.Tags)

	g.ClosePreview()
	assert.Nil(t, g.State().Preview)
}

func TestGalleryToastExpires(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	g := New(api, WithToastDuration(20*time.Millisecond))
	defer g.Close()
	api.On("Delete", ctx, imgA.ID).Return(errors.New("boom"))

	_ = g.Delete(ctx, imgA.ID)
	require.NotNil(t, g.State().Toast)

	assert.Eventually(t, func() bool { return g.State().Toast == nil }, time.Second, 5*time.Millisecond)
}
