package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"imagegallery/internal/service"
)

// UploadImage godoc
// @Summary Upload an image
// @Description Stores the file part "file" and its optional title, description and comma-separated tags.
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param tags formData string false "Comma-separated tags"
// @Success 201 {object} envelope
// @Failure 400 {object} envelope
// @Failure 413 {object} envelope
// @Failure 500 {object} envelope
// @Router /images/upload [post]
func UploadImage(svc service.ImageService, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return httpError(service.ErrFileRequired)
		}

		form := uploadForm{
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			Tags:        c.FormValue("tags"),
		}
		if err := v.Struct(form); err != nil {
			return newAPIError(fiber.StatusBadRequest, validationMessage(err), err)
		}

		f, err := fh.Open()
		if err != nil {
			return newAPIError(fiber.StatusBadRequest, "Cannot read uploaded file", err)
		}
		defer f.Close()

		contentType, err := partContentType(fh, f)
		if err != nil {
			return newAPIError(fiber.StatusBadRequest, "Cannot read uploaded file", err)
		}

		res, err := svc.Upload(c.UserContext(), service.UploadInput{
			Reader:      f,
			Filename:    fh.Filename,
			ContentType: contentType,
			Title:       form.Title,
			Description: form.Description,
			Tags:        form.Tags,
		})
		if err != nil {
			return httpError(err)
		}

		return c.Status(fiber.StatusCreated).JSON(envelope{
			Success: true,
			Message: "File uploaded successfully",
			Data:    res,
		})
	}
}

// partContentType trusts the declared part type unless it is missing or generic,
// in which case the leading bytes are sniffed and the reader is rewound.
func partContentType(fh *multipart.FileHeader, f multipart.File) (string, error) {
	declared := fh.Header.Get(fiber.HeaderContentType)
	if declared != "" && declared != service.DefaultContentType {
		return declared, nil
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("sniff content type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return mt.String(), nil
}

// ListImages godoc
// @Summary List images
// @Description Every stored file left-joined with its metadata.
// @Tags images
// @Produce json
// @Success 200 {object} envelope
// @Failure 500 {object} envelope
// @Router /images [get]
func ListImages(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(envelope{
			Success: true,
			Message: "Files retrieved successfully",
			Data:    items,
		})
	}
}

// DownloadImage godoc
// @Summary Download image bytes
// @Tags images
// @Produce application/octet-stream
// @Param id path string true "Image id (24 hex characters)"
// @Success 200 {file} binary
// @Failure 400 {object} envelope
// @Failure 404 {object} envelope
// @Router /images/{id} [get]
func DownloadImage(svc service.ImageService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The stream is read after the handler returns and fiber recycles the ctx,
		// so the id must not alias the request buffer.
		id := utils.CopyString(c.Params("id"))
		dl, err := svc.Download(c.UserContext(), id)
		if err != nil {
			return httpError(err)
		}

		c.Set(fiber.HeaderContentType, dl.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", dl.Filename))

		size := -1
		if dl.Size > 0 {
			size = int(dl.Size)
		}
		body := &streamReader{
			rc:        dl.Body,
			log:       log,
			id:        id,
			requestID: requestIDFromCtx(c),
		}
		return c.SendStream(body, size)
	}
}

// streamReader logs a read failure once headers are already on the wire;
// the connection is then cut by the server and the client sees a truncated body.
type streamReader struct {
	rc        io.ReadCloser
	log       *zap.Logger
	id        string
	requestID string
	failed    bool
}

func (r *streamReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && !r.failed {
		r.failed = true
		r.log.Error("download stream aborted",
			zap.String("request_id", r.requestID),
			zap.String("image_id", r.id),
			zap.Error(err),
		)
	}
	return n, err
}

func (r *streamReader) Close() error {
	return r.rc.Close()
}

// DeleteImage godoc
// @Summary Delete an image
// @Description Removes the stored file and its metadata. Unknown ids succeed.
// @Tags images
// @Produce json
// @Param id path string true "Image id (24 hex characters)"
// @Success 200 {object} envelope
// @Failure 400 {object} envelope
// @Failure 500 {object} envelope
// @Router /images/{id} [delete]
func DeleteImage(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.JSON(envelope{
			Success: true,
			Message: "File deleted successfully",
		})
	}
}
