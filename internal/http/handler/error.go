package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"imagegallery/internal/http/middleware"
	"imagegallery/internal/service"
)

// envelope is the uniform JSON body of every API response.
type envelope struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code,omitempty"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// apiError pairs an error with the status and safe message it is reported as.
type apiError struct {
	status  int
	message string
	err     error
}

func (e *apiError) Error() string {
	if e.err == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.err)
}

func (e *apiError) Unwrap() error   { return e.err }
func (e *apiError) StatusCode() int { return e.status }

var _ middleware.StatusCoder = (*apiError)(nil)

func newAPIError(status int, message string, err error) *apiError {
	return &apiError{status: status, message: message, err: err}
}

// httpError attaches the status the error handler will use, so middlewares see it too.
func httpError(err error) error {
	status, message := classify(err)
	return newAPIError(status, message, err)
}

// classify maps an error onto the API's taxonomy: InvalidRequest → 400,
// NotFound → 404, everything else → 500 with a generic message.
func classify(err error) (int, string) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status, ae.message
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	switch {
	case errors.Is(err, service.ErrInvalidID):
		return fiber.StatusBadRequest, "Invalid image id"
	case errors.Is(err, service.ErrFileRequired):
		return fiber.StatusBadRequest, "No file uploaded"
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound, "File not found"
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if s, ok := c.Locals(middleware.RequestIDLocalKey).(string); ok {
		return s
	}
	return ""
}

func writeError(c *fiber.Ctx, status int, message string, detail error, dev bool) error {
	res := envelope{
		Success:   false,
		Code:      status,
		Message:   message,
		RequestID: requestIDFromCtx(c),
	}
	if dev && detail != nil {
		res.Error = detail.Error()
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns the single fiber error handler every route funnels into.
// In development mode the full error chain is included in the "error" field.
func ErrorHandler(dev bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := classify(err)
		return writeError(c, status, message, err, dev)
	}
}
