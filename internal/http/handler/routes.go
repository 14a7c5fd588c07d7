package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"imagegallery/internal/service"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Images service.ImageService
	DB     Pinger
	Log    *zap.Logger
}

// RegisterRoutes sets up all application routes.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	v := newValidator()

	app.Get("/health", Health())
	if deps.DB != nil {
		app.Get("/readyz", Readiness(deps.DB))
	}

	images := app.Group("/images")
	images.Post("/upload", UploadImage(deps.Images, v))
	images.Get("/", ListImages(deps.Images))
	images.Get("/:id", DownloadImage(deps.Images, deps.Log))
	images.Delete("/:id", DeleteImage(deps.Images))
}
