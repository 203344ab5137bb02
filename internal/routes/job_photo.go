package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sundey-crm/internal/controllers"
	"sundey-crm/internal/services"
)

func runJobPhotoRouter(secureGroup *echo.Group, jobPhotoService services.JobPhotoServiceInterface, logger *zap.Logger) {
	jobPhotoController := controllers.NewJobPhotoController(jobPhotoService, logger)

	secureGroup.POST("/reservations/:id/photos/presigned-url/:type", jobPhotoController.GeneratePresignedURL)
	secureGroup.POST("/reservations/:id/photos/confirm", jobPhotoController.SaveJobPhotos)
	secureGroup.POST("/reservations/:id/photos/:type", jobPhotoController.UploadPhotos)
}
