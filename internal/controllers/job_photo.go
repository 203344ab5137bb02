package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sundey-crm/internal/dto"
	"sundey-crm/internal/services"
	apperrors "sundey-crm/pkg/errors"
	"sundey-crm/pkg/utils"
)

type JobPhotoController struct {
	jobPhotoService services.JobPhotoServiceInterface
	logger          *zap.Logger
}

func NewJobPhotoController(jobPhotoService services.JobPhotoServiceInterface, logger *zap.Logger) *JobPhotoController {
	return &JobPhotoController{jobPhotoService: jobPhotoService, logger: logger}
}

// SaveJobPhotos records photos the client already uploaded with presigned URLs.
func (c *JobPhotoController) SaveJobPhotos(ctx echo.Context) error {
	var data dto.SaveJobPhotosDTO
	if err := ctx.Bind(&data); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil), c.logger)
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.jobPhotoService.SaveJobPhotos(ctx.Request().Context(), ctx.Param("id"), data.Photos)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "photos saved", http.StatusCreated)
}

func (c *JobPhotoController) GeneratePresignedURL(ctx echo.Context) error {
	var data dto.GeneratePresignedURLDTO
	if err := ctx.Bind(&data); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil), c.logger)
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.jobPhotoService.GeneratePresignedURL(ctx.Request().Context(), ctx.Param("id"), ctx.Param("type"), data)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "presigned url generated", http.StatusOK)
}

// UploadPhotos accepts multipart files in the "files" field.
func (c *JobPhotoController) UploadPhotos(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("files", "multipart form with files is required"), c.logger)
	}

	res, err := c.jobPhotoService.UploadPhotos(ctx.Request().Context(), ctx.Param("id"), ctx.Param("type"), form.File["files"])
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "photos uploaded", http.StatusCreated)
}
