package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "sundey-crm/pkg/errors"
)

type HTTPResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

type ErrorBody struct {
	Status  bool           `json:"status"`
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
	Body    interface{}    `json:"body,omitempty"`
}

const internalErrorMessage = "internal server error"

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HTTPResponse{Status: true, Body: body, Message: message})
}

// ErrorResponse maps err to an HTTP status and a structured body.
// Unexpected errors are logged and answered with a generic message.
func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		if httpErr.Err != nil {
			logger.Warn("HTTP error",
				zap.Int("code", httpErr.Code),
				zap.String("message", httpErr.Message),
				zap.Error(httpErr.Err),
				zap.Any("context", httpErr.Context),
			)
		}
		kind := apperrors.KindOf(httpErr.Err)
		if kind == "" || kind == apperrors.KindInternal {
			kind = kindForStatus(httpErr.Code)
		}
		return c.JSON(httpErr.Code, ErrorBody{Kind: kind, Message: httpErr.Message, Body: httpErr.Details})
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		fields := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", e.Field(), e.Tag()))
			fields[e.Field()] = e.Tag()
		}
		return c.JSON(http.StatusBadRequest, ErrorBody{
			Kind:    apperrors.KindValidation,
			Message: "validation failed: " + strings.Join(msgs, "; "),
			Body:    map[string]interface{}{"fields": fields},
		})
	}

	kind := apperrors.KindOf(err)
	switch kind {
	case apperrors.KindNotFound:
		return c.JSON(http.StatusNotFound, ErrorBody{Kind: kind, Message: err.Error()})
	case apperrors.KindInvalidTransition:
		var te *apperrors.InvalidTransitionError
		errors.As(err, &te)
		return c.JSON(http.StatusBadRequest, ErrorBody{
			Kind:    kind,
			Message: te.Error(),
			Body:    map[string]string{"from": te.From, "to": te.To},
		})
	case apperrors.KindCapacityExceeded:
		var ce *apperrors.CapacityExceededError
		errors.As(err, &ce)
		return c.JSON(http.StatusBadRequest, ErrorBody{
			Kind:    kind,
			Message: ce.Error(),
			Body:    map[string]interface{}{"type": ce.Type, "limit": ce.Limit},
		})
	case apperrors.KindValidation:
		var ie *apperrors.InvalidInputError
		errors.As(err, &ie)
		var body interface{}
		if ie.Field != "" {
			body = map[string]string{"field": ie.Field}
		}
		return c.JSON(http.StatusBadRequest, ErrorBody{Kind: kind, Message: ie.Message, Body: body})
	case apperrors.KindConflict:
		return c.JSON(http.StatusConflict, ErrorBody{Kind: kind, Message: err.Error()})
	case apperrors.KindUnauthorized:
		return c.JSON(http.StatusUnauthorized, ErrorBody{Kind: kind, Message: err.Error()})
	case apperrors.KindForbidden:
		return c.JSON(http.StatusForbidden, ErrorBody{Kind: kind, Message: err.Error()})
	}

	logger.Error("unexpected error",
		zap.String("method", c.Request().Method),
		zap.String("uri", c.Request().RequestURI),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, ErrorBody{Kind: apperrors.KindInternal, Message: internalErrorMessage})
}

func kindForStatus(code int) apperrors.Kind {
	switch code {
	case http.StatusBadRequest:
		return apperrors.KindValidation
	case http.StatusNotFound:
		return apperrors.KindNotFound
	case http.StatusConflict:
		return apperrors.KindConflict
	case http.StatusUnauthorized:
		return apperrors.KindUnauthorized
	case http.StatusForbidden:
		return apperrors.KindForbidden
	}
	return apperrors.KindInternal
}

// QueryInt reads a non-negative integer query parameter. Missing or
// malformed values fall back to def.
func QueryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
