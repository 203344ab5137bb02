package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sundey-crm/internal/dto"
	apperrors "sundey-crm/pkg/errors"
	"sundey-crm/pkg/service"
	"sundey-crm/pkg/utils"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		logger:     logger,
	}
}

// Auth validates the bearer token and stores the caller in the request context.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("AuthMiddleware: token validation failed", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}

		actor := dto.Actor{UserID: claims.UserID, CompanyID: claims.CompanyID, Role: claims.Role}
		c.SetRequest(c.Request().WithContext(utils.ContextWithActor(c.Request().Context(), actor)))

		m.logger.Debug("AuthMiddleware: authenticated",
			zap.String("userID", claims.UserID),
			zap.String("companyID", claims.CompanyID),
		)
		return next(c)
	}
}
