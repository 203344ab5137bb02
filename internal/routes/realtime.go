package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sundey-crm/internal/controllers"
	"sundey-crm/pkg/service"
	"sundey-crm/pkg/websocket"
)

func runRealtimeRouter(e *echo.Echo, hub *websocket.Hub, jwtSvc service.JWTService, allowedOrigins []string, logger *zap.Logger) {
	wsController := controllers.NewWebSocketController(hub, jwtSvc, allowedOrigins, logger)
	e.GET("/ws", wsController.ServeWs)
}
