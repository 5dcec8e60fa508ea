package router

import (
	"github.com/labstack/echo/v4"

	"vendorchat/internal/adapter/api/handler"
	"vendorchat/internal/adapter/api/middleware"
)

// SetupWebSocketRouter mounts /ws. Browsers pass the token as ?access_token=.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", handler.GetWebSocketHandler().HandleWebSocket, authMiddleware.Authenticate)
}
