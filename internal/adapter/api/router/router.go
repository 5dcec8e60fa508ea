package router

import (
	"github.com/labstack/echo/v4"

	"vendorchat/internal/adapter/api/middleware"
	"vendorchat/internal/usecase"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter usecase.RateLimiter, environment string) {
	SetupHealthRouter(e)
	SetupDevRouter(e, environment)
	SetupThreadRouter(e, authMiddleware, limiter)
	SetupWebSocketRouter(e, authMiddleware)
}
