package router

import (
	"github.com/labstack/echo/v4"

	"vendorchat/internal/adapter/api/handler"
	"vendorchat/internal/adapter/api/middleware"
	"vendorchat/internal/usecase"
)

// SetupThreadRouter mounts threads, messages and quotes under /v1/threads.
func SetupThreadRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter usecase.RateLimiter) {
	threadHandler := handler.GetThreadHandler()
	chatHandler := handler.GetChatHandler()
	quoteHandler := handler.GetQuoteHandler()

	threads := e.Group("/v1/threads")
	threads.Use(authMiddleware.Authenticate)
	threads.Use(middleware.RateLimit(limiter, "api"))

	threads.GET("", threadHandler.ListThreads)
	threads.POST("", threadHandler.OpenThread)
	threads.GET("/:id", threadHandler.GetThread)

	threads.GET("/:id/messages", chatHandler.GetMessages)
	threads.POST("/:id/messages", chatHandler.SendMessage)
	threads.POST("/:id/read", chatHandler.MarkRead)

	threads.GET("/:id/quote", quoteHandler.GetQuote)
	threads.POST("/:id/quote/accept", quoteHandler.AcceptQuote)
	threads.POST("/:id/quote/reject", quoteHandler.RejectQuote)
}
