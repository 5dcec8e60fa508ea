package handler

import (
	"time"

	ws "vendorchat/internal/infrastructure/websocket"
	"vendorchat/internal/usecase"
)

var (
	threadHandler    *ThreadHandler
	chatHandler      *ChatHandler
	quoteHandler     *QuoteHandler
	websocketHandler *WebSocketHandler
)

func Setup(
	threadUseCase *usecase.ThreadUseCase,
	chatUseCase *usecase.ChatUseCase,
	quoteUseCase *usecase.QuoteUseCase,
	wsManager *ws.Manager,
	pollInterval time.Duration,
) {
	threadHandler = NewThreadHandler(threadUseCase)
	chatHandler = NewChatHandler(chatUseCase, pollInterval)
	quoteHandler = NewQuoteHandler(quoteUseCase)
	websocketHandler = NewWebSocketHandler(wsManager)
}

func GetThreadHandler() *ThreadHandler {
	return threadHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetQuoteHandler() *QuoteHandler {
	return quoteHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return websocketHandler
}
