package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"vendorchat/internal/adapter/api/middleware"
	"vendorchat/internal/domain/entity"
	"vendorchat/internal/usecase"
	"vendorchat/pkg/response"
	"vendorchat/pkg/utils"
)

type ChatHandler struct {
	chatUseCase  *usecase.ChatUseCase
	pollInterval time.Duration
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, pollInterval time.Duration) *ChatHandler {
	return &ChatHandler{
		chatUseCase:  chatUseCase,
		pollInterval: pollInterval,
	}
}

type attachmentRequest struct {
	Type string `json:"type" validate:"omitempty,max=32"`
	URL  string `json:"url" validate:"required,max=2048"`
	Name string `json:"name" validate:"max=255"`
	Size int64  `json:"size" validate:"gte=0"`
}

type sendMessageRequest struct {
	Content     *string             `json:"content"`
	Attachments []attachmentRequest `json:"attachments" validate:"max=10,dive"`
}

type markReadRequest struct {
	MessageIDs []string `json:"messageIds" validate:"omitempty,max=500,dive,uuid"`
}

type messagePageResponse struct {
	*usecase.MessagePage
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
}

// GetMessages returns a page of history and, unless markRead=false,
// acknowledges the counterpart's messages.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	params, err := utils.GetCursorParams(c)
	if err != nil {
		return response.Error(c, err)
	}

	page, err := h.chatUseCase.ListMessages(c.Request().Context(), who, usecase.MessagePageRequest{
		ThreadID:        c.Param("id"),
		Limit:           params.Limit,
		Offset:          params.Offset,
		Before:          params.Before,
		Sort:            params.Sort,
		AcknowledgeRead: params.MarkRead,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messagePageResponse{
		MessagePage:         page,
		PollIntervalSeconds: int(h.pollInterval / time.Second),
	})
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	attachments := make([]entity.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, entity.Attachment{Type: a.Type, URL: a.URL, Name: a.Name, Size: a.Size})
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), who, usecase.SendMessageInput{
		ThreadID:    c.Param("id"),
		Content:     req.Content,
		Attachments: attachments,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkRead acknowledges all of the counterpart's messages, or only
// messageIds when given.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req markReadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.chatUseCase.MarkRead(c.Request().Context(), who, c.Param("id"), req.MessageIDs)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}
