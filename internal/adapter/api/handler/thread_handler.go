package handler

import (
	"github.com/labstack/echo/v4"

	"vendorchat/internal/adapter/api/middleware"
	"vendorchat/internal/usecase"
	"vendorchat/pkg/response"
	"vendorchat/pkg/utils"
)

type ThreadHandler struct {
	threadUseCase *usecase.ThreadUseCase
}

func NewThreadHandler(threadUseCase *usecase.ThreadUseCase) *ThreadHandler {
	return &ThreadHandler{threadUseCase: threadUseCase}
}

type openThreadRequest struct {
	CounterpartID string  `json:"counterpartId" validate:"required,max=128"`
	BookingID     *string `json:"bookingId" validate:"omitempty,max=128"`
}

// ListThreads returns the caller's inbox, most recent activity first.
func (h *ThreadHandler) ListThreads(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	p := utils.GetPaginationParams(c, 20, 100)
	threads, total, err := h.threadUseCase.ListThreads(c.Request().Context(), who, p.Limit, p.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, threads, total, p.Limit, p.Offset, len(threads))
}

func (h *ThreadHandler) GetThread(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	thread, err := h.threadUseCase.GetThread(c.Request().Context(), who, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, thread)
}

// OpenThread finds or creates the thread with a counterpart.
func (h *ThreadHandler) OpenThread(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req openThreadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	thread, created, err := h.threadUseCase.OpenThread(c.Request().Context(), who, usecase.OpenThreadInput{
		CounterpartID: req.CounterpartID,
		BookingID:     req.BookingID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if created {
		return response.Created(c, thread)
	}
	return response.Success(c, thread)
}
