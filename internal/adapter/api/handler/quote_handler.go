package handler

import (
	"github.com/labstack/echo/v4"

	"vendorchat/internal/adapter/api/middleware"
	"vendorchat/internal/usecase"
	"vendorchat/pkg/response"
)

type QuoteHandler struct {
	quoteUseCase *usecase.QuoteUseCase
}

func NewQuoteHandler(quoteUseCase *usecase.QuoteUseCase) *QuoteHandler {
	return &QuoteHandler{quoteUseCase: quoteUseCase}
}

type acceptQuoteRequest struct {
	AcceptTerms bool   `json:"acceptTerms"`
	Notes       string `json:"notes" validate:"max=1000"`
}

type rejectQuoteRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func (h *QuoteHandler) GetQuote(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	quote, err := h.quoteUseCase.GetQuote(c.Request().Context(), who, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, quote)
}

func (h *QuoteHandler) AcceptQuote(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req acceptQuoteRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	decision, err := h.quoteUseCase.AcceptQuote(c.Request().Context(), who, usecase.AcceptQuoteInput{
		ThreadID:    c.Param("id"),
		AcceptTerms: req.AcceptTerms,
		Notes:       req.Notes,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, decision)
}

func (h *QuoteHandler) RejectQuote(c echo.Context) error {
	who, err := middleware.CurrentIdentity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req rejectQuoteRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	decision, err := h.quoteUseCase.RejectQuote(c.Request().Context(), who, usecase.RejectQuoteInput{
		ThreadID: c.Param("id"),
		Reason:   req.Reason,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, decision)
}
