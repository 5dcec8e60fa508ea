package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"vendorchat/internal/domain/entity"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/response"
)

// TokenIssuer mints tokens for local testing.
type TokenIssuer interface {
	GenerateDevToken(ctx context.Context, who entity.Identity) (string, error)
}

type DevTokenHandler struct {
	issuer TokenIssuer
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(issuer TokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{issuer: issuer}
}

func SetupDevTokenHandler(issuer TokenIssuer) {
	devTokenHandler = NewDevTokenHandler(issuer)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

// GenerateToken mints a token for ?userId=&role=customer|vendor.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return response.Error(c, errors.BadRequest("userId is required", nil))
	}
	role, err := entity.ParseRole(c.QueryParam("role"))
	if err != nil {
		return response.Error(c, errors.BadRequest("role must be customer or vendor", err))
	}

	who := entity.Identity{UserID: userID, Role: role}
	token, err := h.issuer.GenerateDevToken(c.Request().Context(), who)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to generate token", err))
	}

	return response.Success(c, map[string]interface{}{
		"token":  token,
		"userId": userID,
		"role":   role,
	})
}
