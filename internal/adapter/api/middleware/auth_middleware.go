package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/usecase"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/logger"
)

const (
	identityKey = "identity"
	// TokenQueryParam carries the token where headers cannot be set, such
	// as a browser websocket handshake.
	TokenQueryParam = "access_token"
)

type AuthMiddleware struct {
	verifier usecase.TokenVerifier
}

func NewAuthMiddleware(verifier usecase.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate resolves the bearer token to an identity. Every failure gets
// the same generic 401.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return errors.Unauthorized("Authentication required", nil)
		}

		who, err := m.verifier.Verify(c.Request().Context(), token)
		if err != nil {
			logger.Debug("Authenticate: %v", err)
			return errors.Unauthorized("Authentication required", nil)
		}

		c.Set(identityKey, who)
		c.Set("uid", who.UserID)
		return next(c)
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return c.QueryParam(TokenQueryParam)
}

// CurrentIdentity returns the identity set by Authenticate.
func CurrentIdentity(c echo.Context) (entity.Identity, error) {
	who, ok := c.Get(identityKey).(entity.Identity)
	if !ok || who.UserID == "" {
		return entity.Identity{}, errors.Unauthorized("Authentication required", nil)
	}
	return who, nil
}
