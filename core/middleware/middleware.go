package middleware

import (
	"context"
	"net/http"
	"strings"

	"winetour-api/core/constants"
	"winetour-api/core/controller"
	"winetour-api/core/errors"
	"winetour-api/core/logger"
	"winetour-api/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RevocationChecker is the part of the cache the JWT guard needs.
type RevocationChecker interface {
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

type Middleware struct {
	jwtSecret string
	cache     RevocationChecker
}

func NewMiddleware(jwtSecret string, cache RevocationChecker) *Middleware {
	return &Middleware{
		jwtSecret: jwtSecret,
		cache:     cache,
	}
}

// AuthMiddleware guards private routes with a bearer JWT and stores its claims on the context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrMissingAuthorizationHeader, "missing authorization header")
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrInvalidTokenFormat, "invalid authorization header format")
			}

			claims, err := utils.ValidateAndParseToken(m.jwtSecret, token)
			if err != nil {
				logger.Warn("Middleware:AuthMiddleware:ValidateAndParseToken:Error", "error", err)
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrUnauthorized, "invalid or expired token")
			}

			if m.cache != nil && claims.ID != "" {
				blacklisted, err := m.cache.IsTokenBlacklisted(c.Request().Context(), claims.ID)
				if err != nil {
					logger.Error("Middleware:AuthMiddleware:IsTokenBlacklisted:Error", "error", err)
					return controller.NewErrorResponse(http.StatusInternalServerError, errors.ErrInternalServer, "failed to check token")
				}
				if blacklisted {
					return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrUnauthorized, "token has been revoked")
				}
			}

			c.Set(constants.ContextTokenData, claims)
			c.Set(constants.ContextUserID, claims.UserID)
			return next(c)
		}
	}
}

// UserIDFromContext returns the authenticated user set by AuthMiddleware.
func UserIDFromContext(c echo.Context) (uuid.UUID, error) {
	tokenData := c.Get(constants.ContextTokenData)
	if tokenData == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}

	claims, ok := tokenData.(*utils.TokenClaims)
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid token data", nil)
	}

	return claims.UserID, nil
}

// TokenClaimsFromContext returns the full claims of the authenticated request.
func TokenClaimsFromContext(c echo.Context) (*utils.TokenClaims, error) {
	claims, ok := c.Get(constants.ContextTokenData).(*utils.TokenClaims)
	if !ok || claims == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}
	return claims, nil
}
