package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"campusBooks/pkg/logger"
	jsonres "campusBooks/pkg/response"
	"campusBooks/pkg/utils"

	"github.com/labstack/echo/v4"
)

type authError struct {
	status  int
	code    string
	message string
}

// authenticate verifies the bearer token and stores user_id, role and token on the context.
func authenticate(c echo.Context) *authError {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return &authError{http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header"}
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return &authError{http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format"}
	}

	tokenString := tokenParts[1]

	claims, err := utils.ParseJWT(tokenString)
	if err != nil {
		return &authError{http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token"}
	}

	expAt, err := claims.GetExpirationTime()
	if err != nil || expAt == nil || time.Now().After(expAt.Time) {
		return &authError{http.StatusForbidden, "FORBIDDEN", "Token expired"}
	}

	userIDUint, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil || userIDUint == 0 {
		logger.Error("invalid_token_user_id", "error", err)
		return &authError{http.StatusForbidden, "FORBIDDEN", "Invalid user ID in token"}
	}

	c.Set("user_id", uint(userIDUint))
	c.Set("role", claims.Role)
	c.Set("token", tokenString)

	return nil
}

// AuthMiddleware requires a valid JWT.
func AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ae := authenticate(c); ae != nil {
				return c.JSON(ae.status, jsonres.Error(ae.code, ae.message, nil))
			}

			return next(c)
		}
	}
}

// OptionalAuth identifies the user when a valid token is sent and otherwise
// continues anonymously. A malformed or expired token is treated as absent.
func OptionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}

			if ae := authenticate(c); ae != nil {
				logger.Debug("optional_auth_ignored", "reason", ae.message)
			}

			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := c.Get("role")
			roleStr, ok := role.(string)
			if !ok || strings.ToUpper(roleStr) != "ADMIN" {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Admin access required", nil,
				))
			}

			return next(c)
		}
	}
}
