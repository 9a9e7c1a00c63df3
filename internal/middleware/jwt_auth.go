package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/labstack/echo/v4"
)

const claimsKey = "user"

// JWTAuthMiddleware checks for a valid JWT and extracts user claims. The
// token is read from the Authorization header, or from the "token" query
// parameter for websocket upgrades that cannot set headers.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil {
				if err == jwt.ErrSignatureInvalid {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token signature")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			if !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			// Store user claims in context
			c.Set(claimsKey, claims)

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}

// Claims returns the claims stored by JWTAuthMiddleware, or nil.
func Claims(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(claimsKey).(*models.JwtCustomClaims)
	return claims
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// IsAdmin reports whether the caller has the ADMIN role.
func IsAdmin(c echo.Context) bool {
	claims := Claims(c)
	return claims != nil && claims.Role == models.RoleAdmin
}

// RequireAdmin rejects callers without the ADMIN role.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAdmin(c) {
				return echo.NewHTTPError(http.StatusForbidden, "Admin role required")
			}
			return next(c)
		}
	}
}
