// Package middleware provides Fiber middleware for the HTTP layer.
package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trustmail_server/pkg/apperr"
	"trustmail_server/pkg/logger"
)

// JWTAuth validates HS256 bearer tokens and stores the caller identity in
// request locals. Token strings are never logged.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// CORS preflight carries no credentials
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		var tokenString string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return apperr.Unauthorized("missing authorization")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unsupported signing method: %v", token.Header["alg"])
			}
			if secret == "" {
				return nil, fmt.Errorf("JWT secret not configured")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.WithError(err).Warn("JWT validation failed")
			return apperr.Unauthorized("invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return apperr.Unauthorized("invalid claims")
		}

		if exp, ok := claims["exp"].(float64); ok {
			if time.Now().Unix() > int64(exp) {
				return apperr.TokenExpired("session token expired")
			}
		}

		userIDStr, ok := claims["sub"].(string)
		if !ok {
			return apperr.Unauthorized("missing user id in token")
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			return apperr.Unauthorized("invalid user id format")
		}

		email := ""
		if emailClaim, ok := claims["email"].(string); ok {
			email = emailClaim
		}

		c.Locals("user_id", userID)
		c.Locals("user_email", email)

		return c.Next()
	}
}
