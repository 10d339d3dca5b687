package middlewares

import (
	"strings"

	t_token "video_to_mp3_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	// HeaderToken token in Authorization header
	HeaderToken = "Authorization"

	// QueryToken token in query name
	QueryToken = "auth"

	// TokenUsername get username form token, set c.locals name
	TokenUsername = "Username"
)

// JWTMiddleware validates JWT in the Authorization header
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get token from Authorization header
		tokenStr := c.Get(HeaderToken)
		tokenStr = strings.TrimPrefix(tokenStr, "Bearer ")

		// 如果 header 中沒有 token，則嘗試從查詢參數中獲取
		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}

		// 如果仍然沒有 token，則返回未授權錯誤
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		// Parse and validate token
		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		// Extract claims and pass them to the context
		c.Locals(TokenUsername, claims.Username)

		return c.Next()
	}
}
