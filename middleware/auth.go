package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"splitbills-backend/utils"
)

// AuthRequired verifies the bearer token and stores the caller's id and
// email in the gin context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			utils.Unauthorized(c, "Missing bearer token")
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(token))
		if err != nil {
			utils.Unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(utils.ContextUserID, claims.UserID)
		c.Set(utils.ContextEmail, claims.Email)
		c.Next()
	}
}
