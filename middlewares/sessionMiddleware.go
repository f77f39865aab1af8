package middlewares

import (
	"net/http"
	"strconv"

	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves a session token issued by the web frontend.
// Redis holds Token:<token> -> user id.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		value, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		userId, err := strconv.ParseUint(value, 10, 64)
		if err != nil || userId == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUserIdInContext(ctx, uint(userId))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
