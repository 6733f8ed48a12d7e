package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireUser rejects anonymous callers with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "not_authenticated",
				"message":    "sign in required",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin lets through only callers whose user id is listed in ids.
// An empty list locks the route for everyone.
func RequireAdmin(ids []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			allowed[id] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		uid := UserID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "not_authenticated",
				"message":    "sign in required",
			})
			return
		}
		if _, ok := allowed[uid]; !ok {
			LoggerFrom(c).Warn().Str("user_id", uid).Str("path", c.FullPath()).Msg("admin route denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "admin access required",
			})
			return
		}
		c.Next()
	}
}
