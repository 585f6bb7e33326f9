package middleware

import (
	"net/http"
	"strings"

	"articleqa/policy"
	"articleqa/services"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// AuthMiddleware validates the bearer token and stores the resulting
// actor in the request context.
func AuthMiddleware(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		const scheme = "Bearer "
		if !strings.HasPrefix(header, scheme) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}
		tokenString := strings.TrimPrefix(header, scheme)
		actor, err := tokens.Validate(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the authenticated actor set by AuthMiddleware.
func ActorFrom(c *gin.Context) (policy.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return policy.Actor{}, false
	}
	actor, ok := v.(policy.Actor)
	return actor, ok
}
