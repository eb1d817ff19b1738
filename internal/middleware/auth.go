package middleware

import (
	"chatrelay/internal/repository"

	"github.com/gin-gonic/gin"
)

// APIKeyAuth resolves the caller's instance from its API key and stashes it
// on the context as "instance_id". Handlers trust that scope; a key never
// grants access to another instance's queue.
func APIKeyAuth(repo repository.CredentialRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-Relay-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing API key"})
			return
		}

		instanceID, ok, err := repo.ValidateAPIKey(c.Request.Context(), apiKey)
		if err != nil || !ok {
			c.AbortWithStatusJSON(403, gin.H{"error": "forbidden"})
			return
		}

		c.Set("instance_id", instanceID)
		c.Next()
	}
}
