// internal/utils/context.go
package utils

import (
	"github.com/gin-gonic/gin"

	"github.com/soundbridge/backend/internal/models"
)

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}

// GetTierFromContext returns the caller's subscription tier claim,
// defaulting to free when absent or unrecognized.
func GetTierFromContext(c *gin.Context) models.SubscriptionTier {
	value, exists := c.Get("subscription_tier")
	if !exists {
		return models.TierFree
	}
	tier, ok := value.(string)
	if !ok {
		return models.TierFree
	}
	t := models.SubscriptionTier(tier)
	if !t.Valid() {
		return models.TierFree
	}
	return t
}
