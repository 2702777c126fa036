package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/VinceIver/gis-portal/internal/middleware"
	"github.com/VinceIver/gis-portal/internal/models"
)

// claimsFromContext extracts the JWT claims stored by the auth middleware.
func claimsFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(middleware.ContextAdminKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
