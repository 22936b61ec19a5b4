package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/villagefreeschool/adminportal-sub001/internal/middleware"
	"github.com/villagefreeschool/adminportal-sub001/internal/models"
)

// claimsFromContext returns the authenticated user's claims, or nil
// on routes the JWT middleware did not guard.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	v, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*models.JWTClaims)
	return claims
}
