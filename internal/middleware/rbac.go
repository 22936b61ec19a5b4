package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
	"github.com/villagefreeschool/adminportal-sub001/pkg/response"
)

// RBAC enforces role-based access control for routes. Besides role
// names, two sentinels are recognised: "SELF" matches when the :id path
// parameter equals the caller's user ID, and "FAMILY" matches when the
// caller is a guardian whose family owns the targeted resource (the
// :id or :familyId path parameter equals the claims' family ID).
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		allowSelf := false
		allowFamily := false
		allowedRoles := make(map[models.UserRole]struct{})

		for _, a := range allowed {
			switch a {
			case "SELF":
				allowSelf = true
			case "FAMILY":
				allowFamily = true
			default:
				allowedRoles[models.UserRole(a)] = struct{}{}
			}
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		if allowFamily {
			target := c.Param("familyId")
			if target == "" {
				target = c.Param("id")
			}
			if claims.OwnsFamily(target) {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
