package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
)

// RequirePermission lets the request through when the caller's role allows action on section.
// Admins pass every check. Must run after AuthMiddleware.
func RequirePermission(section string, action models.PermissionAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.CheckPermission(c.Request.Context(), section, action); err != nil {
			var authErr *models.AuthError
			if errors.As(err, &authErr) {
				abortAuth(c, authErr)
				return
			}
			config.LogError(config.GetLogger(), "PermissionMiddleware", "CheckPermission", section, action, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.Next()
	}
}

// RequireAdmin restricts a route to the system Admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context()); !isAdmin {
			abortAuth(c, models.NewAuthError(models.AuthCodeForbidden, "administrator role required"))
			return
		}
		c.Next()
	}
}
