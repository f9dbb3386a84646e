package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
)

// AuthMiddleware requires a valid JWT in "Authorization: Bearer" or the legacy "token" header.
// The user is reloaded (through the cache) so disabled or unapproved accounts lose access
// before their token expires.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			abortAuth(c, models.NewAuthError(models.AuthCodeUnauthorized, "authentication required"))
			return
		}

		validate, err := utils.JwtValidate(token)
		if err != nil || !validate.Valid {
			abortAuth(c, models.NewAuthError(models.AuthCodeUnauthorized, "unauthorized"))
			return
		}
		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || customClaim.ID <= 0 {
			abortAuth(c, models.NewAuthError(models.AuthCodeUnauthorized, "unauthorized"))
			return
		}

		ctx := c.Request.Context()
		user, err := models.GetCachedUser(ctx, customClaim.ID)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				abortAuth(c, models.NewAuthError(models.AuthCodeUnauthorized, "unauthorized"))
				return
			}
			config.LogError(config.GetLogger(), "AuthMiddleware", "GetCachedUser", "load user", customClaim.ID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !user.Active() {
			abortAuth(c, models.ErrUserInactive)
			return
		}
		if !user.IsApproved {
			abortAuth(c, models.ErrPendingApproval)
			return
		}

		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.FullName)
		if user.Role != nil {
			ctx = utils.SetRoleIdInContext(ctx, user.Role.ID)
		}
		ctx = utils.SetIsAdminInContext(ctx, user.Role.IsAdmin())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const bearer = "Bearer "
	if len(auth) > len(bearer) && strings.EqualFold(auth[:len(bearer)], bearer) {
		return strings.TrimSpace(auth[len(bearer):])
	}
	return strings.TrimSpace(r.Header.Get("token"))
}

func abortAuth(c *gin.Context, err *models.AuthError) {
	c.AbortWithStatusJSON(err.Status, gin.H{"error": err.Message, "code": err.Code})
}
