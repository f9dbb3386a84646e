package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/sirupsen/logrus"
)

const CorrelationIdHeader = "X-Correlation-ID"

// CorrelationMiddleware generates a correlation id once per request and attaches it,
// with the client IP, to the request context.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(CorrelationIdHeader))
		if cid == "" || len(cid) > 64 {
			cid = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)
		ctx = utils.SetClientIPInContext(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Header(CorrelationIdHeader, cid)
		c.Next()
	}
}

// ActivityMiddleware writes a UserActivityLog row for every mutating request.
// Logging failures never change the response.
func ActivityMiddleware(category string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}
		status := models.ActivityStatusSuccess
		if c.Writer.Status() >= http.StatusBadRequest {
			status = models.ActivityStatusFailed
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		entry := models.UserActivityLog{
			Category:    category,
			Action:      activityAction(method),
			Description: fmt.Sprintf("%s %s", method, c.Request.URL.Path),
			Status:      status,
			Method:      method,
			Path:        path,
			StatusCode:  c.Writer.Status(),
			UserAgent:   c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			entry.Description += ": " + c.Errors.Last().Error()
		}
		if err := models.RecordActivity(c.Request.Context(), &entry); err != nil {
			config.LogError(config.GetLogger(), "ActivityMiddleware", "RecordActivity", category, path, err)
		}
	}
}

func activityAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return strings.ToLower(method)
}

// ErrorLogger logs only requests that recorded gin errors.
func ErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"method":         c.Request.Method,
				"path":           c.Request.URL.Path,
				"status":         c.Writer.Status(),
				"correlation_id": cid,
			}).Error(c.Errors.String())
		}
	}
}
