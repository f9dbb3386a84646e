package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/workflow"
	"github.com/sirupsen/logrus"
)

const activityCategoryAuth = "auth"

func Register() gin.HandlerFunc {
	return createHandler("Register", models.Register)
}

// Login records every attempt in the activity log, failed ones included.
func Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if !bindJSON(c, &input) {
			return
		}
		ctx := c.Request.Context()
		info, err := models.Login(ctx, input.Email, input.Password)

		entry := models.UserActivityLog{
			Category:    activityCategoryAuth,
			Action:      "login",
			Description: "login " + input.Email,
			Method:      c.Request.Method,
			Path:        c.FullPath(),
			UserAgent:   c.Request.UserAgent(),
			StatusCode:  http.StatusOK,
		}
		if err != nil {
			entry.Status = models.ActivityStatusFailed
			entry.Description += ": " + err.Error()
			entry.StatusCode = http.StatusUnauthorized
		} else {
			entry.UserId = &info.User.ID
			entry.UserName = info.User.FullName
		}
		if logErr := models.RecordActivity(ctx, &entry); logErr != nil {
			config.LogError(config.GetLogger(), "Handlers", "Login", "RecordActivity", input.Email, logErr)
		}

		if err != nil {
			respondError(c, "Login", err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := models.GetCurrentUser(c.Request.Context())
		if err != nil {
			respondError(c, "Me", err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func ChangePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.ChangePasswordInput
		if !bindJSON(c, &input) {
			return
		}
		if err := models.ChangePassword(c.Request.Context(), &input); err != nil {
			respondError(c, "ChangePassword", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type userQuery struct {
	filter *models.UserFilter
	sort   models.SortParams
	page   models.PageParams
}

func ListUsers() gin.HandlerFunc {
	parse := func(q *queryParser) userQuery {
		return userQuery{
			filter: &models.UserFilter{
				Search:     q.String("search"),
				RoleId:     q.IntPtr("roleId"),
				IsActive:   q.BoolPtr("isActive"),
				IsApproved: q.BoolPtr("isApproved"),
			},
			sort: q.Sort(),
			page: q.Page(),
		}
	}
	return listHandler("ListUsers", parse, func(ctx context.Context, uq userQuery) (*models.PagedResult[*models.User], error) {
		return models.GetUsersPaginated(ctx, uq.filter, uq.sort, uq.page)
	})
}

func GetUser() gin.HandlerFunc { return getHandler("GetUser", models.GetUser) }
func CreateUser() gin.HandlerFunc { return createHandler("CreateUser", models.CreateUser) }
func UpdateUser() gin.HandlerFunc { return updateHandler("UpdateUser", models.UpdateUser) }
func DeleteUser() gin.HandlerFunc { return deleteHandler("DeleteUser", models.DeleteUser) }
func ApproveUser() gin.HandlerFunc { return idActionHandler("ApproveUser", models.ApproveUser) }
func ToggleActiveUser() gin.HandlerFunc { return idActionHandler("ToggleActiveUser", models.ToggleActiveUser) }

func SetUserPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.SetPasswordInput
		if !bindJSON(c, &input) {
			return
		}
		if err := models.SetUserPassword(c.Request.Context(), id, &input); err != nil {
			respondError(c, "SetUserPassword", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func ListRoles() gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := models.GetRoles(c.Request.Context())
		if err != nil {
			respondError(c, "ListRoles", err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func GetRole() gin.HandlerFunc { return getHandler("GetRole", models.GetRole) }
func CreateRole() gin.HandlerFunc { return createHandler("CreateRole", models.CreateRole) }
func UpdateRole() gin.HandlerFunc { return updateHandler("UpdateRole", models.UpdateRole) }
func DeleteRole() gin.HandlerFunc { return deleteHandler("DeleteRole", models.DeleteRole) }

func GetRolePermissions() gin.HandlerFunc {
	return getHandler("GetRolePermissions", func(ctx context.Context, id int) (*[]*models.RolePermission, error) {
		permissions, err := models.GetRolePermissions(ctx, id)
		if err != nil {
			return nil, err
		}
		return &permissions, nil
	})
}

// SetRolePermissions replaces the whole matrix with the posted JSON array.
func SetRolePermissions() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input []*models.NewRolePermission
		if !bindJSON(c, &input) {
			return
		}
		results, err := models.SetRolePermissions(c.Request.Context(), id, input)
		if err != nil {
			respondError(c, "SetRolePermissions", err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

type activityQuery struct {
	filter *models.ActivityFilter
	sort   models.SortParams
	page   models.PageParams
}

func ListUserActivity() gin.HandlerFunc {
	parse := func(q *queryParser) activityQuery {
		return activityQuery{
			filter: &models.ActivityFilter{
				UserId:   q.IntPtr("userId"),
				Category: q.String("category"),
				Status:   models.ActivityStatus(q.String("status")),
				From:     q.DatePtr("from"),
				To:       q.DatePtr("to"),
				Search:   q.String("search"),
			},
			sort: q.Sort(),
			page: q.Page(),
		}
	}
	return listHandler("ListUserActivity", parse, func(ctx context.Context, aq activityQuery) (*models.PagedResult[*models.UserActivityLog], error) {
		return models.GetUserActivityPaginated(ctx, aq.filter, aq.sort, aq.page)
	})
}

// RunOverdueSweep runs the sweep synchronously and reports how many payments changed.
func RunOverdueSweep(sweeper *workflow.OverdueSweeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		changed, err := sweeper.RunOnce(c.Request.Context())
		if err != nil {
			respondError(c, "RunOverdueSweep", err)
			return
		}
		config.LogInfo(config.GetLogger(), "Handlers", "RunOverdueSweep", "manual overdue sweep", logrus.Fields{"changed": changed})
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}

type paymentEventQuery struct {
	filter *models.PaymentEventFilter
	sort   models.SortParams
	page   models.PageParams
}

func ListPaymentEvents() gin.HandlerFunc {
	parse := func(q *queryParser) paymentEventQuery {
		return paymentEventQuery{
			filter: &models.PaymentEventFilter{
				PaymentId:     q.IntPtr("paymentId"),
				PublishStatus: models.OutboxPublishStatus(q.String("publishStatus")),
			},
			sort: q.Sort(),
			page: q.Page(),
		}
	}
	return listHandler("ListPaymentEvents", parse, func(ctx context.Context, pq paymentEventQuery) (*models.PagedResult[*models.PaymentEvent], error) {
		return models.GetPaymentEventsPaginated(ctx, pq.filter, pq.sort, pq.page)
	})
}

func ReplayPaymentEvent() gin.HandlerFunc {
	return idActionHandler("ReplayPaymentEvent", models.ReplayPaymentEvent)
}
