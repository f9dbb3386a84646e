package models

import (
	"context"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"gorm.io/gorm"
)

// UserActivityLog is append-only; rows are never updated.
type UserActivityLog struct {
	ID            int            `gorm:"primary_key" json:"id"`
	UserId        *int           `gorm:"index" json:"user_id"`
	UserName      string         `gorm:"size:200" json:"user_name"`
	Category      string         `gorm:"size:50;index" json:"category"`
	Action        string         `gorm:"size:100" json:"action"`
	Description   string         `gorm:"size:1000" json:"description"`
	Status        ActivityStatus `gorm:"size:20;not null;index" json:"status"`
	Method        string         `gorm:"size:10" json:"method"`
	Path          string         `gorm:"size:500" json:"path"`
	StatusCode    int            `json:"status_code"`
	IpAddress     string         `gorm:"size:64" json:"ip_address"`
	UserAgent     string         `gorm:"size:500" json:"user_agent"`
	CorrelationId string         `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// RecordActivity appends entry, filling user and request fields missing from ctx.
func RecordActivity(ctx context.Context, entry *UserActivityLog) error {
	if entry.UserId == nil {
		entry.UserId = utils.GetUserIdPtrFromContext(ctx)
	}
	if entry.UserName == "" {
		entry.UserName, _ = utils.GetUserNameFromContext(ctx)
	}
	if entry.CorrelationId == "" {
		entry.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	}
	if entry.IpAddress == "" {
		entry.IpAddress, _ = utils.GetClientIPFromContext(ctx)
	}
	if entry.Status == "" {
		entry.Status = ActivityStatusSuccess
	}
	entry.Description = utils.TruncateRunes(entry.Description, 1000)
	entry.UserAgent = utils.TruncateRunes(entry.UserAgent, 500)
	entry.Path = utils.TruncateRunes(entry.Path, 500)
	return config.GetDB().WithContext(ctx).Create(entry).Error
}

type ActivityFilter struct {
	UserId   *int
	Category string
	Status   ActivityStatus
	From     *time.Time
	To       *time.Time
	Search   string
}

var activitySort = sortSpec{
	table: "user_activity_logs",
	columns: map[string]string{
		"createdat": "user_activity_logs.created_at",
		"username":  "user_activity_logs.user_name",
		"category":  "user_activity_logs.category",
		"status":    "user_activity_logs.status",
	},
	def: "user_activity_logs.created_at DESC",
}

func (f *ActivityFilter) apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	if f.UserId != nil {
		db = db.Where("user_activity_logs.user_id = ?", *f.UserId)
	}
	if f.Category != "" {
		db = db.Where("user_activity_logs.category = ?", f.Category)
	}
	if f.Status != "" {
		db = db.Where("user_activity_logs.status = ?", f.Status)
	}
	if f.From != nil {
		db = db.Where("user_activity_logs.created_at >= ?", utils.DateOnly(*f.From))
	}
	if f.To != nil {
		db = db.Where("user_activity_logs.created_at < ?", utils.DateOnly(*f.To).AddDate(0, 0, 1))
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		db = db.Where("(user_activity_logs.action LIKE ? OR user_activity_logs.description LIKE ? OR user_activity_logs.user_name LIKE ?)",
			pattern, pattern, pattern)
	}
	return db
}

func GetUserActivityPaginated(ctx context.Context, filter *ActivityFilter, sort SortParams, page PageParams) (*PagedResult[*UserActivityLog], error) {
	db := config.GetDB().WithContext(ctx).Model(&UserActivityLog{})
	return paginateQuery[UserActivityLog](activitySort.apply(filter.apply(db), sort), page)
}
