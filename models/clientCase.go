package models

import (
	"context"
	"strings"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"gorm.io/gorm"
)

// ClientCase groups payments of one matter (a deal, a lawsuit, a project) for a client.
type ClientCase struct {
	ID          int        `gorm:"primary_key" json:"id"`
	ClientId    *int       `gorm:"index" json:"client_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      CaseStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Client *Client `gorm:"foreignKey:ClientId" json:"client,omitempty"`
}

type NewClientCase struct {
	ClientId    *int       `json:"client_id"`
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	Status      CaseStatus `json:"status"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewClientCase) validate(ctx context.Context, id int) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return utils.NewValidationError("title", "is required")
	}
	if input.Status == "" {
		input.Status = CaseStatusOpen
	}
	if !input.Status.IsValid() {
		return utils.NewValidationError("status", "invalid case status %q", input.Status)
	}
	return utils.ValidateOptionalReference[Client](ctx, "client_id", input.ClientId)
}

func CreateClientCase(ctx context.Context, input *NewClientCase) (*ClientCase, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	clientCase := ClientCase{
		ClientId:    input.ClientId,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Omit("Client").Create(&clientCase).Error; err != nil {
		return nil, err
	}
	return GetClientCase(ctx, clientCase.ID)
}

// UpdateClientCase moves the case's payments along when the case changes client.
func UpdateClientCase(ctx context.Context, id int, input *NewClientCase) (*ClientCase, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	clientCase, err := utils.FetchModel[ClientCase](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(clientCase).Updates(map[string]interface{}{
			"ClientId":    input.ClientId,
			"Title":       input.Title,
			"Description": input.Description,
			"Status":      input.Status,
		}).Error; err != nil {
			return err
		}
		if input.ClientId != nil && !sameIntPtr(clientCase.ClientId, input.ClientId) {
			return tx.Model(&Payment{}).Where("client_case_id = ?", id).
				UpdateColumn("client_id", *input.ClientId).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetClientCase(ctx, id)
}

// DeleteClientCase detaches the case's payments before removing it.
func DeleteClientCase(ctx context.Context, id int) (*ClientCase, error) {
	result, err := utils.FetchModel[ClientCase](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Payment{}).Where("client_case_id = ?", id).
			UpdateColumn("client_case_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(result).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetClientCase(ctx context.Context, id int) (*ClientCase, error) {
	return utils.FetchModel[ClientCase](ctx, id, "Client")
}

type ClientCaseFilter struct {
	ClientId *int
	Status   CaseStatus
	Search   string
}

var clientCaseSort = sortSpec{
	table: "client_cases",
	columns: map[string]string{
		"title":     "client_cases.title",
		"status":    "client_cases.status",
		"createdat": "client_cases.created_at",
	},
	def: "client_cases.created_at DESC",
}

func (f *ClientCaseFilter) apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	if f.ClientId != nil {
		db = db.Where("client_cases.client_id = ?", *f.ClientId)
	}
	if f.Status != "" {
		db = db.Where("client_cases.status = ?", f.Status)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		db = db.Where("(client_cases.title LIKE ? OR client_cases.description LIKE ?)", pattern, pattern)
	}
	return db
}

func GetClientCases(ctx context.Context, filter *ClientCaseFilter, sort SortParams) ([]*ClientCase, error) {
	var results []*ClientCase
	db := config.GetDB().WithContext(ctx).Model(&ClientCase{}).Preload("Client")
	if err := clientCaseSort.apply(filter.apply(db), sort).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetClientCasesPaginated(ctx context.Context, filter *ClientCaseFilter, sort SortParams, page PageParams) (*PagedResult[*ClientCase], error) {
	db := config.GetDB().WithContext(ctx).Model(&ClientCase{})
	return paginateQuery[ClientCase](clientCaseSort.apply(filter.apply(db), sort), page, "Client")
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
