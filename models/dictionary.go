package models

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
)

// DictionaryEntry holds the columns shared by every lookup table.
type DictionaryEntry struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	ColorHex    string    `gorm:"size:9" json:"color_hex"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *DictionaryEntry) entry() *DictionaryEntry { return e }

type DealType struct {
	DictionaryEntry
}

func (DealType) paymentForeignKey() string { return "deal_type_id" }

// IncomeType is restricted to payments of PaymentType when set.
type IncomeType struct {
	DictionaryEntry
	PaymentType PaymentType `gorm:"size:20" json:"payment_type"`
}

func (IncomeType) paymentForeignKey() string { return "income_type_id" }

type PaymentSource struct {
	DictionaryEntry
}

func (PaymentSource) paymentForeignKey() string { return "payment_source_id" }

// PaymentStatusEntity is a user-defined status label; the derived Payment.Status is separate.
type PaymentStatusEntity struct {
	DictionaryEntry
}

func (PaymentStatusEntity) paymentForeignKey() string { return "payment_status_id" }

// DictionaryModel is satisfied by pointers to the lookup table types.
type DictionaryModel[T any] interface {
	*T
	entry() *DictionaryEntry
	paymentForeignKey() string
}

type NewDictionaryEntry struct {
	Name        string      `json:"name" binding:"required,max=100"`
	Description string      `json:"description" binding:"max=500"`
	ColorHex    string      `json:"color_hex"`
	IsActive    *bool       `json:"is_active"`
	PaymentType PaymentType `json:"payment_type"`
}

var colorHexPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// validate input for both create & update. (id = 0 for create)
func validateDictionaryEntry[T any](ctx context.Context, input *NewDictionaryEntry, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.NewValidationError("name", "is required")
	}
	if input.ColorHex != "" && !colorHexPattern.MatchString(input.ColorHex) {
		return utils.NewValidationError("color_hex", "must look like #RRGGBB")
	}
	if input.PaymentType != "" && !input.PaymentType.IsValid() {
		return utils.NewValidationError("payment_type", "must be Income or Expense")
	}
	return utils.ValidateUnique[T](ctx, "name", input.Name, id)
}

func applyDictionaryInput[T any, PT DictionaryModel[T]](model PT, input *NewDictionaryEntry) {
	e := model.entry()
	e.Name = input.Name
	e.Description = input.Description
	e.ColorHex = input.ColorHex
	if input.IsActive != nil {
		e.IsActive = input.IsActive
	}
	if it, ok := any(model).(*IncomeType); ok {
		it.PaymentType = input.PaymentType
	}
}

func CreateDictionaryEntry[T any, PT DictionaryModel[T]](ctx context.Context, input *NewDictionaryEntry) (*T, error) {
	if err := validateDictionaryEntry[T](ctx, input, 0); err != nil {
		return nil, err
	}

	var result T
	PT(&result).entry().IsActive = utils.NewTrue()
	applyDictionaryInput[T, PT](PT(&result), input)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func UpdateDictionaryEntry[T any, PT DictionaryModel[T]](ctx context.Context, id int, input *NewDictionaryEntry) (*T, error) {
	if err := validateDictionaryEntry[T](ctx, input, id); err != nil {
		return nil, err
	}

	result, err := utils.FetchModel[T](ctx, id)
	if err != nil {
		return nil, err
	}
	applyDictionaryInput[T, PT](PT(result), input)

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(result).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[T](id); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDictionaryEntry removes the entry and clears it from every payment referencing it.
func DeleteDictionaryEntry[T any, PT DictionaryModel[T]](ctx context.Context, id int) (*T, error) {
	result, err := utils.FetchModel[T](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	column := PT(result).paymentForeignKey()
	if err := tx.WithContext(ctx).Model(&Payment{}).Where(column+" = ?", id).
		UpdateColumn(column, nil).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[T](id); err != nil {
		return nil, err
	}
	return result, nil
}

func GetDictionaryEntry[T any](ctx context.Context, id int) (*T, error) {
	return utils.FetchModel[T](ctx, id)
}

// GetDictionaryEntries lists entries by name; activeOnly hides inactive ones.
func GetDictionaryEntries[T any](ctx context.Context, search string, activeOnly bool) ([]*T, error) {
	var results []*T
	dbCtx := config.GetDB().WithContext(ctx)
	if search = strings.TrimSpace(search); search != "" {
		dbCtx = dbCtx.Where("name LIKE ?", likePattern(search))
	}
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
