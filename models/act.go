package models

import (
	"context"
	"strings"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Act is an acceptance certificate for delivered work.
type Act struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Number      string          `gorm:"size:50;not null;uniqueIndex" json:"number"`
	Title       string          `gorm:"size:200;not null" json:"title"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status      ActStatus       `gorm:"size:20;not null;index" json:"status"`
	ClientId    *int            `gorm:"index" json:"client_id"`
	ContractId  *int            `gorm:"index" json:"contract_id"`
	InvoiceId   *int            `gorm:"index" json:"invoice_id"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Client   *Client   `gorm:"foreignKey:ClientId" json:"client,omitempty"`
	Contract *Contract `gorm:"foreignKey:ContractId" json:"contract,omitempty"`
	Invoice  *Invoice  `gorm:"foreignKey:InvoiceId" json:"invoice,omitempty"`
}

type NewAct struct {
	Number      string          `json:"number" binding:"required,max=50"`
	Title       string          `json:"title" binding:"required,max=200"`
	Date        time.Time       `json:"date" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ActStatus       `json:"status"`
	ClientId    *int            `json:"client_id"`
	ContractId  *int            `json:"contract_id"`
	InvoiceId   *int            `json:"invoice_id"`
	Description string          `json:"description"`
}

var actAssociations = []string{"Client", "Contract", "Invoice"}

// validate input for both create & update. (id = 0 for create)
func (input *NewAct) validate(ctx context.Context, id int) error {
	input.Number = strings.TrimSpace(input.Number)
	if input.Number == "" {
		return utils.NewValidationError("number", "is required")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return utils.NewValidationError("title", "is required")
	}
	if input.Date.IsZero() {
		return utils.NewValidationError("date", "is required")
	}
	if input.Amount.IsNegative() {
		return utils.NewValidationError("amount", "cannot be negative")
	}
	if input.Status == "" {
		input.Status = ActStatusCreated
	}
	if !input.Status.IsValid() {
		return utils.NewValidationError("status", "invalid act status %q", input.Status)
	}
	if err := utils.ValidateUnique[Act](ctx, "number", input.Number, id); err != nil {
		return err
	}
	if err := utils.ValidateOptionalReference[Client](ctx, "client_id", input.ClientId); err != nil {
		return err
	}
	if err := utils.ValidateOptionalReference[Contract](ctx, "contract_id", input.ContractId); err != nil {
		return err
	}
	return utils.ValidateOptionalReference[Invoice](ctx, "invoice_id", input.InvoiceId)
}

func CreateAct(ctx context.Context, input *NewAct) (*Act, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	act := Act{
		Number:      input.Number,
		Title:       input.Title,
		Date:        input.Date,
		Amount:      utils.RoundMoney(input.Amount),
		Status:      input.Status,
		ClientId:    input.ClientId,
		ContractId:  input.ContractId,
		InvoiceId:   input.InvoiceId,
		Description: input.Description,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Omit(actAssociations...).Create(&act).Error; err != nil {
		return nil, err
	}
	return GetAct(ctx, act.ID)
}

func UpdateAct(ctx context.Context, id int, input *NewAct) (*Act, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	act, err := utils.FetchModel[Act](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(act).Updates(map[string]interface{}{
		"Number":      input.Number,
		"Title":       input.Title,
		"Date":        input.Date,
		"Amount":      utils.RoundMoney(input.Amount),
		"Status":      input.Status,
		"ClientId":    input.ClientId,
		"ContractId":  input.ContractId,
		"InvoiceId":   input.InvoiceId,
		"Description": input.Description,
	}).Error
	if err != nil {
		return nil, err
	}
	return GetAct(ctx, id)
}

func DeleteAct(ctx context.Context, id int) (*Act, error) {
	result, err := utils.FetchModel[Act](ctx, id)
	if err != nil {
		return nil, err
	}

	var objectKeys []string
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keys, err := deleteDocumentsOf(tx, DocumentReferenceAct, id)
		if err != nil {
			return err
		}
		objectKeys = keys
		return tx.Delete(result).Error
	})
	if err != nil {
		return nil, err
	}
	purgeDocumentObjects(ctx, objectKeys)
	return result, nil
}

func GetAct(ctx context.Context, id int) (*Act, error) {
	return utils.FetchModel[Act](ctx, id, actAssociations...)
}

type ActFilter struct {
	ClientId   *int
	ContractId *int
	Status     ActStatus
	From       *time.Time
	To         *time.Time
	Search     string
}

var actSort = sortSpec{
	table: "acts",
	columns: map[string]string{
		"number":    "acts.number",
		"title":     "acts.title",
		"date":      "acts.date",
		"amount":    "acts.amount",
		"status":    "acts.status",
		"createdat": "acts.created_at",
	},
	def: "acts.date DESC",
}

func (f *ActFilter) apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	if f.ClientId != nil {
		db = db.Where("acts.client_id = ?", *f.ClientId)
	}
	if f.ContractId != nil {
		db = db.Where("acts.contract_id = ?", *f.ContractId)
	}
	if f.Status != "" {
		db = db.Where("acts.status = ?", f.Status)
	}
	if f.From != nil {
		db = db.Where("acts.date >= ?", utils.DateOnly(*f.From))
	}
	if f.To != nil {
		db = db.Where("acts.date < ?", utils.DateOnly(*f.To).AddDate(0, 0, 1))
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		db = db.Where("(acts.number LIKE ? OR acts.title LIKE ?)", pattern, pattern)
	}
	return db
}

func GetActsPaginated(ctx context.Context, filter *ActFilter, sort SortParams, page PageParams) (*PagedResult[*Act], error) {
	db := config.GetDB().WithContext(ctx).Model(&Act{})
	return paginateQuery[Act](actSort.apply(filter.apply(db), sort), page, "Client", "Contract")
}
