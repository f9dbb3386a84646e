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

type Client struct {
	ID        int              `gorm:"primary_key" json:"id"`
	Name      string           `gorm:"size:200;not null;index" json:"name"`
	Email     string           `gorm:"size:200" json:"email"`
	Phone     string           `gorm:"size:30" json:"phone"`
	Address   string           `gorm:"size:500" json:"address"`
	Notes     string           `gorm:"type:text" json:"notes"`
	IsActive  *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	Companies []*ClientCompany `gorm:"foreignKey:ClientId" json:"companies,omitempty"`
}

type NewClient struct {
	Name     string `json:"name" binding:"required,max=200"`
	Email    string `json:"email" binding:"max=200"`
	Phone    string `json:"phone"`
	Address  string `json:"address" binding:"max=500"`
	Notes    string `json:"notes"`
	IsActive *bool  `json:"is_active"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewClient) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.NewValidationError("name", "is required")
	}
	input.Email = strings.TrimSpace(input.Email)
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return utils.NewValidationError("email", "invalid email address")
	}
	phone, err := utils.NormalizePhoneNumber(input.Phone, config.PhoneDefaultRegion())
	if err != nil {
		return err
	}
	input.Phone = phone
	return nil
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	client := Client{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		Notes:    input.Notes,
		IsActive: utils.NewTrue(),
	}
	if input.IsActive != nil {
		client.IsActive = input.IsActive
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func UpdateClient(ctx context.Context, id int, input *NewClient) (*Client, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	client, err := utils.FetchModel[Client](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Name":    input.Name,
		"Email":   input.Email,
		"Phone":   input.Phone,
		"Address": input.Address,
		"Notes":   input.Notes,
	}
	if input.IsActive != nil {
		updates["IsActive"] = *input.IsActive
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(client).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetClient(ctx, id)
}

// DeleteClient detaches the client's payments, cases, invoices and acts, then removes the
// client with its company and contract links and its documents.
func DeleteClient(ctx context.Context, id int) (*Client, error) {
	result, err := utils.FetchModel[Client](ctx, id)
	if err != nil {
		return nil, err
	}

	var objectKeys []string
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&Payment{}, &ClientCase{}, &Invoice{}, &Act{}} {
			if err := tx.Model(model).Where("client_id = ?", id).UpdateColumn("client_id", nil).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("client_id = ?", id).Delete(&ClientCompany{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&ContractClient{}).Error; err != nil {
			return err
		}
		keys, err := deleteDocumentsOf(tx, DocumentReferenceClient, id)
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

func GetClient(ctx context.Context, id int) (*Client, error) {
	return utils.FetchModel[Client](ctx, id, "Companies", "Companies.Company")
}

type ClientFilter struct {
	Search   string
	IsActive *bool
}

var clientSort = sortSpec{
	table: "clients",
	columns: map[string]string{
		"name":      "clients.name",
		"email":     "clients.email",
		"createdat": "clients.created_at",
	},
	def: "clients.name",
}

func (f *ClientFilter) apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		db = db.Where("(clients.name LIKE ? OR clients.email LIKE ? OR clients.phone LIKE ?)", pattern, pattern, pattern)
	}
	if f.IsActive != nil {
		db = db.Where("clients.is_active = ?", *f.IsActive)
	}
	return db
}

func GetClients(ctx context.Context, filter *ClientFilter, sort SortParams) ([]*Client, error) {
	var results []*Client
	db := config.GetDB().WithContext(ctx).Model(&Client{})
	if err := clientSort.apply(filter.apply(db), sort).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetClientsPaginated(ctx context.Context, filter *ClientFilter, sort SortParams, page PageParams) (*PagedResult[*Client], error) {
	db := config.GetDB().WithContext(ctx).Model(&Client{})
	return paginateQuery[Client](clientSort.apply(filter.apply(db), sort), page)
}

// ClientStats sums the client's payments by outcome.
type ClientStats struct {
	ClientId         int             `json:"client_id"`
	TotalPayments    int64           `json:"total_payments"`
	IncomeTotal      decimal.Decimal `json:"income_total"`
	ExpenseTotal     decimal.Decimal `json:"expense_total"`
	PaidTotal        decimal.Decimal `json:"paid_total"`
	OutstandingTotal decimal.Decimal `json:"outstanding_total"`
	OverdueCount     int64           `json:"overdue_count"`
	OverdueTotal     decimal.Decimal `json:"overdue_total"`
	CasesCount       int64           `json:"cases_count"`
	LastPaymentDate  *time.Time      `json:"last_payment_date"`
}

func GetClientStats(ctx context.Context, id int) (*ClientStats, error) {
	if err := utils.ValidateResourceId[Client](ctx, id); err != nil {
		return nil, err
	}
	clientId := id
	summary, err := summarizePayments(ctx, &PaymentFilter{ClientId: &clientId})
	if err != nil {
		return nil, err
	}

	stats := ClientStats{
		ClientId:         id,
		TotalPayments:    summary.TotalCount,
		IncomeTotal:      summary.IncomeTotal,
		ExpenseTotal:     summary.ExpenseTotal,
		PaidTotal:        summary.PaidTotal,
		OutstandingTotal: summary.OutstandingTotal,
		OverdueCount:     summary.OverdueCount,
		OverdueTotal:     summary.OverdueTotal,
	}

	db := config.GetDB().WithContext(ctx)
	if err := db.Model(&ClientCase{}).Where("client_id = ?", id).Count(&stats.CasesCount).Error; err != nil {
		return nil, err
	}
	var last Payment
	err = db.Where("client_id = ? AND is_paid = ?", id, true).Order("paid_date DESC").Limit(1).Find(&last).Error
	if err != nil {
		return nil, err
	}
	if last.ID != 0 {
		stats.LastPaymentDate = last.PaidDate
	}
	return &stats, nil
}
