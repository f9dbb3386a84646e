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

type Invoice struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Number      string          `gorm:"size:50;not null;uniqueIndex" json:"number"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	DueDate     *time.Time      `json:"due_date"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status      InvoiceStatus   `gorm:"size:20;not null;index" json:"status"`
	ClientId    *int            `gorm:"index" json:"client_id"`
	ContractId  *int            `gorm:"index" json:"contract_id"`
	PaymentId   *int            `gorm:"index" json:"payment_id"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Client   *Client   `gorm:"foreignKey:ClientId" json:"client,omitempty"`
	Contract *Contract `gorm:"foreignKey:ContractId" json:"contract,omitempty"`
	Payment  *Payment  `gorm:"foreignKey:PaymentId" json:"payment,omitempty"`
}

type NewInvoice struct {
	Number      string          `json:"number" binding:"required,max=50"`
	Date        time.Time       `json:"date" binding:"required"`
	DueDate     *time.Time      `json:"due_date"`
	Amount      decimal.Decimal `json:"amount"`
	Status      InvoiceStatus   `json:"status"`
	ClientId    *int            `json:"client_id"`
	ContractId  *int            `json:"contract_id"`
	PaymentId   *int            `json:"payment_id"`
	Description string          `json:"description"`
}

var invoiceAssociations = []string{"Client", "Contract", "Payment"}

// validate input for both create & update. (id = 0 for create)
func (input *NewInvoice) validate(ctx context.Context, id int) error {
	input.Number = strings.TrimSpace(input.Number)
	if input.Number == "" {
		return utils.NewValidationError("number", "is required")
	}
	if input.Date.IsZero() {
		return utils.NewValidationError("date", "is required")
	}
	if input.DueDate != nil && utils.DateOnly(*input.DueDate).Before(utils.DateOnly(input.Date)) {
		return utils.NewValidationError("due_date", "cannot be before the invoice date")
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("amount", "must be greater than zero")
	}
	if input.Status == "" {
		input.Status = InvoiceStatusDraft
	}
	if !input.Status.IsValid() {
		return utils.NewValidationError("status", "invalid invoice status %q", input.Status)
	}
	if err := utils.ValidateUnique[Invoice](ctx, "number", input.Number, id); err != nil {
		return err
	}
	if err := utils.ValidateOptionalReference[Client](ctx, "client_id", input.ClientId); err != nil {
		return err
	}
	if err := utils.ValidateOptionalReference[Contract](ctx, "contract_id", input.ContractId); err != nil {
		return err
	}
	return utils.ValidateOptionalReference[Payment](ctx, "payment_id", input.PaymentId)
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	invoice := Invoice{
		Number:      input.Number,
		Date:        input.Date,
		DueDate:     input.DueDate,
		Amount:      utils.RoundMoney(input.Amount),
		Status:      input.Status,
		ClientId:    input.ClientId,
		ContractId:  input.ContractId,
		PaymentId:   input.PaymentId,
		Description: input.Description,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Omit(invoiceAssociations...).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return GetInvoice(ctx, invoice.ID)
}

func UpdateInvoice(ctx context.Context, id int, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	invoice, err := utils.FetchModel[Invoice](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"Number":      input.Number,
		"Date":        input.Date,
		"DueDate":     input.DueDate,
		"Amount":      utils.RoundMoney(input.Amount),
		"Status":      input.Status,
		"ClientId":    input.ClientId,
		"ContractId":  input.ContractId,
		"PaymentId":   input.PaymentId,
		"Description": input.Description,
	}).Error
	if err != nil {
		return nil, err
	}
	return GetInvoice(ctx, id)
}

// DeleteInvoice detaches acts issued against the invoice before removing it.
func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	result, err := utils.FetchModel[Invoice](ctx, id)
	if err != nil {
		return nil, err
	}

	var objectKeys []string
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Act{}).Where("invoice_id = ?", id).UpdateColumn("invoice_id", nil).Error; err != nil {
			return err
		}
		keys, err := deleteDocumentsOf(tx, DocumentReferenceInvoice, id)
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

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	return utils.FetchModel[Invoice](ctx, id, invoiceAssociations...)
}

type InvoiceFilter struct {
	ClientId   *int
	ContractId *int
	Status     InvoiceStatus
	From       *time.Time
	To         *time.Time
	Search     string
}

var invoiceSort = sortSpec{
	table: "invoices",
	columns: map[string]string{
		"number":    "invoices.number",
		"date":      "invoices.date",
		"duedate":   "invoices.due_date",
		"amount":    "invoices.amount",
		"status":    "invoices.status",
		"createdat": "invoices.created_at",
	},
	def: "invoices.date DESC",
}

func (f *InvoiceFilter) apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	if f.ClientId != nil {
		db = db.Where("invoices.client_id = ?", *f.ClientId)
	}
	if f.ContractId != nil {
		db = db.Where("invoices.contract_id = ?", *f.ContractId)
	}
	if f.Status != "" {
		db = db.Where("invoices.status = ?", f.Status)
	}
	if f.From != nil {
		db = db.Where("invoices.date >= ?", utils.DateOnly(*f.From))
	}
	if f.To != nil {
		db = db.Where("invoices.date < ?", utils.DateOnly(*f.To).AddDate(0, 0, 1))
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		db = db.Where("(invoices.number LIKE ? OR invoices.description LIKE ?)", pattern, pattern)
	}
	return db
}

func GetInvoicesPaginated(ctx context.Context, filter *InvoiceFilter, sort SortParams, page PageParams) (*PagedResult[*Invoice], error) {
	db := config.GetDB().WithContext(ctx).Model(&Invoice{})
	return paginateQuery[Invoice](invoiceSort.apply(filter.apply(db), sort), page, "Client", "Contract")
}
