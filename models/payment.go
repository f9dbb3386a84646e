package models

import (
	"context"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Payment struct {
	ID                int             `gorm:"primary_key" json:"id"`
	Type              PaymentType     `gorm:"size:20;not null;index" json:"type"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Date              time.Time       `gorm:"not null;index" json:"date"`
	PlannedDate       time.Time       `gorm:"not null" json:"planned_date"`
	PaidDate          *time.Time      `json:"paid_date"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"paid_amount"`
	IsPaid            bool            `gorm:"not null;index" json:"is_paid"`
	Status            PaymentStatus   `gorm:"size:20;not null;index" json:"status"`
	Description       string          `gorm:"size:500" json:"description"`
	Notes             string          `gorm:"type:text" json:"notes"`
	SystemNotes       string          `gorm:"type:text" json:"system_notes"`
	RescheduleCount   int             `gorm:"not null" json:"reschedule_count"`
	LastRescheduledAt *time.Time      `json:"last_rescheduled_at"`

	ClientId        *int `gorm:"index" json:"client_id"`
	ClientCaseId    *int `gorm:"index" json:"client_case_id"`
	DealTypeId      *int `gorm:"index" json:"deal_type_id"`
	IncomeTypeId    *int `gorm:"index" json:"income_type_id"`
	PaymentSourceId *int `gorm:"index" json:"payment_source_id"`
	PaymentStatusId *int `gorm:"index" json:"payment_status_id"`
	CreatedById     *int `json:"created_by_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Client              *Client              `gorm:"foreignKey:ClientId" json:"client,omitempty"`
	ClientCase          *ClientCase          `gorm:"foreignKey:ClientCaseId" json:"client_case,omitempty"`
	DealType            *DealType            `gorm:"foreignKey:DealTypeId" json:"deal_type,omitempty"`
	IncomeType          *IncomeType          `gorm:"foreignKey:IncomeTypeId" json:"income_type,omitempty"`
	PaymentSource       *PaymentSource       `gorm:"foreignKey:PaymentSourceId" json:"payment_source,omitempty"`
	PaymentStatusEntity *PaymentStatusEntity `gorm:"foreignKey:PaymentStatusId" json:"payment_status,omitempty"`
}

type NewPayment struct {
	Type            PaymentType      `json:"type" binding:"required"`
	Amount          decimal.Decimal  `json:"amount"`
	Date            time.Time        `json:"date"`
	PaidDate        *time.Time       `json:"paid_date"`
	PaidAmount      *decimal.Decimal `json:"paid_amount"`
	IsPaid          bool             `json:"is_paid"`
	Status          PaymentStatus    `json:"status"`
	Description     string           `json:"description" binding:"max=500"`
	Notes           string           `json:"notes"`
	ClientId        *int             `json:"client_id"`
	ClientCaseId    *int             `json:"client_case_id"`
	DealTypeId      *int             `json:"deal_type_id"`
	IncomeTypeId    *int             `json:"income_type_id"`
	PaymentSourceId *int             `json:"payment_source_id"`
	PaymentStatusId *int             `json:"payment_status_id"`
}

type MarkPaymentPaidInput struct {
	PaidAmount *decimal.Decimal `json:"paid_amount"`
	PaidDate   *time.Time       `json:"paid_date"`
}

type ReschedulePaymentInput struct {
	Date time.Time `json:"date" binding:"required"`
}

var paymentAssociations = []string{"Client", "ClientCase", "DealType", "IncomeType", "PaymentSource", "PaymentStatusEntity"}

// validate input for both create & update. (id = 0 for create)
func (input *NewPayment) validate(ctx context.Context, id int) error {
	if !input.Type.IsValid() {
		return utils.NewValidationError("type", "must be Income or Expense")
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("amount", "must be greater than zero")
	}
	if input.Date.IsZero() {
		return utils.NewValidationError("date", "is required")
	}
	if input.Status != "" && !input.Status.IsValid() {
		return utils.NewValidationError("status", "invalid payment status %q", input.Status)
	}
	if input.PaidAmount != nil && input.PaidAmount.IsNegative() {
		return utils.NewValidationError("paid_amount", "cannot be negative")
	}

	if err := utils.ValidateOptionalReference[Client](ctx, "client_id", input.ClientId); err != nil {
		return err
	}
	if input.ClientCaseId != nil {
		clientCase, err := utils.FetchModel[ClientCase](ctx, *input.ClientCaseId)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewValidationError("client_case_id", "%d does not exist", *input.ClientCaseId)
			}
			return err
		}
		if input.ClientId != nil && clientCase.ClientId != nil && *clientCase.ClientId != *input.ClientId {
			return utils.NewValidationError("client_case_id", "case %d does not belong to client %d", clientCase.ID, *input.ClientId)
		}
	}
	if err := utils.ValidateOptionalReference[DealType](ctx, "deal_type_id", input.DealTypeId); err != nil {
		return err
	}
	if input.IncomeTypeId != nil {
		incomeType, err := utils.FetchModel[IncomeType](ctx, *input.IncomeTypeId)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewValidationError("income_type_id", "%d does not exist", *input.IncomeTypeId)
			}
			return err
		}
		if incomeType.PaymentType != "" && incomeType.PaymentType != input.Type {
			return utils.NewValidationError("income_type_id", "income type %q is for %s payments", incomeType.Name, incomeType.PaymentType)
		}
	}
	if err := utils.ValidateOptionalReference[PaymentSource](ctx, "payment_source_id", input.PaymentSourceId); err != nil {
		return err
	}
	if err := utils.ValidateOptionalReference[PaymentStatusEntity](ctx, "payment_status_id", input.PaymentStatusId); err != nil {
		return err
	}
	return nil
}

// toPayment maps the input onto a fresh entity; status derivation happens afterwards.
func (input *NewPayment) toPayment() *Payment {
	p := &Payment{
		Type:            input.Type,
		Amount:          input.Amount,
		Date:            input.Date,
		PaidDate:        input.PaidDate,
		IsPaid:          input.IsPaid,
		Status:          input.Status,
		Description:     input.Description,
		Notes:           input.Notes,
		ClientId:        input.ClientId,
		ClientCaseId:    input.ClientCaseId,
		DealTypeId:      input.DealTypeId,
		IncomeTypeId:    input.IncomeTypeId,
		PaymentSourceId: input.PaymentSourceId,
		PaymentStatusId: input.PaymentStatusId,
	}
	if input.PaidAmount != nil {
		p.PaidAmount = *input.PaidAmount
	}
	if p.Status == "" {
		p.Status = PaymentStatusPending
	}
	return p
}

func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	payment := input.toPayment()
	if err := fillClientFromCase(ctx, payment); err != nil {
		return nil, err
	}
	payment.CreatedById = utils.GetUserIdPtrFromContext(ctx)
	ApplyPaymentCreate(payment, time.Now())

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordPaymentEvent(ctx, tx, "", payment); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetPayment(ctx, payment.ID)
}

// UpdatePayment replaces the editable fields of the payment and re-derives its status.
func UpdatePayment(ctx context.Context, id int, input *NewPayment) (*Payment, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	next := input.toPayment()
	if err := fillClientFromCase(ctx, next); err != nil {
		return nil, err
	}
	return updatePayment(ctx, id, func(prev *Payment) (*Payment, error) {
		return next, nil
	})
}

// MarkPaymentPaid completes the payment, or records a partial payment when PaidAmount is short.
func MarkPaymentPaid(ctx context.Context, id int, input *MarkPaymentPaidInput) (*Payment, error) {
	if input.PaidAmount != nil && !input.PaidAmount.IsPositive() {
		return nil, utils.NewValidationError("paid_amount", "must be greater than zero")
	}
	return updatePayment(ctx, id, func(prev *Payment) (*Payment, error) {
		next := prev.editableCopy()
		next.PaidDate = input.PaidDate
		if input.PaidAmount == nil {
			next.IsPaid = true
			next.PaidAmount = next.Amount
		} else {
			next.PaidAmount = *input.PaidAmount
			next.IsPaid = input.PaidAmount.GreaterThanOrEqual(next.Amount)
		}
		if next.Status.IsManual() {
			next.Status = PaymentStatusPending
		}
		return next, nil
	})
}

// ReschedulePayment moves the due date of an unpaid payment.
func ReschedulePayment(ctx context.Context, id int, input *ReschedulePaymentInput) (*Payment, error) {
	if input.Date.IsZero() {
		return nil, utils.NewValidationError("date", "is required")
	}
	return updatePayment(ctx, id, func(prev *Payment) (*Payment, error) {
		if prev.IsPaid {
			return nil, utils.NewValidationError("date", "a completed payment cannot be rescheduled")
		}
		next := prev.editableCopy()
		next.Date = input.Date
		return next, nil
	})
}

// editableCopy returns the user-editable state of p, the starting point of quick actions.
func (p *Payment) editableCopy() *Payment {
	next := &Payment{
		Type:            p.Type,
		Amount:          p.Amount,
		Date:            p.Date,
		PaidAmount:      p.PaidAmount,
		IsPaid:          p.IsPaid,
		Status:          p.Status,
		Description:     p.Description,
		Notes:           p.Notes,
		ClientId:        p.ClientId,
		ClientCaseId:    p.ClientCaseId,
		DealTypeId:      p.DealTypeId,
		IncomeTypeId:    p.IncomeTypeId,
		PaymentSourceId: p.PaymentSourceId,
		PaymentStatusId: p.PaymentStatusId,
	}
	if p.PaidDate != nil {
		d := *p.PaidDate
		next.PaidDate = &d
	}
	return next
}

// updatePayment loads the stored payment, builds its successor and saves it in one transaction.
func updatePayment(ctx context.Context, id int, build func(prev *Payment) (*Payment, error)) (*Payment, error) {
	db := config.GetDB()
	tx := db.Begin()
	txCtx := tx.WithContext(ctx)

	prev, err := utils.FetchModelTx[Payment](txCtx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	next, err := build(prev)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	ApplyPaymentUpdate(prev, next, time.Now())

	if err := txCtx.Omit(clause.Associations).Save(next).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordPaymentEvent(ctx, tx, prev.Status, next); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetPayment(ctx, id)
}

// fillClientFromCase sets the client of a payment booked on a case without one.
func fillClientFromCase(ctx context.Context, p *Payment) error {
	if p.ClientCaseId == nil || p.ClientId != nil {
		return nil
	}
	var clientId *int
	err := config.GetDB().WithContext(ctx).Model(&ClientCase{}).
		Where("id = ?", *p.ClientCaseId).Select("client_id").Scan(&clientId).Error
	if err != nil {
		return err
	}
	p.ClientId = clientId
	return nil
}

func DeletePayment(ctx context.Context, id int) (*Payment, error) {
	result, err := utils.FetchModel[Payment](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	objectKeys, err := deleteDocumentsOf(tx.WithContext(ctx), DocumentReferencePayment, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&Invoice{}).Where("payment_id = ?", id).
		UpdateColumn("payment_id", nil).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("payment_id = ?", id).Delete(&PaymentEvent{}).Error; err != nil {
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
	purgeDocumentObjects(ctx, objectKeys)
	return result, nil
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	return utils.FetchModel[Payment](ctx, id, paymentAssociations...)
}

type PaymentFilter struct {
	From            *time.Time
	To              *time.Time
	Type            PaymentType
	Status          PaymentStatus
	ClientId        *int
	ClientCaseId    *int
	DealTypeId      *int
	IncomeTypeId    *int
	PaymentSourceId *int
	IsPaid          *bool
	Search          string
}

var paymentSort = sortSpec{
	table: "payments",
	columns: map[string]string{
		"date":      "payments.date",
		"amount":    "payments.amount",
		"status":    "payments.status",
		"type":      "payments.type",
		"createdat": "payments.created_at",
		"paiddate":  "payments.paid_date",
	},
	def: "payments.date DESC",
}

func (f *PaymentFilter) apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	if f.From != nil {
		db = db.Where("payments.date >= ?", utils.DateOnly(*f.From))
	}
	if f.To != nil {
		db = db.Where("payments.date < ?", utils.DateOnly(*f.To).AddDate(0, 0, 1))
	}
	if f.Type != "" {
		db = db.Where("payments.type = ?", f.Type)
	}
	if f.Status != "" {
		db = db.Where("payments.status = ?", f.Status)
	}
	if f.ClientId != nil {
		db = db.Where("payments.client_id = ?", *f.ClientId)
	}
	if f.ClientCaseId != nil {
		db = db.Where("payments.client_case_id = ?", *f.ClientCaseId)
	}
	if f.DealTypeId != nil {
		db = db.Where("payments.deal_type_id = ?", *f.DealTypeId)
	}
	if f.IncomeTypeId != nil {
		db = db.Where("payments.income_type_id = ?", *f.IncomeTypeId)
	}
	if f.PaymentSourceId != nil {
		db = db.Where("payments.payment_source_id = ?", *f.PaymentSourceId)
	}
	if f.IsPaid != nil {
		db = db.Where("payments.is_paid = ?", *f.IsPaid)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		db = db.Where("(payments.description LIKE ? OR payments.notes LIKE ? OR payments.client_id IN (SELECT id FROM clients WHERE name LIKE ?))",
			pattern, pattern, pattern)
	}
	return db
}

func PaymentQuery(ctx context.Context, filter *PaymentFilter) *gorm.DB {
	db := config.GetDB().WithContext(ctx).Model(&Payment{})
	return filter.apply(db)
}

// GetPayments lists every matching payment (v1, unpaginated).
func GetPayments(ctx context.Context, filter *PaymentFilter, sort SortParams) ([]*Payment, error) {
	var results []*Payment
	query := paymentSort.apply(PaymentQuery(ctx, filter), sort)
	for _, a := range paymentAssociations {
		query = query.Preload(a)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetPaymentsPaginated(ctx context.Context, filter *PaymentFilter, sort SortParams, page PageParams) (*PagedResult[*Payment], error) {
	query := paymentSort.apply(PaymentQuery(ctx, filter), sort)
	return paginateQuery[Payment](query, page, paymentAssociations...)
}
