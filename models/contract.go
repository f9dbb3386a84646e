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

type Contract struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Number      string          `gorm:"size:50;not null;uniqueIndex" json:"number"`
	Title       string          `gorm:"size:200;not null" json:"title"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status      ContractStatus  `gorm:"size:20;not null;index" json:"status"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Clients []*ContractClient `gorm:"foreignKey:ContractId" json:"clients,omitempty"`
}

// ContractClient is a party of a contract ("Customer", "Guarantor").
type ContractClient struct {
	ID         int    `gorm:"primary_key" json:"id"`
	ContractId int    `gorm:"not null;uniqueIndex:idx_contract_client" json:"contract_id"`
	ClientId   int    `gorm:"not null;uniqueIndex:idx_contract_client;index" json:"client_id"`
	Role       string `gorm:"size:100" json:"role"`

	Client *Client `gorm:"foreignKey:ClientId" json:"client,omitempty"`
}

type NewContractClient struct {
	ClientId int    `json:"client_id" binding:"required"`
	Role     string `json:"role" binding:"max=100"`
}

type NewContract struct {
	Number      string               `json:"number" binding:"required,max=50"`
	Title       string               `json:"title" binding:"required,max=200"`
	Date        time.Time            `json:"date" binding:"required"`
	Amount      decimal.Decimal      `json:"amount"`
	Status      ContractStatus       `json:"status"`
	Description string               `json:"description"`
	Clients     []*NewContractClient `json:"clients"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewContract) validate(ctx context.Context, id int) error {
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
		input.Status = ContractStatusDraft
	}
	if !input.Status.IsValid() {
		return utils.NewValidationError("status", "invalid contract status %q", input.Status)
	}
	if err := utils.ValidateUnique[Contract](ctx, "number", input.Number, id); err != nil {
		return err
	}

	seen := make(map[int]bool)
	for _, party := range input.Clients {
		if seen[party.ClientId] {
			return utils.NewValidationError("clients", "client %d is listed twice", party.ClientId)
		}
		seen[party.ClientId] = true
		if err := utils.ValidateOptionalReference[Client](ctx, "clients", &party.ClientId); err != nil {
			return err
		}
	}
	return nil
}

func (input *NewContract) contractClients(contractId int) []*ContractClient {
	var parties []*ContractClient
	for _, party := range input.Clients {
		parties = append(parties, &ContractClient{
			ContractId: contractId,
			ClientId:   party.ClientId,
			Role:       strings.TrimSpace(party.Role),
		})
	}
	return parties
}

func CreateContract(ctx context.Context, input *NewContract) (*Contract, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	contract := Contract{
		Number:      input.Number,
		Title:       input.Title,
		Date:        input.Date,
		Amount:      utils.RoundMoney(input.Amount),
		Status:      input.Status,
		Description: input.Description,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Omit("Clients").Create(&contract).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if parties := input.contractClients(contract.ID); len(parties) > 0 {
		if err := tx.WithContext(ctx).Omit("Client").Create(&parties).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetContract(ctx, contract.ID)
}

// UpdateContract replaces the contract fields and its list of parties.
func UpdateContract(ctx context.Context, id int, input *NewContract) (*Contract, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	contract, err := utils.FetchModel[Contract](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(contract).Updates(map[string]interface{}{
		"Number":      input.Number,
		"Title":       input.Title,
		"Date":        input.Date,
		"Amount":      utils.RoundMoney(input.Amount),
		"Status":      input.Status,
		"Description": input.Description,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("contract_id = ?", id).Delete(&ContractClient{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if parties := input.contractClients(id); len(parties) > 0 {
		if err := tx.WithContext(ctx).Omit("Client").Create(&parties).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetContract(ctx, id)
}

// DeleteContract detaches invoices and acts, drops the parties and documents, then the contract.
func DeleteContract(ctx context.Context, id int) (*Contract, error) {
	result, err := utils.FetchModel[Contract](ctx, id)
	if err != nil {
		return nil, err
	}

	var objectKeys []string
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&Invoice{}, &Act{}} {
			if err := tx.Model(model).Where("contract_id = ?", id).UpdateColumn("contract_id", nil).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("contract_id = ?", id).Delete(&ContractClient{}).Error; err != nil {
			return err
		}
		keys, err := deleteDocumentsOf(tx, DocumentReferenceContract, id)
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

func GetContract(ctx context.Context, id int) (*Contract, error) {
	return utils.FetchModel[Contract](ctx, id, "Clients", "Clients.Client")
}

type ContractFilter struct {
	ClientId *int
	Status   ContractStatus
	From     *time.Time
	To       *time.Time
	Search   string
}

var contractSort = sortSpec{
	table: "contracts",
	columns: map[string]string{
		"number":    "contracts.number",
		"title":     "contracts.title",
		"date":      "contracts.date",
		"amount":    "contracts.amount",
		"status":    "contracts.status",
		"createdat": "contracts.created_at",
	},
	def: "contracts.date DESC",
}

func (f *ContractFilter) apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	if f.ClientId != nil {
		db = db.Where("contracts.id IN (SELECT contract_id FROM contract_clients WHERE client_id = ?)", *f.ClientId)
	}
	if f.Status != "" {
		db = db.Where("contracts.status = ?", f.Status)
	}
	if f.From != nil {
		db = db.Where("contracts.date >= ?", utils.DateOnly(*f.From))
	}
	if f.To != nil {
		db = db.Where("contracts.date < ?", utils.DateOnly(*f.To).AddDate(0, 0, 1))
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		db = db.Where("(contracts.number LIKE ? OR contracts.title LIKE ?)", pattern, pattern)
	}
	return db
}

func GetContractsPaginated(ctx context.Context, filter *ContractFilter, sort SortParams, page PageParams) (*PagedResult[*Contract], error) {
	db := config.GetDB().WithContext(ctx).Model(&Contract{})
	return paginateQuery[Contract](contractSort.apply(filter.apply(db), sort), page, "Clients", "Clients.Client")
}
