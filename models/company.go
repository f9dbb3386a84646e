package models

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"gorm.io/gorm"
)

// Company is a legal entity clients can belong to.
type Company struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	Name               string    `gorm:"size:200;not null;index" json:"name"`
	FullName           string    `gorm:"size:500" json:"full_name"`
	TaxId              string    `gorm:"size:20;index" json:"tax_id"`
	RegistrationNumber string    `gorm:"size:20" json:"registration_number"`
	Address            string    `gorm:"size:500" json:"address"`
	Email              string    `gorm:"size:200" json:"email"`
	Phone              string    `gorm:"size:30" json:"phone"`
	Notes              string    `gorm:"type:text" json:"notes"`
	IsActive           *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Members []*ClientCompany `gorm:"foreignKey:CompanyId" json:"members,omitempty"`
}

// ClientCompany links a client to a company with a free-text role ("Director", "Accountant").
type ClientCompany struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ClientId  int       `gorm:"not null;uniqueIndex:idx_client_company" json:"client_id"`
	CompanyId int       `gorm:"not null;uniqueIndex:idx_client_company;index" json:"company_id"`
	Role      string    `gorm:"size:100" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Client  *Client  `gorm:"foreignKey:ClientId" json:"client,omitempty"`
	Company *Company `gorm:"foreignKey:CompanyId" json:"company,omitempty"`
}

type NewCompany struct {
	Name               string `json:"name" binding:"required,max=200"`
	FullName           string `json:"full_name" binding:"max=500"`
	TaxId              string `json:"tax_id"`
	RegistrationNumber string `json:"registration_number"`
	Address            string `json:"address" binding:"max=500"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Notes              string `json:"notes"`
	IsActive           *bool  `json:"is_active"`
}

type NewClientCompany struct {
	CompanyId int    `json:"company_id" binding:"required"`
	Role      string `json:"role" binding:"max=100"`
}

var digitsPattern = regexp.MustCompile(`^[0-9]+$`)

// validate input for both create & update. (id = 0 for create)
func (input *NewCompany) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.NewValidationError("name", "is required")
	}
	input.TaxId = strings.TrimSpace(input.TaxId)
	if input.TaxId != "" {
		if !digitsPattern.MatchString(input.TaxId) || (len(input.TaxId) != 10 && len(input.TaxId) != 12) {
			return utils.NewValidationError("tax_id", "must be 10 or 12 digits")
		}
		if err := utils.ValidateUnique[Company](ctx, "tax_id", input.TaxId, id); err != nil {
			return err
		}
	}
	input.RegistrationNumber = strings.TrimSpace(input.RegistrationNumber)
	if input.RegistrationNumber != "" && !digitsPattern.MatchString(input.RegistrationNumber) {
		return utils.NewValidationError("registration_number", "must contain digits only")
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

func CreateCompany(ctx context.Context, input *NewCompany) (*Company, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	company := Company{
		Name:               input.Name,
		FullName:           input.FullName,
		TaxId:              input.TaxId,
		RegistrationNumber: input.RegistrationNumber,
		Address:            input.Address,
		Email:              input.Email,
		Phone:              input.Phone,
		Notes:              input.Notes,
		IsActive:           utils.NewTrue(),
	}
	if input.IsActive != nil {
		company.IsActive = input.IsActive
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func UpdateCompany(ctx context.Context, id int, input *NewCompany) (*Company, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	company, err := utils.FetchModel[Company](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Name":               input.Name,
		"FullName":           input.FullName,
		"TaxId":              input.TaxId,
		"RegistrationNumber": input.RegistrationNumber,
		"Address":            input.Address,
		"Email":              input.Email,
		"Phone":              input.Phone,
		"Notes":              input.Notes,
	}
	if input.IsActive != nil {
		updates["IsActive"] = *input.IsActive
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(company).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetCompany(ctx, id)
}

func DeleteCompany(ctx context.Context, id int) (*Company, error) {
	result, err := utils.FetchModel[Company](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", id).Delete(&ClientCompany{}).Error; err != nil {
			return err
		}
		return tx.Delete(result).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetCompany(ctx context.Context, id int) (*Company, error) {
	return utils.FetchModel[Company](ctx, id, "Members", "Members.Client")
}

var companySort = sortSpec{
	table: "companies",
	columns: map[string]string{
		"name":      "companies.name",
		"taxid":     "companies.tax_id",
		"createdat": "companies.created_at",
	},
	def: "companies.name",
}

func GetCompaniesPaginated(ctx context.Context, search string, sort SortParams, page PageParams) (*PagedResult[*Company], error) {
	query := config.GetDB().WithContext(ctx).Model(&Company{})
	if search = strings.TrimSpace(search); search != "" {
		pattern := likePattern(search)
		query = query.Where("(companies.name LIKE ? OR companies.full_name LIKE ? OR companies.tax_id LIKE ?)", pattern, pattern, pattern)
	}
	return paginateQuery[Company](companySort.apply(query, sort), page)
}

// GetClientCompanies lists the companies a client belongs to.
func GetClientCompanies(ctx context.Context, clientId int) ([]*ClientCompany, error) {
	if err := utils.ValidateResourceId[Client](ctx, clientId); err != nil {
		return nil, err
	}
	var results []*ClientCompany
	err := config.GetDB().WithContext(ctx).Preload("Company").
		Where("client_id = ?", clientId).Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// LinkClientCompany adds the membership or updates its role when it already exists.
func LinkClientCompany(ctx context.Context, clientId int, input *NewClientCompany) (*ClientCompany, error) {
	if err := utils.ValidateResourceId[Client](ctx, clientId); err != nil {
		return nil, err
	}
	if err := utils.ValidateOptionalReference[Company](ctx, "company_id", &input.CompanyId); err != nil {
		return nil, err
	}

	db := config.GetDB().WithContext(ctx)
	var link ClientCompany
	err := db.Where(ClientCompany{ClientId: clientId, CompanyId: input.CompanyId}).
		Attrs(ClientCompany{Role: strings.TrimSpace(input.Role)}).
		FirstOrCreate(&link).Error
	if err != nil {
		return nil, err
	}
	if role := strings.TrimSpace(input.Role); link.Role != role {
		if err := db.Model(&link).UpdateColumn("role", role).Error; err != nil {
			return nil, err
		}
	}
	return utils.FetchModel[ClientCompany](ctx, link.ID, "Company")
}

func UnlinkClientCompany(ctx context.Context, clientId int, companyId int) error {
	res := config.GetDB().WithContext(ctx).
		Where("client_id = ? AND company_id = ?", clientId, companyId).
		Delete(&ClientCompany{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
