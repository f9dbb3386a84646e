package models

import (
	"context"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"gorm.io/gorm"
)

type systemRole struct {
	name        string
	description string
	permissions func() []*NewRolePermission
}

var systemRoles = []systemRole{
	{AdminRoleName, "Full access", FullPermissions},
	{"Manager", "Works with payments, clients and documents", managerPermissions},
	{DefaultRoleName, "Read-only access", viewerPermissions},
}

func managerPermissions() []*NewRolePermission {
	var permissions []*NewRolePermission
	for _, section := range AllSections {
		p := &NewRolePermission{Section: section, CanView: true, CanExport: true}
		switch section {
		case SectionUsers, SectionRoles, SectionActivity:
		default:
			p.CanCreate, p.CanEdit, p.CanDelete = true, true, true
		}
		permissions = append(permissions, p)
	}
	return permissions
}

func viewerPermissions() []*NewRolePermission {
	var permissions []*NewRolePermission
	for _, section := range AllSections {
		switch section {
		case SectionUsers, SectionRoles, SectionActivity:
			continue
		}
		permissions = append(permissions, &NewRolePermission{Section: section, CanView: true})
	}
	return permissions
}

var defaultDealTypes = []string{"Consulting", "Litigation", "Subscription"}
var defaultPaymentSources = []string{"Bank transfer", "Cash", "Card"}
var defaultPaymentStatuses = []string{"Confirmed", "Awaiting documents"}

var defaultIncomeTypes = []IncomeType{
	{DictionaryEntry: DictionaryEntry{Name: "Service fee"}, PaymentType: PaymentTypeIncome},
	{DictionaryEntry: DictionaryEntry{Name: "Prepayment"}, PaymentType: PaymentTypeIncome},
	{DictionaryEntry: DictionaryEntry{Name: "Rent"}, PaymentType: PaymentTypeExpense},
	{DictionaryEntry: DictionaryEntry{Name: "Salary"}, PaymentType: PaymentTypeExpense},
}

// SeedSystemRoles creates the built-in roles, or restores their permission matrix.
func SeedSystemRoles(ctx context.Context) (map[string]*Role, error) {
	db := config.GetDB()
	roles := make(map[string]*Role)
	for _, sr := range systemRoles {
		var role Role
		err := db.WithContext(ctx).Where(Role{Name: sr.name}).
			Attrs(Role{Description: sr.description}).
			FirstOrCreate(&role).Error
		if err != nil {
			return nil, err
		}
		if !role.IsSystem {
			if err := db.WithContext(ctx).Model(&role).UpdateColumn("is_system", true).Error; err != nil {
				return nil, err
			}
			role.IsSystem = true
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return replaceRolePermissions(tx, role.ID, sr.permissions())
		})
		if err != nil {
			return nil, err
		}
		if err := utils.ClearPermissionsCache(role.ID); err != nil {
			config.LogError(config.GetLogger(), "Seed", "SeedSystemRoles", "ClearPermissionsCache", role.ID, err)
		}
		roles[sr.name] = &role
	}
	return roles, nil
}

// SeedDictionaries fills empty dictionaries with a starter set.
func SeedDictionaries(ctx context.Context) error {
	db := config.GetDB().WithContext(ctx)
	if err := seedDictionary[DealType](db, defaultDealTypes, func(e DictionaryEntry) *DealType {
		return &DealType{DictionaryEntry: e}
	}); err != nil {
		return err
	}
	if err := seedDictionary[PaymentSource](db, defaultPaymentSources, func(e DictionaryEntry) *PaymentSource {
		return &PaymentSource{DictionaryEntry: e}
	}); err != nil {
		return err
	}
	if err := seedDictionary[PaymentStatusEntity](db, defaultPaymentStatuses, func(e DictionaryEntry) *PaymentStatusEntity {
		return &PaymentStatusEntity{DictionaryEntry: e}
	}); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&IncomeType{}).Count(&count).Error; err != nil || count > 0 {
		return err
	}
	for i := range defaultIncomeTypes {
		entry := defaultIncomeTypes[i]
		entry.IsActive = utils.NewTrue()
		if err := db.Create(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedDictionary[T any](db *gorm.DB, names []string, build func(DictionaryEntry) *T) error {
	var model T
	var count int64
	if err := db.Model(&model).Count(&count).Error; err != nil || count > 0 {
		return err
	}
	for _, name := range names {
		if err := db.Create(build(DictionaryEntry{Name: name, IsActive: utils.NewTrue()})).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAdmin creates the administrator account, or resets its password and restores its access.
func SeedAdmin(ctx context.Context, email string, fullName string, password string) (*User, bool, error) {
	if err := utils.ValidatePassword(password); err != nil {
		return nil, false, err
	}
	roles, err := SeedSystemRoles(ctx)
	if err != nil {
		return nil, false, err
	}
	adminRoleId := roles[AdminRoleName].ID

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	db := config.GetDB()
	email = normalizeEmail(email)
	var existing User
	if err := db.WithContext(ctx).Where("email = ?", email).Limit(1).Find(&existing).Error; err != nil {
		return nil, false, err
	}
	if existing.ID == 0 {
		user := User{
			Email:      email,
			FullName:   fullName,
			Password:   string(hashed),
			RoleId:     &adminRoleId,
			IsActive:   utils.NewTrue(),
			IsApproved: true,
		}
		if err := db.WithContext(ctx).Omit("Role").Create(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, true, nil
	}

	if err := db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"password":    string(hashed),
		"full_name":   fullName,
		"role_id":     adminRoleId,
		"is_active":   true,
		"is_approved": true,
	}).Error; err != nil {
		return nil, false, err
	}
	_ = existing.RemoveInstanceRedis()
	user, err := GetUser(ctx, existing.ID)
	return user, false, err
}
