package models

import (
	"context"
	"strings"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"gorm.io/gorm"
)

// AdminRoleName is the system role that bypasses permission checks.
const AdminRoleName = "Admin"

type Role struct {
	ID          int               `gorm:"primary_key" json:"id"`
	Name        string            `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string            `gorm:"size:500" json:"description"`
	IsSystem    bool              `gorm:"not null;default:false" json:"is_system"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	Permissions []*RolePermission `gorm:"foreignKey:RoleId" json:"permissions,omitempty"`
}

func (r *Role) IsAdmin() bool {
	return r != nil && r.Name == AdminRoleName
}

type RolePermission struct {
	ID        int    `gorm:"primary_key" json:"id"`
	RoleId    int    `gorm:"not null;uniqueIndex:idx_role_section" json:"role_id"`
	Section   string `gorm:"size:30;not null;uniqueIndex:idx_role_section" json:"section"`
	CanView   bool   `gorm:"not null" json:"can_view"`
	CanCreate bool   `gorm:"not null" json:"can_create"`
	CanEdit   bool   `gorm:"not null" json:"can_edit"`
	CanDelete bool   `gorm:"not null" json:"can_delete"`
	CanExport bool   `gorm:"not null" json:"can_export"`
}

func (p *RolePermission) Allows(action PermissionAction) bool {
	switch action {
	case PermissionView:
		return p.CanView
	case PermissionCreate:
		return p.CanCreate
	case PermissionEdit:
		return p.CanEdit
	case PermissionDelete:
		return p.CanDelete
	case PermissionExport:
		return p.CanExport
	}
	return false
}

type NewRolePermission struct {
	Section   string `json:"section" binding:"required"`
	CanView   bool   `json:"can_view"`
	CanCreate bool   `json:"can_create"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
	CanExport bool   `json:"can_export"`
}

type NewRole struct {
	Name        string               `json:"name" binding:"required,max=100"`
	Description string               `json:"description" binding:"max=500"`
	Permissions []*NewRolePermission `json:"permissions"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewRole) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.NewValidationError("name", "is required")
	}
	if err := utils.ValidateUnique[Role](ctx, "name", input.Name, id); err != nil {
		return err
	}
	return validatePermissions(input.Permissions)
}

func validatePermissions(input []*NewRolePermission) error {
	seen := make(map[string]bool)
	for _, p := range input {
		p.Section = strings.ToLower(strings.TrimSpace(p.Section))
		if !IsValidSection(p.Section) {
			return utils.NewValidationError("permissions", "unknown section %q", p.Section)
		}
		if seen[p.Section] {
			return utils.NewValidationError("permissions", "section %q is listed twice", p.Section)
		}
		seen[p.Section] = true
	}
	return nil
}

func mapRolePermissions(roleId int, input []*NewRolePermission) []*RolePermission {
	var permissions []*RolePermission
	for _, p := range input {
		permissions = append(permissions, &RolePermission{
			RoleId:    roleId,
			Section:   p.Section,
			CanView:   p.CanView || p.CanCreate || p.CanEdit || p.CanDelete || p.CanExport,
			CanCreate: p.CanCreate,
			CanEdit:   p.CanEdit,
			CanDelete: p.CanDelete,
			CanExport: p.CanExport,
		})
	}
	return permissions
}

func CreateRole(ctx context.Context, input *NewRole) (*Role, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	role := Role{
		Name:        input.Name,
		Description: input.Description,
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Permissions").Create(&role).Error; err != nil {
			return err
		}
		if permissions := mapRolePermissions(role.ID, input.Permissions); len(permissions) > 0 {
			return tx.Create(&permissions).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetRole(ctx, role.ID)
}

// UpdateRole renames the role and replaces its permission matrix. System roles keep their name.
func UpdateRole(ctx context.Context, id int, input *NewRole) (*Role, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	role, err := utils.FetchModel[Role](ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem && role.Name != input.Name {
		return nil, utils.NewValidationError("name", "system role %q cannot be renamed", role.Name)
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(role).Updates(map[string]interface{}{
			"Name":        input.Name,
			"Description": input.Description,
		}).Error; err != nil {
			return err
		}
		return replaceRolePermissions(tx, id, input.Permissions)
	})
	if err != nil {
		return nil, err
	}
	if err := utils.ClearPermissionsCache(id); err != nil {
		config.LogError(config.GetLogger(), "Role", "UpdateRole", "ClearPermissionsCache", id, err)
	}
	if role.Name != input.Name {
		// cached users embed their role
		clearRoleUsersCache(ctx, id)
	}
	return GetRole(ctx, id)
}

func clearRoleUsersCache(ctx context.Context, roleId int) {
	var userIds []int
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&User{}).Where("role_id = ?", roleId).Pluck("id", &userIds).Error; err != nil {
		config.LogError(config.GetLogger(), "Role", "clearRoleUsersCache", "load users", roleId, err)
		return
	}
	for _, userId := range userIds {
		if err := utils.RemoveRedisItem[User](userId); err != nil {
			config.LogError(config.GetLogger(), "Role", "clearRoleUsersCache", "RemoveRedisItem", userId, err)
		}
	}
}

func replaceRolePermissions(tx *gorm.DB, roleId int, input []*NewRolePermission) error {
	if err := tx.Where("role_id = ?", roleId).Delete(&RolePermission{}).Error; err != nil {
		return err
	}
	if permissions := mapRolePermissions(roleId, input); len(permissions) > 0 {
		return tx.Create(&permissions).Error
	}
	return nil
}

// DeleteRole refuses system roles and roles still assigned to users.
func DeleteRole(ctx context.Context, id int) (*Role, error) {
	role, err := utils.FetchModel[Role](ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, utils.NewValidationError("id", "system role %q cannot be deleted", role.Name)
	}
	count, err := utils.ResourceCountWhere[User](ctx, "role_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("id", "role is assigned to %d user(s)", count)
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(role).Error
	})
	if err != nil {
		return nil, err
	}
	if err := utils.ClearPermissionsCache(id); err != nil {
		config.LogError(config.GetLogger(), "Role", "DeleteRole", "ClearPermissionsCache", id, err)
	}
	return role, nil
}

func GetRole(ctx context.Context, id int) (*Role, error) {
	return utils.FetchModel[Role](ctx, id, "Permissions")
}

func GetRoles(ctx context.Context) ([]*Role, error) {
	return utils.FetchAllModels[Role](ctx, "Permissions")
}

func GetRoleByName(ctx context.Context, name string) (*Role, error) {
	var role Role
	err := config.GetDB().WithContext(ctx).Where("name = ?", name).Limit(1).Find(&role).Error
	if err != nil {
		return nil, err
	}
	if role.ID == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &role, nil
}

/*
cache
	Permissions:Role:$roleId
*/

// GetRolePermissions returns the permission matrix of a role, read through the redis cache.
func GetRolePermissions(ctx context.Context, roleId int) ([]*RolePermission, error) {
	key := utils.PermissionsCacheKey(roleId)
	var permissions []*RolePermission
	exists, err := config.GetRedisObject(key, &permissions)
	if err != nil {
		config.LogError(config.GetLogger(), "Role", "GetRolePermissions", "GetRedisObject", key, err)
	}
	if exists {
		return permissions, nil
	}

	if err := utils.ValidateResourceId[Role](ctx, roleId); err != nil {
		return nil, err
	}
	permissions = nil
	if err := config.GetDB().WithContext(ctx).Where("role_id = ?", roleId).Order("section").Find(&permissions).Error; err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(key, permissions, utils.GetCacheLifespan()); err != nil {
		config.LogError(config.GetLogger(), "Role", "GetRolePermissions", "SetRedisObject", key, err)
	}
	return permissions, nil
}

func SetRolePermissions(ctx context.Context, roleId int, input []*NewRolePermission) ([]*RolePermission, error) {
	if err := utils.ValidateResourceId[Role](ctx, roleId); err != nil {
		return nil, err
	}
	if err := validatePermissions(input); err != nil {
		return nil, err
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceRolePermissions(tx, roleId, input)
	})
	if err != nil {
		return nil, err
	}
	if err := utils.ClearPermissionsCache(roleId); err != nil {
		config.LogError(config.GetLogger(), "Role", "SetRolePermissions", "ClearPermissionsCache", roleId, err)
	}
	return GetRolePermissions(ctx, roleId)
}

// HasPermission reports whether roleId may perform action on section.
func HasPermission(ctx context.Context, roleId int, section string, action PermissionAction) (bool, error) {
	permissions, err := GetRolePermissions(ctx, roleId)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return false, nil
		}
		return false, err
	}
	for _, p := range permissions {
		if p.Section == section {
			return p.Allows(action), nil
		}
	}
	return false, nil
}

// CheckPermission fails with a Forbidden AuthError unless the caller's role allows action on section.
// Admins pass every check.
func CheckPermission(ctx context.Context, section string, action PermissionAction) error {
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		return nil
	}
	roleId, ok := utils.GetRoleIdFromContext(ctx)
	if !ok || roleId == 0 {
		return NewAuthError(AuthCodeForbidden, "no role assigned")
	}
	allowed, err := HasPermission(ctx, roleId, section, action)
	if err != nil {
		return err
	}
	if !allowed {
		return NewAuthError(AuthCodeForbidden, "missing "+string(action)+" permission on "+section)
	}
	return nil
}

// FullPermissions grants every action on every section.
func FullPermissions() []*NewRolePermission {
	var permissions []*NewRolePermission
	for _, section := range AllSections {
		permissions = append(permissions, &NewRolePermission{
			Section: section, CanView: true, CanCreate: true, CanEdit: true, CanDelete: true, CanExport: true,
		})
	}
	return permissions
}
