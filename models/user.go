package models

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Auth error codes the admin panel maps to dedicated screens.
const (
	AuthCodeInvalidCredentials = "InvalidCredentials"
	AuthCodePendingApproval    = "PendingApproval"
	AuthCodeUserInactive       = "UserInactive"
	AuthCodeUnauthorized       = "Unauthorized"
	AuthCodeForbidden          = "Forbidden"
)

// DefaultRoleName is given to self-registered users.
const DefaultRoleName = "Viewer"

type AuthError struct {
	Code    string
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewAuthError(code string, message string) *AuthError {
	status := http.StatusForbidden
	if code == AuthCodeInvalidCredentials || code == AuthCodeUnauthorized {
		status = http.StatusUnauthorized
	}
	return &AuthError{Code: code, Status: status, Message: message}
}

var (
	ErrInvalidCredentials = NewAuthError(AuthCodeInvalidCredentials, "invalid email or password")
	ErrPendingApproval    = NewAuthError(AuthCodePendingApproval, "account is waiting for administrator approval")
	ErrUserInactive       = NewAuthError(AuthCodeUserInactive, "account is disabled")
)

type User struct {
	ID          int        `gorm:"primary_key" json:"id"`
	Email       string     `gorm:"size:200;not null;uniqueIndex" json:"email"`
	FullName    string     `gorm:"size:200;not null" json:"full_name"`
	Password    string     `gorm:"size:255;not null" json:"-"`
	RoleId      *int       `gorm:"index" json:"role_id"`
	IsActive    *bool      `gorm:"not null;default:true" json:"is_active"`
	IsApproved  bool       `gorm:"not null;default:false" json:"is_approved"`
	PhotoUrl    string     `gorm:"size:500" json:"photo_url"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Role *Role `gorm:"foreignKey:RoleId" json:"role,omitempty"`
}

func (u *User) Active() bool {
	return u.IsActive != nil && *u.IsActive
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,max=200"`
	Password string `json:"password" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type SetPasswordInput struct {
	Password string `json:"password" binding:"required"`
}

type NewUser struct {
	Email      string `json:"email" binding:"required,email"`
	FullName   string `json:"full_name" binding:"required,max=200"`
	Password   string `json:"password"`
	RoleId     *int   `json:"role_id"`
	IsActive   *bool  `json:"is_active"`
	IsApproved *bool  `json:"is_approved"`
	PhotoUrl   string `json:"photo_url" binding:"max=500"`
}

type LoginInfo struct {
	Token       string            `json:"token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	User        *User             `json:"user"`
	IsAdmin     bool              `json:"is_admin"`
	Permissions []*RolePermission `json:"permissions"`
}

/*
caches:
	User:$id
	Permissions:Role:$roleId
*/

func (u *User) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[User](u.ID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validate input for both create & update. (id = 0 for create)
func (input *NewUser) validate(ctx context.Context, id int) error {
	input.Email = normalizeEmail(input.Email)
	if !utils.IsValidEmail(input.Email) {
		return utils.NewValidationError("email", "invalid email address")
	}
	input.FullName = strings.TrimSpace(input.FullName)
	if input.FullName == "" {
		return utils.NewValidationError("full_name", "is required")
	}
	if id == 0 || input.Password != "" {
		if err := utils.ValidatePassword(input.Password); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[User](ctx, "email", input.Email, id); err != nil {
		return err
	}
	return utils.ValidateOptionalReference[Role](ctx, "role_id", input.RoleId)
}

// Register creates an active account that cannot log in until an administrator approves it.
func Register(ctx context.Context, input *RegisterInput) (*User, error) {
	email := normalizeEmail(input.Email)
	if !utils.IsValidEmail(email) {
		return nil, utils.NewValidationError("email", "invalid email address")
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, utils.NewValidationError("full_name", "is required")
	}
	if err := utils.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[User](ctx, "email", email, 0); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Email:      email,
		FullName:   fullName,
		Password:   string(hashedPassword),
		IsActive:   utils.NewTrue(),
		IsApproved: false,
	}
	if role, err := GetRoleByName(ctx, DefaultRoleName); err == nil {
		user.RoleId = &role.ID
	} else if err != utils.ErrorRecordNotFound {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Omit("Role").Create(&user).Error; err != nil {
		return nil, err
	}
	return GetUser(ctx, user.ID)
}

// Login checks the credentials and account state, then issues a JWT.
func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Preload("Role").Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active() {
		return nil, ErrUserInactive
	}
	if !user.IsApproved {
		return nil, ErrPendingApproval
	}

	roleId, roleName := 0, ""
	if user.Role != nil {
		roleId, roleName = user.Role.ID, user.Role.Name
	}
	token, expiresAt, err := utils.JwtGenerate(user.ID, roleId, roleName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := db.WithContext(ctx).Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	if err := user.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "User", "Login", "RemoveInstanceRedis", user.ID, err)
	}

	info := LoginInfo{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      &user,
		IsAdmin:   user.Role.IsAdmin(),
	}
	if roleId > 0 {
		if info.Permissions, err = GetRolePermissions(ctx, roleId); err != nil {
			return nil, err
		}
	}
	return &info, nil
}

// GetCurrentUser returns the authenticated user with their permissions.
func GetCurrentUser(ctx context.Context) (*LoginInfo, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, NewAuthError(AuthCodeUnauthorized, "authentication required")
	}
	user, err := GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	info := LoginInfo{
		User:    user,
		IsAdmin: user.Role.IsAdmin(),
	}
	if user.RoleId != nil {
		if info.Permissions, err = GetRolePermissions(ctx, *user.RoleId); err != nil {
			return nil, err
		}
	}
	return &info, nil
}

// GetCachedUser reads the user through the redis cache. Used by the auth middleware on every request.
func GetCachedUser(ctx context.Context, id int) (*User, error) {
	user, err := utils.RetrieveRedis[User](id)
	if err != nil {
		config.LogError(config.GetLogger(), "User", "GetCachedUser", "RetrieveRedis", id, err)
	}
	if user != nil {
		return user, nil
	}
	user, err = GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis[User](user, id); err != nil {
		config.LogError(config.GetLogger(), "User", "GetCachedUser", "StoreRedis", id, err)
	}
	return user, nil
}

func ChangePassword(ctx context.Context, input *ChangePasswordInput) error {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return NewAuthError(AuthCodeUnauthorized, "authentication required")
	}
	user, err := utils.FetchModel[User](ctx, userId)
	if err != nil {
		return err
	}
	if err := utils.ComparePassword(user.Password, input.OldPassword); err != nil {
		return utils.NewValidationError("old_password", "old password is wrong")
	}
	return setPassword(ctx, user, input.NewPassword)
}

// SetUserPassword is the administrator reset; the old password is not required.
func SetUserPassword(ctx context.Context, id int, input *SetPasswordInput) error {
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return err
	}
	return setPassword(ctx, user, input.Password)
}

func setPassword(ctx context.Context, user *User, password string) error {
	if err := utils.ValidatePassword(password); err != nil {
		return err
	}
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(user).UpdateColumn("password", string(hashedPassword)).Error
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Email:      input.Email,
		FullName:   input.FullName,
		Password:   string(hashedPassword),
		RoleId:     input.RoleId,
		IsActive:   utils.NewTrue(),
		IsApproved: true,
		PhotoUrl:   input.PhotoUrl,
	}
	if input.IsActive != nil {
		user.IsActive = input.IsActive
	}
	if input.IsApproved != nil {
		user.IsApproved = *input.IsApproved
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Omit("Role").Create(&user).Error; err != nil {
		return nil, err
	}
	return GetUser(ctx, user.ID)
}

func UpdateUser(ctx context.Context, id int, input *NewUser) (*User, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	if currentId, _ := utils.GetUserIdFromContext(ctx); currentId == id && input.IsActive != nil && !*input.IsActive {
		return nil, utils.NewValidationError("is_active", "you cannot deactivate your own account")
	}

	updates := map[string]interface{}{
		"Email":    input.Email,
		"FullName": input.FullName,
		"RoleId":   input.RoleId,
		"PhotoUrl": input.PhotoUrl,
	}
	if input.IsActive != nil {
		updates["IsActive"] = *input.IsActive
	}
	if input.IsApproved != nil {
		updates["IsApproved"] = *input.IsApproved
	}
	if input.Password != "" {
		hashedPassword, err := utils.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		updates["Password"] = string(hashedPassword)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := user.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "User", "UpdateUser", "RemoveInstanceRedis", id, err)
	}
	return GetUser(ctx, id)
}

func DeleteUser(ctx context.Context, id int) (*User, error) {
	if currentId, _ := utils.GetUserIdFromContext(ctx); currentId == id {
		return nil, utils.NewValidationError("id", "you cannot delete your own account")
	}
	user, err := GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Payment{}).Where("created_by_id = ?", id).UpdateColumn("created_by_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	if err := user.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "User", "DeleteUser", "RemoveInstanceRedis", id, err)
	}
	return user, nil
}

func ApproveUser(ctx context.Context, id int) (*User, error) {
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).UpdateColumn("is_approved", true).Error; err != nil {
		return nil, err
	}
	if err := user.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "User", "ApproveUser", "RemoveInstanceRedis", id, err)
	}
	return GetUser(ctx, id)
}

func ToggleActiveUser(ctx context.Context, id int) (*User, error) {
	if currentId, _ := utils.GetUserIdFromContext(ctx); currentId == id {
		return nil, utils.NewValidationError("id", "you cannot deactivate your own account")
	}
	if _, err := ToggleActiveModel[User](ctx, id); err != nil {
		return nil, err
	}
	return GetUser(ctx, id)
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id, "Role")
}

type UserFilter struct {
	Search     string
	RoleId     *int
	IsActive   *bool
	IsApproved *bool
}

var userSort = sortSpec{
	table: "users",
	columns: map[string]string{
		"email":       "users.email",
		"fullname":    "users.full_name",
		"createdat":   "users.created_at",
		"lastloginat": "users.last_login_at",
	},
	def: "users.full_name",
}

func (f *UserFilter) apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		db = db.Where("(users.email LIKE ? OR users.full_name LIKE ?)", pattern, pattern)
	}
	if f.RoleId != nil {
		db = db.Where("users.role_id = ?", *f.RoleId)
	}
	if f.IsActive != nil {
		db = db.Where("users.is_active = ?", *f.IsActive)
	}
	if f.IsApproved != nil {
		db = db.Where("users.is_approved = ?", *f.IsApproved)
	}
	return db
}

func GetUsersPaginated(ctx context.Context, filter *UserFilter, sort SortParams, page PageParams) (*PagedResult[*User], error) {
	db := config.GetDB().WithContext(ctx).Model(&User{})
	return paginateQuery[User](userSort.apply(filter.apply(db), sort), page, "Role")
}
