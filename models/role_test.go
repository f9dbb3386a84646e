package models_test

import (
	"strconv"
	"testing"

	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
)

func TestSeedSystemRoles_Idempotent(t *testing.T) {
	ctx := setupTestDB(t)
	first, err := models.SeedSystemRoles(ctx)
	if err != nil {
		t.Fatalf("SeedSystemRoles: %v", err)
	}
	second, err := models.SeedSystemRoles(ctx)
	if err != nil {
		t.Fatalf("SeedSystemRoles again: %v", err)
	}
	for name, role := range first {
		if second[name].ID != role.ID {
			t.Fatalf("%s: expected same role id on reseed, got %d and %d", name, role.ID, second[name].ID)
		}
	}
	roles, err := models.GetRoles(ctx)
	if err != nil {
		t.Fatalf("GetRoles: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 system roles, got %d", len(roles))
	}

	viewer := first[models.DefaultRoleName].ID
	cases := []struct {
		section string
		action  models.PermissionAction
		want    bool
	}{
		{models.SectionPayments, models.PermissionView, true},
		{models.SectionPayments, models.PermissionEdit, false},
		{models.SectionUsers, models.PermissionView, false},
	}
	for _, tc := range cases {
		got, err := models.HasPermission(ctx, viewer, tc.section, tc.action)
		if err != nil {
			t.Fatalf("HasPermission: %v", err)
		}
		if got != tc.want {
			t.Fatalf("viewer %s/%s: expected %v, got %v", tc.section, tc.action, tc.want, got)
		}
	}
}

func TestRoles_ProtectSystemAndAssigned(t *testing.T) {
	ctx := setupTestDB(t)
	seeded, err := models.SeedSystemRoles(ctx)
	if err != nil {
		t.Fatalf("SeedSystemRoles: %v", err)
	}
	if _, err := models.DeleteRole(ctx, seeded[models.AdminRoleName].ID); !utils.IsValidationError(err) {
		t.Fatalf("expected system role delete to fail, got %v", err)
	}
	if _, err := models.UpdateRole(ctx, seeded[models.AdminRoleName].ID, &models.NewRole{Name: "Root"}); !utils.IsValidationError(err) {
		t.Fatalf("expected system role rename to fail, got %v", err)
	}

	accountant, err := models.CreateRole(ctx, &models.NewRole{
		Name: "Accountant",
		Permissions: []*models.NewRolePermission{
			{Section: models.SectionPayments, CanView: true, CanEdit: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	allowed, err := models.HasPermission(ctx, accountant.ID, models.SectionPayments, models.PermissionEdit)
	if err != nil || !allowed {
		t.Fatalf("expected accountant to edit payments, got %v %v", allowed, err)
	}

	permissions, err := models.SetRolePermissions(ctx, accountant.ID, []*models.NewRolePermission{
		{Section: models.SectionReports, CanView: true},
	})
	if err != nil {
		t.Fatalf("SetRolePermissions: %v", err)
	}
	if len(permissions) != 1 || permissions[0].Section != models.SectionReports {
		t.Fatalf("expected the matrix to be replaced, got %d rows", len(permissions))
	}
	if _, err := models.SetRolePermissions(ctx, accountant.ID, []*models.NewRolePermission{{Section: "kitchen"}}); !utils.IsValidationError(err) {
		t.Fatalf("expected unknown section to be rejected, got %v", err)
	}

	if _, err := models.CreateUser(ctx, &models.NewUser{
		Email:    "acc@example.com",
		FullName: "Acc",
		Password: "secret1",
		RoleId:   &accountant.ID,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := models.DeleteRole(ctx, accountant.ID); !utils.IsValidationError(err) {
		t.Fatalf("expected delete of an assigned role to fail, got %v", err)
	}
}

func TestUpdateRole_RenameRefreshesCachedUsers(t *testing.T) {
	ctx := setupTestDB(t)
	mr := setupTestRedis(t)

	role, err := models.CreateRole(ctx, &models.NewRole{Name: "Accountant"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	user, err := models.CreateUser(ctx, &models.NewUser{Email: "acc@example.com", FullName: "Acc", Password: "secret1", RoleId: &role.ID})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	cached, err := models.GetCachedUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetCachedUser: %v", err)
	}
	if cached.Role == nil || cached.Role.Name != "Accountant" {
		t.Fatalf("expected cached role Accountant, got %+v", cached.Role)
	}
	cacheKey := "User:" + strconv.Itoa(user.ID)
	if !mr.Exists(cacheKey) {
		t.Fatalf("expected %s to be cached", cacheKey)
	}

	if _, err := models.UpdateRole(ctx, role.ID, &models.NewRole{Name: "Bookkeeper"}); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if mr.Exists(cacheKey) {
		t.Fatalf("expected %s to be evicted after the rename", cacheKey)
	}
	cached, err = models.GetCachedUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetCachedUser: %v", err)
	}
	if cached.Role == nil || cached.Role.Name != "Bookkeeper" {
		t.Fatalf("expected renamed role, got %+v", cached.Role)
	}
}
