package models_test

import (
	"testing"
	"time"

	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

func TestDeleteDictionaryEntry_ClearsPaymentReference(t *testing.T) {
	ctx := setupTestDB(t)
	source, err := models.CreateDictionaryEntry[models.PaymentSource](ctx, &models.NewDictionaryEntry{Name: "Bank transfer"})
	if err != nil {
		t.Fatalf("CreateDictionaryEntry: %v", err)
	}
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		Type:            models.PaymentTypeIncome,
		Amount:          decimal.NewFromInt(20),
		Date:            utils.DateOnly(time.Now()),
		PaymentSourceId: &source.ID,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	if _, err := models.DeleteDictionaryEntry[models.PaymentSource](ctx, source.ID); err != nil {
		t.Fatalf("DeleteDictionaryEntry: %v", err)
	}
	reloaded, err := models.GetPayment(ctx, payment.ID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if reloaded.PaymentSourceId != nil {
		t.Fatalf("expected payment source cleared, got %d", *reloaded.PaymentSourceId)
	}
}

func TestDictionaryEntries_ToggleActiveAndFilter(t *testing.T) {
	ctx := setupTestDB(t)
	for _, name := range []string{"Sale", "Rent", "Consulting"} {
		if _, err := models.CreateDictionaryEntry[models.DealType](ctx, &models.NewDictionaryEntry{Name: name}); err != nil {
			t.Fatalf("CreateDictionaryEntry(%s): %v", name, err)
		}
	}
	if _, err := models.CreateDictionaryEntry[models.DealType](ctx, &models.NewDictionaryEntry{Name: " Rent "}); !utils.IsValidationError(err) {
		t.Fatalf("expected duplicate name to be rejected, got %v", err)
	}

	all, err := models.GetDictionaryEntries[models.DealType](ctx, "", false)
	if err != nil {
		t.Fatalf("GetDictionaryEntries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}

	toggled, err := models.ToggleActiveModel[models.DealType](ctx, all[0].ID)
	if err != nil {
		t.Fatalf("ToggleActiveModel: %v", err)
	}
	if toggled.IsActive == nil || *toggled.IsActive {
		t.Fatalf("expected entry to be inactive after toggle")
	}

	active, err := models.GetDictionaryEntries[models.DealType](ctx, "", true)
	if err != nil {
		t.Fatalf("GetDictionaryEntries active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active entries, got %d", len(active))
	}
}

func TestCreatePayment_IncomeTypeMustMatchPaymentType(t *testing.T) {
	ctx := setupTestDB(t)
	salary, err := models.CreateDictionaryEntry[models.IncomeType](ctx, &models.NewDictionaryEntry{
		Name:        "Salary",
		PaymentType: models.PaymentTypeIncome,
	})
	if err != nil {
		t.Fatalf("CreateDictionaryEntry: %v", err)
	}
	_, err = models.CreatePayment(ctx, &models.NewPayment{
		Type:         models.PaymentTypeExpense,
		Amount:       decimal.NewFromInt(5),
		Date:         time.Now(),
		IncomeTypeId: &salary.ID,
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
