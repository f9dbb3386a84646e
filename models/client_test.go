package models_test

import (
	"testing"
	"time"

	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

func TestDeleteClient_DetachesPaymentsAndCases(t *testing.T) {
	ctx := setupTestDB(t)
	client := mustCreateClient(t, ctx, "Detach Ltd")
	clientCase, err := models.CreateClientCase(ctx, &models.NewClientCase{ClientId: &client.ID, Title: "Dispute"})
	if err != nil {
		t.Fatalf("CreateClientCase: %v", err)
	}
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		Type:     models.PaymentTypeIncome,
		Amount:   decimal.NewFromInt(75),
		Date:     utils.DateOnly(time.Now()),
		ClientId: &client.ID,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	if _, err := models.DeleteClient(ctx, client.ID); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if _, err := models.GetClient(ctx, client.ID); err != utils.ErrorRecordNotFound {
		t.Fatalf("expected client to be gone, got %v", err)
	}

	reloaded, err := models.GetPayment(ctx, payment.ID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if reloaded.ClientId != nil {
		t.Fatalf("expected payment detached from client, got %d", *reloaded.ClientId)
	}
	reloadedCase, err := models.GetClientCase(ctx, clientCase.ID)
	if err != nil {
		t.Fatalf("GetClientCase: %v", err)
	}
	if reloadedCase.ClientId != nil {
		t.Fatalf("expected case detached from client, got %d", *reloadedCase.ClientId)
	}
}

func TestCreateClient_RequiresName(t *testing.T) {
	ctx := setupTestDB(t)
	if _, err := models.CreateClient(ctx, &models.NewClient{Name: "   "}); !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetClientStats_SumsByType(t *testing.T) {
	ctx := setupTestDB(t)
	client := mustCreateClient(t, ctx, "Stats Co")
	future := utils.DateOnly(time.Now()).AddDate(0, 0, 5)
	inputs := []models.NewPayment{
		{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(100), Date: future, ClientId: &client.ID},
		{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(50), Date: future, ClientId: &client.ID, IsPaid: true},
		{Type: models.PaymentTypeExpense, Amount: decimal.NewFromInt(30), Date: future, ClientId: &client.ID},
		{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(999), Date: future, ClientId: &client.ID, Status: models.PaymentStatusCancelled},
	}
	for i := range inputs {
		if _, err := models.CreatePayment(ctx, &inputs[i]); err != nil {
			t.Fatalf("CreatePayment: %v", err)
		}
	}

	stats, err := models.GetClientStats(ctx, client.ID)
	if err != nil {
		t.Fatalf("GetClientStats: %v", err)
	}
	if !stats.IncomeTotal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected income 150 without the cancelled payment, got %s", stats.IncomeTotal)
	}
	if !stats.ExpenseTotal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected expense 30, got %s", stats.ExpenseTotal)
	}
	if !stats.PaidTotal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected paid 50, got %s", stats.PaidTotal)
	}
	if !stats.OutstandingTotal.Equal(decimal.NewFromInt(130)) {
		t.Fatalf("expected outstanding 130, got %s", stats.OutstandingTotal)
	}
	if stats.TotalPayments != 4 {
		t.Fatalf("expected 4 payments, got %d", stats.TotalPayments)
	}
	if stats.LastPaymentDate == nil {
		t.Fatalf("expected last payment date")
	}
}
