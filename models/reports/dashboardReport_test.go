package reports_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/models/reports"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
)

func setupTestDB(t *testing.T) context.Context {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDatabase(sqlite.Open("file:" + name + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	config.SetDB(db)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(nil)
	})
	if err := models.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return utils.SetUserIdInContext(context.Background(), 1)
}

func TestGetStatsSummaryV2_MonthlyBreakdown(t *testing.T) {
	ctx := setupTestDB(t)
	year := time.Now().UTC().Year() + 1
	jan := time.Date(year, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(year, 2, 20, 0, 0, 0, 0, time.UTC)
	partial := decimal.NewFromInt(15)
	inputs := []models.NewPayment{
		{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(100), Date: jan},
		{Type: models.PaymentTypeExpense, Amount: decimal.NewFromInt(40), Date: jan, PaidAmount: &partial},
		{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(300), Date: feb},
		{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(900), Date: feb, Status: models.PaymentStatusCancelled},
	}
	for i := range inputs {
		if _, err := models.CreatePayment(ctx, &inputs[i]); err != nil {
			t.Fatalf("CreatePayment %d: %v", i, err)
		}
	}

	result, err := reports.GetStatsSummaryV2(ctx, nil)
	if err != nil {
		t.Fatalf("GetStatsSummaryV2: %v", err)
	}
	if !result.IncomeTotal.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected income 400, got %s", result.IncomeTotal)
	}
	if !result.Net.Equal(decimal.NewFromInt(360)) {
		t.Fatalf("expected net 360, got %s", result.Net)
	}
	if len(result.Months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(result.Months))
	}

	tests := []struct {
		month   string
		income  int64
		expense int64
		paid    int64
		net     int64
		count   int
	}{
		{jan.Format("2006-01"), 100, 40, 15, 60, 2},
		{feb.Format("2006-01"), 300, 0, 0, 300, 1},
	}
	for i, tt := range tests {
		m := result.Months[i]
		if m.Month != tt.month {
			t.Fatalf("month %d: expected %s, got %s", i, tt.month, m.Month)
		}
		if !m.IncomeAmount.Equal(decimal.NewFromInt(tt.income)) {
			t.Fatalf("%s: expected income %d, got %s", tt.month, tt.income, m.IncomeAmount)
		}
		if !m.ExpenseAmount.Equal(decimal.NewFromInt(tt.expense)) {
			t.Fatalf("%s: expected expense %d, got %s", tt.month, tt.expense, m.ExpenseAmount)
		}
		if !m.PaidAmount.Equal(decimal.NewFromInt(tt.paid)) {
			t.Fatalf("%s: expected paid %d, got %s", tt.month, tt.paid, m.PaidAmount)
		}
		if !m.Net.Equal(decimal.NewFromInt(tt.net)) {
			t.Fatalf("%s: expected net %d, got %s", tt.month, tt.net, m.Net)
		}
		if m.PaymentCount != tt.count {
			t.Fatalf("%s: expected %d payments, got %d", tt.month, tt.count, m.PaymentCount)
		}
	}
}

func TestGetStatsSummaryV2_NoPayments(t *testing.T) {
	ctx := setupTestDB(t)
	result, err := reports.GetStatsSummaryV2(ctx, nil)
	if err != nil {
		t.Fatalf("GetStatsSummaryV2: %v", err)
	}
	if result.Months == nil || len(result.Months) != 0 {
		t.Fatalf("expected an empty month list, got %v", result.Months)
	}
	if !result.IncomeTotal.IsZero() || result.TotalCount != 0 {
		t.Fatalf("expected zero totals, got income %s count %d", result.IncomeTotal, result.TotalCount)
	}
}
