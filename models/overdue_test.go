package models_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/shopspring/decimal"
)

// insertPayment stores p as given, bypassing status derivation.
func insertPayment(t *testing.T, p models.Payment) *models.Payment {
	t.Helper()
	p.PlannedDate = p.Date
	if err := config.GetDB().Omit("Client", "ClientCase", "DealType", "IncomeType", "PaymentSource", "PaymentStatusEntity").Create(&p).Error; err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	return &p
}

func TestSweepOverduePayments(t *testing.T) {
	ctx := setupTestDB(t)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	var due []*models.Payment
	for i := 0; i < 5; i++ {
		due = append(due, insertPayment(t, models.Payment{
			Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(10), Status: models.PaymentStatusPending,
			Date: time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC),
		}))
	}
	today := insertPayment(t, models.Payment{
		Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(10), Status: models.PaymentStatusPending,
		Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	cancelled := insertPayment(t, models.Payment{
		Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(10), Status: models.PaymentStatusCancelled,
		Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	changed, err := models.SweepOverduePayments(ctx, now, 2)
	if err != nil {
		t.Fatalf("SweepOverduePayments: %v", err)
	}
	if changed != len(due) {
		t.Fatalf("expected %d payments changed, got %d", len(due), changed)
	}
	for _, p := range due {
		reloaded, err := models.GetPayment(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetPayment: %v", err)
		}
		if reloaded.Status != models.PaymentStatusOverdue {
			t.Fatalf("payment %d: expected Overdue, got %s", p.ID, reloaded.Status)
		}
		if !strings.Contains(reloaded.SystemNotes, "(automatic)") {
			t.Fatalf("payment %d: expected automatic note, got %q", p.ID, reloaded.SystemNotes)
		}
	}
	for _, p := range []*models.Payment{today, cancelled} {
		reloaded, err := models.GetPayment(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetPayment: %v", err)
		}
		if reloaded.Status != p.Status {
			t.Fatalf("payment %d: expected %s to be left alone, got %s", p.ID, p.Status, reloaded.Status)
		}
	}

	again, err := models.SweepOverduePayments(ctx, now, 2)
	if err != nil || again != 0 {
		t.Fatalf("expected second sweep to change nothing, got %d %v", again, err)
	}
}

func TestSweepOverduePayments_StopsOnCancel(t *testing.T) {
	setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := models.SweepOverduePayments(ctx, time.Now(), 10); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
