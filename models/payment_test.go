package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

func TestCreatePayment_DerivesStatusAndClientFromCase(t *testing.T) {
	ctx := setupTestDB(t)
	client := mustCreateClient(t, ctx, "Acme")
	clientCase, err := models.CreateClientCase(ctx, &models.NewClientCase{ClientId: &client.ID, Title: "Lease"})
	if err != nil {
		t.Fatalf("CreateClientCase: %v", err)
	}

	past := utils.DateOnly(time.Now()).AddDate(0, 0, -3)
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		Type:         models.PaymentTypeIncome,
		Amount:       decimal.NewFromInt(500),
		Date:         past,
		ClientCaseId: &clientCase.ID,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if payment.Status != models.PaymentStatusOverdue {
		t.Fatalf("expected Overdue, got %s", payment.Status)
	}
	if payment.ClientId == nil || *payment.ClientId != client.ID {
		t.Fatalf("expected client %d taken from case, got %v", client.ID, payment.ClientId)
	}
	if payment.Client == nil || payment.Client.Name != "Acme" {
		t.Fatalf("expected client to be preloaded")
	}
	if payment.CreatedById == nil || *payment.CreatedById != 1 {
		t.Fatalf("expected created_by_id 1, got %v", payment.CreatedById)
	}
}

func TestCreatePayment_RejectsInvalidInput(t *testing.T) {
	ctx := setupTestDB(t)
	missing := 404
	cases := []struct {
		field string
		input models.NewPayment
	}{
		{"type", models.NewPayment{Type: "Gift", Amount: decimal.NewFromInt(1), Date: time.Now()}},
		{"amount", models.NewPayment{Type: models.PaymentTypeIncome, Amount: decimal.Zero, Date: time.Now()}},
		{"date", models.NewPayment{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(1)}},
		{"status", models.NewPayment{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(1), Date: time.Now(), Status: "Lost"}},
		{"client_id", models.NewPayment{Type: models.PaymentTypeIncome, Amount: decimal.NewFromInt(1), Date: time.Now(), ClientId: &missing}},
	}
	for _, tc := range cases {
		_, err := models.CreatePayment(ctx, &tc.input)
		var verr *utils.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("%s: expected validation error on %s, got %v", tc.field, tc.field, err)
		}
	}
}

func TestUpdatePayment_CountsReschedules(t *testing.T) {
	ctx := setupTestDB(t)
	due := utils.DateOnly(time.Now()).AddDate(0, 0, 10)
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		Type:   models.PaymentTypeExpense,
		Amount: decimal.NewFromInt(300),
		Date:   due,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	moved, err := models.ReschedulePayment(ctx, payment.ID, &models.ReschedulePaymentInput{Date: due.AddDate(0, 0, 5)})
	if err != nil {
		t.Fatalf("ReschedulePayment: %v", err)
	}
	if moved.RescheduleCount != 1 {
		t.Fatalf("expected 1 reschedule, got %d", moved.RescheduleCount)
	}

	edited, err := models.UpdatePayment(ctx, payment.ID, &models.NewPayment{
		Type:        models.PaymentTypeExpense,
		Amount:      decimal.NewFromInt(350),
		Date:        due.AddDate(0, 0, 7),
		Description: "rent",
	})
	if err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if edited.RescheduleCount != 2 {
		t.Fatalf("expected 2 reschedules, got %d", edited.RescheduleCount)
	}
	if !edited.PlannedDate.Equal(due) {
		t.Fatalf("planned date must stay %s, got %s", due, edited.PlannedDate)
	}

	paid, err := models.MarkPaymentPaid(ctx, payment.ID, &models.MarkPaymentPaidInput{})
	if err != nil {
		t.Fatalf("MarkPaymentPaid: %v", err)
	}
	if paid.Status != models.PaymentStatusCompleted || !paid.PaidAmount.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected completed with full amount, got %s %s", paid.Status, paid.PaidAmount)
	}
	if paid.RescheduleCount != 2 {
		t.Fatalf("completion must not count as reschedule, got %d", paid.RescheduleCount)
	}

	_, err = models.ReschedulePayment(ctx, payment.ID, &models.ReschedulePaymentInput{Date: due})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error rescheduling a completed payment, got %v", err)
	}
}

func TestMarkPaymentPaid_Partial(t *testing.T) {
	ctx := setupTestDB(t)
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		Type:   models.PaymentTypeIncome,
		Amount: decimal.NewFromInt(1000),
		Date:   utils.DateOnly(time.Now()).AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	partial := decimal.NewFromInt(400)
	result, err := models.MarkPaymentPaid(ctx, payment.ID, &models.MarkPaymentPaidInput{PaidAmount: &partial})
	if err != nil {
		t.Fatalf("MarkPaymentPaid: %v", err)
	}
	if result.IsPaid || result.Status != models.PaymentStatusPending {
		t.Fatalf("expected partially paid payment to stay Pending, got %s", result.Status)
	}
	if !result.PaidAmount.Equal(partial) {
		t.Fatalf("expected paid amount 400, got %s", result.PaidAmount)
	}
}

func TestPaymentEvents_RecordedWhenTopicConfigured(t *testing.T) {
	t.Setenv("PAYMENT_EVENTS_TOPIC", "payment-events")
	ctx := setupTestDB(t)
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		Type:   models.PaymentTypeIncome,
		Amount: decimal.NewFromInt(10),
		Date:   utils.DateOnly(time.Now()).AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if _, err := models.MarkPaymentPaid(ctx, payment.ID, &models.MarkPaymentPaidInput{}); err != nil {
		t.Fatalf("MarkPaymentPaid: %v", err)
	}

	var events []models.PaymentEvent
	if err := config.GetDB().Where("payment_id = ?", payment.ID).Order("id").Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	last := events[1]
	if last.OldStatus != models.PaymentStatusPending || last.NewStatus != models.PaymentStatusCompleted {
		t.Fatalf("unexpected transition %s -> %s", last.OldStatus, last.NewStatus)
	}
	if last.EventType != models.PaymentEventCompleted || last.PublishStatus != models.OutboxPublishStatusPending {
		t.Fatalf("unexpected event %s/%s", last.EventType, last.PublishStatus)
	}

	if _, err := models.DeletePayment(ctx, payment.ID); err != nil {
		t.Fatalf("DeletePayment: %v", err)
	}
	var remaining int64
	config.GetDB().Model(&models.PaymentEvent{}).Where("payment_id = ?", payment.ID).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("expected events deleted with the payment, got %d", remaining)
	}
}

func TestGetPaymentsPaginated_FiltersAndSorts(t *testing.T) {
	ctx := setupTestDB(t)
	client := mustCreateClient(t, ctx, "Borealis")
	base := utils.DateOnly(time.Now()).AddDate(0, 0, 1)
	for i := 0; i < 5; i++ {
		input := &models.NewPayment{
			Type:        models.PaymentTypeIncome,
			Amount:      decimal.NewFromInt(int64(100 * (i + 1))),
			Date:        base.AddDate(0, 0, i),
			Description: "installment",
		}
		if i%2 == 0 {
			input.ClientId = &client.ID
		}
		if _, err := models.CreatePayment(ctx, input); err != nil {
			t.Fatalf("CreatePayment: %v", err)
		}
	}

	page, err := models.GetPaymentsPaginated(ctx, &models.PaymentFilter{ClientId: &client.ID},
		models.NewSortParams("amount", "desc"), models.NewPageParams(1, 2))
	if err != nil {
		t.Fatalf("GetPaymentsPaginated: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: total=%d pages=%d items=%d", page.Total, page.TotalPages, len(page.Items))
	}
	if !page.Items[0].Amount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected largest amount first, got %s", page.Items[0].Amount)
	}

	found, err := models.GetPaymentsPaginated(ctx, &models.PaymentFilter{Search: "borea"},
		models.SortParams{}, models.NewPageParams(1, models.DefaultPageSize))
	if err != nil {
		t.Fatalf("GetPaymentsPaginated search: %v", err)
	}
	if found.Total != 3 {
		t.Fatalf("expected client name search to match 3 payments, got %d", found.Total)
	}
}
