package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

func sumPrincipal(rows []*models.InstallmentRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Principal)
	}
	return total
}

func TestCalculateInstallments_AnnuitySchedule(t *testing.T) {
	schedule, err := models.CalculateInstallments(models.InstallmentInput{
		Total:       decimal.NewFromInt(100000),
		DownPayment: decimal.NewFromInt(20000),
		AnnualRate:  decimal.RequireFromString("5.5"),
		Months:      60,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CalculateInstallments: %v", err)
	}
	if len(schedule.Rows) != 60 {
		t.Fatalf("expected 60 rows, got %d", len(schedule.Rows))
	}
	if got := schedule.MonthlyPayment.StringFixed(2); got != "1528.09" {
		t.Fatalf("expected monthly payment 1528.09, got %s", got)
	}
	first, last := schedule.Rows[0], schedule.Rows[59]
	if !first.Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected first date 2024-01-01, got %s", first.Date)
	}
	if !last.Date.Equal(time.Date(2028, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected last date 2028-12-01, got %s", last.Date)
	}
	if !last.Balance.IsZero() {
		t.Fatalf("expected final balance 0, got %s", last.Balance)
	}
	if !sumPrincipal(schedule.Rows).Equal(decimal.NewFromInt(80000)) {
		t.Fatalf("expected principal sum 80000, got %s", sumPrincipal(schedule.Rows))
	}
	if !schedule.Principal.Equal(decimal.NewFromInt(80000)) {
		t.Fatalf("expected principal 80000, got %s", schedule.Principal)
	}
	if !schedule.Overpay.Equal(schedule.ToPay.Sub(schedule.Principal)) {
		t.Fatalf("overpay %s != to_pay %s - principal %s", schedule.Overpay, schedule.ToPay, schedule.Principal)
	}
	if !schedule.Overpay.IsPositive() {
		t.Fatalf("expected positive overpay, got %s", schedule.Overpay)
	}
}

func TestCalculateInstallments_ZeroRateLastRowTakesRemainder(t *testing.T) {
	schedule, err := models.CalculateInstallments(models.InstallmentInput{
		Total:     decimal.NewFromInt(1000),
		Months:    3,
		StartDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CalculateInstallments: %v", err)
	}
	expected := []string{"333.33", "333.33", "333.34"}
	if len(schedule.Rows) != len(expected) {
		t.Fatalf("expected %d rows, got %d", len(expected), len(schedule.Rows))
	}
	for i, want := range expected {
		row := schedule.Rows[i]
		if row.Payment.StringFixed(2) != want {
			t.Fatalf("row %d: expected payment %s, got %s", i+1, want, row.Payment.StringFixed(2))
		}
		if !row.Interest.IsZero() {
			t.Fatalf("row %d: expected no interest, got %s", i+1, row.Interest)
		}
	}
	// month-end start dates clamp to the last day of shorter months
	if d := schedule.Rows[1].Date; d.Month() != time.February || d.Day() != 29 {
		t.Fatalf("expected 2024-02-29, got %s", d.Format(utils.DateLayout))
	}
	if !schedule.Overpay.IsZero() {
		t.Fatalf("expected zero overpay, got %s", schedule.Overpay)
	}
}

func TestCalculateInstallments_RoundingUpEndsEarly(t *testing.T) {
	schedule, err := models.CalculateInstallments(models.InstallmentInput{
		Total:        decimal.NewFromInt(80000),
		AnnualRate:   decimal.RequireFromString("5.5"),
		Months:       60,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RoundingMode: "UP",
		RoundingStep: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CalculateInstallments: %v", err)
	}
	if got := schedule.MonthlyPayment.StringFixed(2); got != "1600.00" {
		t.Fatalf("expected monthly payment 1600.00, got %s", got)
	}
	if len(schedule.Rows) >= 60 {
		t.Fatalf("expected schedule to end before 60 rows, got %d", len(schedule.Rows))
	}
	last := schedule.Rows[len(schedule.Rows)-1]
	if !last.Balance.IsZero() {
		t.Fatalf("expected final balance 0, got %s", last.Balance)
	}
	if !sumPrincipal(schedule.Rows).Equal(decimal.NewFromInt(80000)) {
		t.Fatalf("expected principal sum 80000, got %s", sumPrincipal(schedule.Rows))
	}
}

func TestCalculateInstallments_EmptySchedule(t *testing.T) {
	cases := []struct {
		name  string
		input models.InstallmentInput
	}{
		{"zero months", models.InstallmentInput{Total: decimal.NewFromInt(1000), Months: 0}},
		{"down payment covers total", models.InstallmentInput{Total: decimal.NewFromInt(1000), DownPayment: decimal.NewFromInt(1000), Months: 12}},
	}
	for _, tc := range cases {
		schedule, err := models.CalculateInstallments(tc.input)
		if err != nil {
			t.Fatalf("%s: CalculateInstallments: %v", tc.name, err)
		}
		if len(schedule.Rows) != 0 {
			t.Fatalf("%s: expected no rows, got %d", tc.name, len(schedule.Rows))
		}
		if !schedule.ToPay.IsZero() {
			t.Fatalf("%s: expected to_pay 0, got %s", tc.name, schedule.ToPay)
		}
	}
}

func TestCalculateInstallments_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		field string
		input models.InstallmentInput
	}{
		{"total", models.InstallmentInput{Total: decimal.NewFromInt(-1), Months: 12}},
		{"down_payment", models.InstallmentInput{Total: decimal.NewFromInt(10), DownPayment: decimal.NewFromInt(-1), Months: 12}},
		{"annual_rate", models.InstallmentInput{Total: decimal.NewFromInt(10), AnnualRate: decimal.NewFromInt(-1), Months: 12}},
		{"months", models.InstallmentInput{Total: decimal.NewFromInt(10), Months: models.MaxInstallmentMonths + 1}},
		{"rounding_mode", models.InstallmentInput{Total: decimal.NewFromInt(10), Months: 12, RoundingMode: "sideways"}},
	}
	for _, tc := range cases {
		_, err := models.CalculateInstallments(tc.input)
		var verr *utils.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", tc.field, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("expected field %s, got %s", tc.field, verr.Field)
		}
	}
}

func TestCalculateInstallments_PaymentsAddUpToTotal(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input models.InstallmentInput
	}{
		{"annuity", models.InstallmentInput{Total: decimal.NewFromInt(100000), DownPayment: decimal.NewFromInt(20000), AnnualRate: decimal.RequireFromString("5.5"), Months: 60, StartDate: start}},
		{"zero rate", models.InstallmentInput{Total: decimal.NewFromInt(1000), Months: 7, StartDate: start}},
		{"rounded up", models.InstallmentInput{Total: decimal.NewFromInt(50000), AnnualRate: decimal.NewFromInt(12), Months: 24, StartDate: start, RoundingMode: models.RoundingUp, RoundingStep: decimal.NewFromInt(100)}},
		{"rounded down", models.InstallmentInput{Total: decimal.RequireFromString("12345.67"), AnnualRate: decimal.NewFromInt(3), Months: 13, StartDate: start, RoundingMode: models.RoundingDown, RoundingStep: decimal.NewFromInt(50)}},
		{"single month", models.InstallmentInput{Total: decimal.RequireFromString("999.99"), AnnualRate: decimal.NewFromInt(20), Months: 1, StartDate: start}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := models.CalculateInstallments(tt.input)
			if err != nil {
				t.Fatalf("CalculateInstallments: %v", err)
			}
			payments := decimal.Zero
			for _, r := range schedule.Rows {
				payments = payments.Add(r.Payment)
				if !r.Payment.Equal(r.Principal.Add(r.Interest)) {
					t.Fatalf("row %d: payment %s != principal %s + interest %s", r.Number, r.Payment, r.Principal, r.Interest)
				}
			}
			if !payments.Equal(schedule.ToPay) {
				t.Fatalf("sum of payments %s != to_pay %s", payments, schedule.ToPay)
			}
			if !sumPrincipal(schedule.Rows).Equal(schedule.Principal) {
				t.Fatalf("sum of principal %s != principal %s", sumPrincipal(schedule.Rows), schedule.Principal)
			}
			if last := schedule.Rows[len(schedule.Rows)-1]; !last.Balance.IsZero() {
				t.Fatalf("expected final balance 0, got %s", last.Balance)
			}
		})
	}
}
