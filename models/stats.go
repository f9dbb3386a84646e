package models

import (
	"context"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

// PaymentSummary aggregates payments matching a filter. Cancelled payments only count in TotalCount.
type PaymentSummary struct {
	TotalCount       int64           `json:"total_count"`
	IncomeTotal      decimal.Decimal `json:"income_total"`
	ExpenseTotal     decimal.Decimal `json:"expense_total"`
	PaidTotal        decimal.Decimal `json:"paid_total"`
	OutstandingTotal decimal.Decimal `json:"outstanding_total"`
	OverdueCount     int64           `json:"overdue_count"`
	OverdueTotal     decimal.Decimal `json:"overdue_total"`
}

const paymentSummarySelect = `
	COUNT(*) AS total_count,
	COALESCE(SUM(CASE WHEN payments.type = 'Income' AND payments.status <> 'Cancelled' THEN payments.amount ELSE 0 END), 0) AS income_total,
	COALESCE(SUM(CASE WHEN payments.type = 'Expense' AND payments.status <> 'Cancelled' THEN payments.amount ELSE 0 END), 0) AS expense_total,
	COALESCE(SUM(CASE WHEN payments.status <> 'Cancelled' THEN payments.paid_amount ELSE 0 END), 0) AS paid_total,
	COALESCE(SUM(CASE WHEN payments.status NOT IN ('Completed', 'Cancelled') THEN payments.amount - payments.paid_amount ELSE 0 END), 0) AS outstanding_total,
	COALESCE(SUM(CASE WHEN payments.status = 'Overdue' THEN 1 ELSE 0 END), 0) AS overdue_count,
	COALESCE(SUM(CASE WHEN payments.status = 'Overdue' THEN payments.amount - payments.paid_amount ELSE 0 END), 0) AS overdue_total`

func summarizePayments(ctx context.Context, filter *PaymentFilter) (*PaymentSummary, error) {
	var summary PaymentSummary
	if err := PaymentQuery(ctx, filter).Select(paymentSummarySelect).Scan(&summary).Error; err != nil {
		return nil, err
	}
	summary.IncomeTotal = utils.RoundMoney(summary.IncomeTotal)
	summary.ExpenseTotal = utils.RoundMoney(summary.ExpenseTotal)
	summary.PaidTotal = utils.RoundMoney(summary.PaidTotal)
	summary.OutstandingTotal = utils.RoundMoney(summary.OutstandingTotal)
	summary.OverdueTotal = utils.RoundMoney(summary.OverdueTotal)
	return &summary, nil
}

type StatusCount struct {
	Status PaymentStatus   `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type StatsSummary struct {
	PaymentSummary
	Net            decimal.Decimal `json:"net"`
	ByStatus       []*StatusCount  `json:"by_status"`
	ClientsCount   int64           `json:"clients_count"`
	OpenCasesCount int64           `json:"open_cases_count"`
}

// GetStatsSummary returns the dashboard totals for the payments matching filter.
func GetStatsSummary(ctx context.Context, filter *PaymentFilter) (*StatsSummary, error) {
	summary, err := summarizePayments(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := StatsSummary{
		PaymentSummary: *summary,
		Net:            summary.IncomeTotal.Sub(summary.ExpenseTotal),
	}

	var byStatus []*StatusCount
	err = PaymentQuery(ctx, filter).
		Select("payments.status AS status, COUNT(*) AS count, COALESCE(SUM(payments.amount), 0) AS amount").
		Group("payments.status").Order("payments.status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}
	for _, s := range byStatus {
		s.Amount = utils.RoundMoney(s.Amount)
	}
	result.ByStatus = byStatus

	db := config.GetDB().WithContext(ctx)
	if err := db.Model(&Client{}).Where("is_active = ?", true).Count(&result.ClientsCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ClientCase{}).Where("status = ?", CaseStatusOpen).Count(&result.OpenCasesCount).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
