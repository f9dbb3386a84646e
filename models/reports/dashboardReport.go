package reports

import (
	"context"
	"time"

	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

type IncomeExpenseDetails struct {
	Month         string          `json:"month"`
	IncomeAmount  decimal.Decimal `json:"income_amount"`
	ExpenseAmount decimal.Decimal `json:"expense_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Net           decimal.Decimal `json:"net"`
	PaymentCount  int             `json:"payment_count"`
}

type StatsSummaryV2 struct {
	*models.StatsSummary
	Months []*IncomeExpenseDetails `json:"months"`
}

type monthlyPayment struct {
	Type       models.PaymentType
	Status     models.PaymentStatus
	Amount     decimal.Decimal
	PaidAmount decimal.Decimal
	Date       time.Time
}

// GetStatsSummaryV2 adds a per-month income/expense breakdown to the summary.
// Months are bucketed in Go so the same code serves SQLite and MySQL.
func GetStatsSummaryV2(ctx context.Context, filter *models.PaymentFilter) (*StatsSummaryV2, error) {
	summary, err := models.GetStatsSummary(ctx, filter)
	if err != nil {
		return nil, err
	}

	var rows []*monthlyPayment
	err = models.PaymentQuery(ctx, filter).
		Select("payments.type, payments.status, payments.amount, payments.paid_amount, payments.date").
		Order("payments.date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	months := make([]*IncomeExpenseDetails, 0)
	index := make(map[string]*IncomeExpenseDetails)
	for _, r := range rows {
		if r.Status == models.PaymentStatusCancelled {
			continue
		}
		key := r.Date.UTC().Format("2006-01")
		m, ok := index[key]
		if !ok {
			m = &IncomeExpenseDetails{Month: key}
			index[key] = m
			months = append(months, m)
		}
		switch r.Type {
		case models.PaymentTypeIncome:
			m.IncomeAmount = m.IncomeAmount.Add(r.Amount)
		case models.PaymentTypeExpense:
			m.ExpenseAmount = m.ExpenseAmount.Add(r.Amount)
		}
		m.PaidAmount = m.PaidAmount.Add(r.PaidAmount)
		m.PaymentCount++
	}
	for _, m := range months {
		m.IncomeAmount = utils.RoundMoney(m.IncomeAmount)
		m.ExpenseAmount = utils.RoundMoney(m.ExpenseAmount)
		m.PaidAmount = utils.RoundMoney(m.PaidAmount)
		m.Net = m.IncomeAmount.Sub(m.ExpenseAmount)
	}
	return &StatsSummaryV2{StatsSummary: summary, Months: months}, nil
}
