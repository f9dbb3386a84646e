package models

import (
	"math"
	"strings"
	"time"

	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

const MaxInstallmentMonths = 600

type RoundingMode string

const (
	RoundingNone    RoundingMode = "none"
	RoundingNearest RoundingMode = "nearest"
	RoundingUp      RoundingMode = "up"
	RoundingDown    RoundingMode = "down"
)

func (m RoundingMode) IsValid() bool {
	switch m {
	case RoundingNone, RoundingNearest, RoundingUp, RoundingDown:
		return true
	}
	return false
}

type InstallmentInput struct {
	Total        decimal.Decimal `json:"total" form:"total"`
	DownPayment  decimal.Decimal `json:"down_payment" form:"downPayment"`
	AnnualRate   decimal.Decimal `json:"annual_rate" form:"annualRate"`
	Months       int             `json:"months" form:"months"`
	StartDate    time.Time       `json:"start_date" form:"startDate" time_format:"2006-01-02"`
	RoundingMode RoundingMode    `json:"rounding_mode" form:"roundingMode"`
	RoundingStep decimal.Decimal `json:"rounding_step" form:"roundingStep"`
}

type InstallmentRow struct {
	Number    int             `json:"number"`
	Date      time.Time       `json:"date"`
	Payment   decimal.Decimal `json:"payment"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Balance   decimal.Decimal `json:"balance"`
}

type InstallmentSchedule struct {
	Rows           []*InstallmentRow `json:"rows"`
	MonthlyPayment decimal.Decimal   `json:"monthly_payment"`
	Principal      decimal.Decimal   `json:"principal"`
	DownPayment    decimal.Decimal   `json:"down_payment"`
	ToPay          decimal.Decimal   `json:"to_pay"`
	Overpay        decimal.Decimal   `json:"overpay"`
}

func (input *InstallmentInput) validate() error {
	if input.Total.IsNegative() {
		return utils.NewValidationError("total", "cannot be negative")
	}
	if input.DownPayment.IsNegative() {
		return utils.NewValidationError("down_payment", "cannot be negative")
	}
	if input.AnnualRate.IsNegative() {
		return utils.NewValidationError("annual_rate", "cannot be negative")
	}
	if input.Months < 0 || input.Months > MaxInstallmentMonths {
		return utils.NewValidationError("months", "must be between 0 and %d", MaxInstallmentMonths)
	}
	input.RoundingMode = RoundingMode(strings.ToLower(strings.TrimSpace(string(input.RoundingMode))))
	if input.RoundingMode == "" {
		input.RoundingMode = RoundingNone
	}
	if !input.RoundingMode.IsValid() {
		return utils.NewValidationError("rounding_mode", "must be one of none, nearest, up, down")
	}
	if input.RoundingStep.IsNegative() {
		return utils.NewValidationError("rounding_step", "cannot be negative")
	}
	if input.StartDate.IsZero() {
		input.StartDate = utils.DateOnly(time.Now())
	}
	return nil
}

// CalculateInstallments builds an annuity schedule (straight-line when the rate is zero).
// The last row takes whatever balance is left so the principal column always sums to the
// financed amount.
func CalculateInstallments(input InstallmentInput) (*InstallmentSchedule, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	principal := utils.RoundMoney(input.Total.Sub(input.DownPayment))
	schedule := InstallmentSchedule{
		Rows:           []*InstallmentRow{},
		MonthlyPayment: decimal.Zero,
		Principal:      decimal.Zero,
		DownPayment:    utils.RoundMoney(input.DownPayment),
		ToPay:          decimal.Zero,
		Overpay:        decimal.Zero,
	}
	if input.Months == 0 || !principal.IsPositive() {
		return &schedule, nil
	}
	schedule.Principal = principal

	rate := input.AnnualRate.InexactFloat64() / 1200
	monthlyRate := decimal.NewFromFloat(rate)
	payment := annuityPayment(principal, rate, input.Months)
	payment = snapToStep(payment, input.RoundingMode, input.RoundingStep)
	schedule.MonthlyPayment = payment

	balance := principal
	startDate := utils.DateOnly(input.StartDate)
	for i := 1; i <= input.Months && balance.IsPositive(); i++ {
		interest := utils.RoundMoney(balance.Mul(monthlyRate))
		principalPart := payment.Sub(interest)
		if principalPart.IsNegative() {
			principalPart = decimal.Zero
		}
		if i == input.Months || principalPart.GreaterThan(balance) {
			principalPart = balance
		}
		balance = balance.Sub(principalPart)
		row := &InstallmentRow{
			Number:    i,
			Date:      utils.AddMonthsClamped(startDate, i-1),
			Payment:   principalPart.Add(interest),
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		}
		schedule.Rows = append(schedule.Rows, row)
		schedule.ToPay = schedule.ToPay.Add(row.Payment)
	}
	schedule.Overpay = schedule.ToPay.Sub(principal)
	return &schedule, nil
}

func annuityPayment(principal decimal.Decimal, rate float64, months int) decimal.Decimal {
	if rate == 0 {
		return utils.RoundMoney(principal.Div(decimal.NewFromInt(int64(months))))
	}
	factor := rate / (1 - math.Pow(1+rate, -float64(months)))
	return utils.RoundMoney(principal.Mul(decimal.NewFromFloat(factor)))
}

// snapToStep rounds payment to a multiple of step. A step of zero, or a snap that would
// leave nothing to pay, keeps the payment as is.
func snapToStep(payment decimal.Decimal, mode RoundingMode, step decimal.Decimal) decimal.Decimal {
	if mode == RoundingNone || !step.IsPositive() {
		return payment
	}
	units := payment.Div(step)
	switch mode {
	case RoundingNearest:
		units = units.Round(0)
	case RoundingUp:
		units = units.Ceil()
	case RoundingDown:
		units = units.Floor()
	}
	snapped := units.Mul(step)
	if !snapped.IsPositive() {
		return payment
	}
	return snapped
}
