package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/models/reports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("payplanner/handlers")

func StatsSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParser(c)
		filter := paymentFilter(q)
		if q.Err() {
			return
		}
		result, err := models.GetStatsSummary(c.Request.Context(), filter)
		if err != nil {
			respondError(c, "StatsSummary", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// StatsSummaryV2 adds the per-month breakdown.
func StatsSummaryV2() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParser(c)
		filter := paymentFilter(q)
		if q.Err() {
			return
		}
		result, err := reports.GetStatsSummaryV2(c.Request.Context(), filter)
		if err != nil {
			respondError(c, "StatsSummaryV2", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func installmentInputFromQuery(q *queryParser) models.InstallmentInput {
	input := models.InstallmentInput{
		Total:        q.Decimal("total"),
		DownPayment:  q.Decimal("downPayment"),
		AnnualRate:   q.Decimal("annualRate"),
		Months:       q.Int("months", 0),
		RoundingMode: models.RoundingMode(q.String("roundingMode")),
		RoundingStep: q.Decimal("roundingStep"),
	}
	if start := q.DatePtr("startDate"); start != nil {
		input.StartDate = *start
	}
	return input
}

func calculateInstallments(c *gin.Context, input models.InstallmentInput) (*models.InstallmentSchedule, error) {
	_, span := tracer.Start(c.Request.Context(), "calculate-installments")
	defer span.End()
	span.SetAttributes(
		attribute.Int("installments.months", input.Months),
		attribute.String("installments.rounding_mode", string(input.RoundingMode)),
	)
	schedule, err := models.CalculateInstallments(input)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("installments.rows", len(schedule.Rows)))
	return schedule, nil
}

// CalculateInstallments answers GET with query parameters and POST with a JSON body.
func CalculateInstallments() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.InstallmentInput
		if c.Request.Method == http.MethodPost {
			if !bindJSON(c, &input) {
				return
			}
		} else {
			q := newQueryParser(c)
			input = installmentInputFromQuery(q)
			if q.Err() {
				return
			}
		}
		schedule, err := calculateInstallments(c, input)
		if err != nil {
			respondError(c, "CalculateInstallments", err)
			return
		}
		c.JSON(http.StatusOK, schedule)
	}
}

func ExportInstallments() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParser(c)
		input := installmentInputFromQuery(q)
		if q.Err() {
			return
		}
		schedule, err := calculateInstallments(c, input)
		if err != nil {
			respondError(c, "ExportInstallments", err)
			return
		}
		var buf bytes.Buffer
		if err := reports.ExportInstallments(&buf, schedule); err != nil {
			respondError(c, "ExportInstallments", err)
			return
		}
		sendExcel(c, fmt.Sprintf("installments_%d_months.xlsx", input.Months), &buf)
	}
}
