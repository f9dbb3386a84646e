package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/models/reports"
)

func paymentFilter(q *queryParser) *models.PaymentFilter {
	return &models.PaymentFilter{
		From:            q.DatePtr("from"),
		To:              q.DatePtr("to"),
		Type:            models.PaymentType(q.String("type")),
		Status:          models.PaymentStatus(q.String("status")),
		ClientId:        q.IntPtr("clientId"),
		ClientCaseId:    q.IntPtr("caseId"),
		DealTypeId:      q.IntPtr("dealTypeId"),
		IncomeTypeId:    q.IntPtr("incomeTypeId"),
		PaymentSourceId: q.IntPtr("paymentSourceId"),
		IsPaid:          q.BoolPtr("isPaid"),
		Search:          q.String("search"),
	}
}

// ListPayments answers the unpaginated v1 list.
func ListPayments() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParser(c)
		filter, sort := paymentFilter(q), q.Sort()
		if q.Err() {
			return
		}
		results, err := models.GetPayments(c.Request.Context(), filter, sort)
		if err != nil {
			respondError(c, "ListPayments", err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func ListPaymentsPaged() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParser(c)
		filter, sort, page := paymentFilter(q), q.Sort(), q.Page()
		if q.Err() {
			return
		}
		result, err := models.GetPaymentsPaginated(c.Request.Context(), filter, sort, page)
		if err != nil {
			respondError(c, "ListPaymentsPaged", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func GetPayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		result, err := models.GetPayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, "GetPayment", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func CreatePayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreatePayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "CreatePayment", err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func UpdatePayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.UpdatePayment(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "UpdatePayment", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func DeletePayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		if _, err := models.DeletePayment(c.Request.Context(), id); err != nil {
			respondError(c, "DeletePayment", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// MarkPaymentPaid accepts an empty body for a full payment.
func MarkPaymentPaid() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.MarkPaymentPaidInput
		if c.Request.ContentLength != 0 && !bindJSON(c, &input) {
			return
		}
		result, err := models.MarkPaymentPaid(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "MarkPaymentPaid", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func ReschedulePayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.ReschedulePaymentInput
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.ReschedulePayment(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "ReschedulePayment", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ExportPayments streams the filtered payments as an xlsx workbook.
func ExportPayments() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParser(c)
		filter, sort := paymentFilter(q), q.Sort()
		if q.Err() {
			return
		}
		var buf bytes.Buffer
		if err := reports.ExportPayments(c.Request.Context(), &buf, filter, sort); err != nil {
			respondError(c, "ExportPayments", err)
			return
		}
		sendExcel(c, fmt.Sprintf("payments_%s.xlsx", time.Now().UTC().Format("20060102_150405")), &buf)
	}
}
