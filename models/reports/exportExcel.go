package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/xuri/excelize/v2"
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExcelExporter interface {
	GetCellValues() []interface{}
}

type paymentRow struct {
	*models.Payment
}

func (p paymentRow) GetCellValues() []interface{} {
	clientName := ""
	if p.Client != nil {
		clientName = p.Client.Name
	}
	caseTitle := ""
	if p.ClientCase != nil {
		caseTitle = p.ClientCase.Title
	}
	var paidDate interface{}
	if p.PaidDate != nil {
		paidDate = p.PaidDate.Format(utils.DateLayout)
	}
	return []interface{}{
		p.ID,
		p.Date.Format(utils.DateLayout),
		string(p.Type),
		string(p.Status),
		p.Amount.InexactFloat64(),
		p.PaidAmount.InexactFloat64(),
		paidDate,
		clientName,
		caseTitle,
		p.Description,
		p.RescheduleCount,
	}
}

var paymentHeadings = []string{
	"ID", "Due date", "Type", "Status", "Amount", "Paid amount", "Paid date",
	"Client", "Case", "Description", "Reschedules",
}

type installmentRow struct {
	*models.InstallmentRow
}

func (r installmentRow) GetCellValues() []interface{} {
	return []interface{}{
		r.Number,
		r.Date.Format(utils.DateLayout),
		r.Payment.InexactFloat64(),
		r.Principal.InexactFloat64(),
		r.Interest.InexactFloat64(),
		r.Balance.InexactFloat64(),
	}
}

var installmentHeadings = []string{"No", "Date", "Payment", "Principal", "Interest", "Balance"}

// ExportPayments writes every payment matching filter as an xlsx workbook.
func ExportPayments(ctx context.Context, w io.Writer, filter *models.PaymentFilter, sort models.SortParams) error {
	payments, err := models.GetPayments(ctx, filter, sort)
	if err != nil {
		return err
	}
	rows := make([]ExcelExporter, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, paymentRow{p})
	}
	f, err := exportExcel("Payments", rows, paymentHeadings...)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// ExportInstallments writes the schedule rows followed by a totals block.
func ExportInstallments(w io.Writer, schedule *models.InstallmentSchedule) error {
	rows := make([]ExcelExporter, 0, len(schedule.Rows))
	for _, r := range schedule.Rows {
		rows = append(rows, installmentRow{r})
	}
	sheetName := "Schedule"
	f, err := exportExcel(sheetName, rows, installmentHeadings...)
	if err != nil {
		return err
	}
	defer f.Close()

	rowNo := len(rows) + 3
	totals := [][2]interface{}{
		{"Principal", schedule.Principal.InexactFloat64()},
		{"Down payment", schedule.DownPayment.InexactFloat64()},
		{"Monthly payment", schedule.MonthlyPayment.InexactFloat64()},
		{"To pay", schedule.ToPay.InexactFloat64()},
		{"Overpay", schedule.Overpay.InexactFloat64()},
	}
	for _, t := range totals {
		if err := f.SetCellValue(sheetName, "A"+fmt.Sprint(rowNo), t[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, "C"+fmt.Sprint(rowNo), t[1]); err != nil {
			return err
		}
		rowNo++
	}
	return f.Write(w)
}

func exportExcel(sheetName string, data []ExcelExporter, headings ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, err
	}

	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			f.Close()
			return nil, err
		}
	}

	rowNo := 2
	for _, d := range data {
		for i, value := range d.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, err
			}
		}
		rowNo++
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
