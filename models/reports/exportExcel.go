package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var signedSalesHeaders = []string{
	"Lead #", "Name", "Phone", "Email", "Sign Date", "Category", "Language",
	"Scheduler", "Manager", "Closer", "Expert", "Handler",
	"Currency", "Total", "Total (NIS)", "Subcontractor Fee (NIS)", "Net (NIS)", "Payment Plan",
}

// WriteSignedSalesExcel renders the report as an xlsx workbook with a totals
// row at the bottom. Amounts are rounded to whole currency units here, at
// display time.
func WriteSignedSalesExcel(w io.Writer, report *SignedSalesReport) error {

	f := excelize.NewFile()
	defer f.Close()

	sheet := "SignedSales"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range signedSalesHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	for i, row := range report.Rows {
		planBadge := ""
		if row.HasPaymentPlan != nil && !*row.HasPaymentPlan {
			planBadge = "no payment plan"
		}
		values := []interface{}{
			row.DisplayNumber,
			row.Name,
			row.Phone,
			row.Email,
			row.SignDate.Format("2006-01-02"),
			row.Category,
			row.Language,
			row.Scheduler,
			row.Manager,
			row.Closer,
			row.Expert,
			row.Handler,
			row.CurrencySymbol,
			row.Total.Round(0).IntPart(),
			row.TotalBase.Round(0).IntPart(),
			row.SubcontractorFeeBase.Round(0).IntPart(),
			row.TotalBase.Sub(row.SubcontractorFeeBase).Round(0).IntPart(),
			planBadge,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	totalsRow := len(report.Rows) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow), "Totals"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("O%d", totalsRow), report.TotalBase.Round(0).IntPart()); err != nil {
		return err
	}
	feeTotal := report.TotalBase.Sub(report.TotalBaseLessSubcontractor)
	if err := f.SetCellValue(sheet, fmt.Sprintf("P%d", totalsRow), feeTotal.Round(0).IntPart()); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("Q%d", totalsRow), report.TotalBaseLessSubcontractor.Round(0).IntPart()); err != nil {
		return err
	}

	return f.Write(w)
}
