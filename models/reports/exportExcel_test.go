package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestWriteSignedSalesExcelTotals(t *testing.T) {
	report := &SignedSalesReport{
		Rows: []*ReportRow{
			{
				DisplayNumber:        "6",
				Name:                 "Lead A",
				SignDate:             time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
				CurrencySymbol:       "₪",
				Total:                decimal.NewFromInt(1000),
				TotalBase:            decimal.NewFromInt(1000),
				SubcontractorFeeBase: decimal.NewFromInt(200),
			},
			{
				DisplayNumber:        "7",
				Name:                 "Lead B",
				SignDate:             time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
				CurrencySymbol:       "$",
				Total:                decimal.NewFromInt(500),
				TotalBase:            decimal.NewFromInt(1850),
				SubcontractorFeeBase: decimal.NewFromInt(0),
			},
		},
		RowCount:                   2,
		TotalBase:                  decimal.NewFromInt(2850),
		TotalBaseLessSubcontractor: decimal.NewFromInt(2650),
	}

	var buf bytes.Buffer
	if err := WriteSignedSalesExcel(&buf, report); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	sheet := "SignedSales"
	cell := func(ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatalf("read %s: %v", ref, err)
		}
		return v
	}

	// column layout: fee and net amounts each live under their own header
	if got := cell("P1"); got != "Subcontractor Fee (NIS)" {
		t.Fatalf("P1 header: got %q", got)
	}
	if got := cell("Q1"); got != "Net (NIS)" {
		t.Fatalf("Q1 header: got %q", got)
	}
	if got := cell("R1"); got != "Payment Plan" {
		t.Fatalf("R1 header: got %q", got)
	}

	// per-row net is total minus subcontractor fee
	if got := cell("Q2"); got != "800" {
		t.Fatalf("row 1 net: got %q", got)
	}
	if got := cell("Q3"); got != "1850" {
		t.Fatalf("row 2 net: got %q", got)
	}

	// totals row: gross, fee and net each land under the matching header
	if got := cell("A4"); got != "Totals" {
		t.Fatalf("totals label: got %q", got)
	}
	if got := cell("O4"); got != "2850" {
		t.Fatalf("totals gross: got %q", got)
	}
	if got := cell("P4"); got != "200" {
		t.Fatalf("totals fee: got %q", got)
	}
	if got := cell("Q4"); got != "2650" {
		t.Fatalf("totals net: got %q", got)
	}
}
