package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/models"
	"bitbucket.org/lawdesk/crm_backend/models/reports"
	"bitbucket.org/lawdesk/crm_backend/utils"
)

// signed-report-export builds the signed sales report for a date range and
// writes the xlsx to disk, without going through the HTTP server.
//
// Example:
//   go run ./cmd/signed-report-export \
//     --from=2026-08-01 --to=2026-08-31 --out=signed-sales.xlsx
func main() {
	var (
		fromStr  = flag.String("from", "", "range start, YYYY-MM-DD (required)")
		toStr    = flag.String("to", "", "range end, YYYY-MM-DD (required)")
		outPath  = flag.String("out", "signed-sales.xlsx", "output path")
		employee = flag.String("employee", "", "filter: employee name across all roles")
		category = flag.String("main_category", "", "filter: main category")
		language = flag.String("language", "", "filter: language")
		timezone = flag.String("timezone", models.DefaultTimezone, "business timezone")
	)
	flag.Parse()

	if *fromStr == "" || *toStr == "" {
		fmt.Fprintln(os.Stderr, "missing required flags")
		flag.Usage()
		os.Exit(2)
	}

	from, err := time.Parse("2006-01-02", *fromStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --from: %v\n", err)
		os.Exit(2)
	}
	to, err := time.Parse("2006-01-02", *toStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --to: %v\n", err)
		os.Exit(2)
	}

	// Connect to DB/Redis using env config (same as server).
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	ctx := context.Background()
	ctx = utils.SetCorrelationIdInContext(ctx, fmt.Sprintf("signed-report-export-%d", time.Now().UnixNano()))
	ctx = utils.SetTimezoneInContext(ctx, *timezone)

	report, err := reports.BuildSignedSalesReport(ctx, reports.SignedSalesFilters{
		FromDate:     models.DateString(from),
		ToDate:       models.DateString(to),
		Employee:     *employee,
		MainCategory: *category,
		Language:     *language,
		Timezone:     *timezone,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "report build failed: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	defer f.Close()

	if err := reports.WriteSignedSalesExcel(f, report); err != nil {
		fmt.Fprintf(os.Stderr, "cannot write workbook: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d rows to %s (total NIS %s, less subcontractor %s)\n",
		report.RowCount, *outPath,
		report.TotalBase.Round(0).String(),
		report.TotalBaseLessSubcontractor.Round(0).String(),
	)
}
