package reports

import (
	"testing"
	"time"

	"bitbucket.org/lawdesk/crm_backend/models"
	"github.com/shopspring/decimal"
)

func intPtr(n int) *int { return &n }

func marchRange() (time.Time, time.Time) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

func TestAssembleDedupByCompositeKey(t *testing.T) {
	from, to := marchRange()
	signDate := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	lead := &models.LegacyLead{ID: 6, Name: "Duplicated Lead", Stage: models.StageSignedAgreement}

	rows := AssembleSignedSalesRows(AssembleInput{
		// the same lead arriving twice (direct fetch + transition-derived
		// fetch) must yield exactly one row
		LegacyLeads: []*models.LegacyLead{lead, lead},
		SignDates: models.StageDateIndex{
			Legacy: map[int]time.Time{6: signDate},
			New:    map[string]time.Time{},
		},
		From: from,
		To:   to,
	})

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].DedupKey() != "legacy-6" {
		t.Fatalf("dedup key: got %q", rows[0].DedupKey())
	}
}

func TestAssembleEndToEndScenario(t *testing.T) {
	from, to := marchRange()

	transitions := []*models.StageTransition{
		{ID: 1, LeadId: intPtr(6), Stage: models.StageSignedAgreement,
			Date: timePtr(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))},
		{ID: 2, NewleadId: strPtr("42"), Stage: models.StageSignedAgreement,
			Date: timePtr(time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC))},
	}
	signDates := models.ResolveStageDates(transitions)

	legacy := &models.LegacyLead{
		ID:           6,
		Name:         "Old Schema Client",
		Stage:        models.StageSignedAgreement,
		CategoryText: "Citizenship",
		CloserId:     intPtr(12),
	}
	newLead := &models.Lead{
		ID:     "42",
		Name:   "New Schema Client",
		Stage:  models.StageSignedAgreement,
		Closer: "12",
	}

	rows := AssembleSignedSalesRows(AssembleInput{
		LegacyLeads:   []*models.LegacyLead{legacy},
		NewLeads:      []*models.Lead{newLead},
		SignDates:     signDates,
		EmployeesById: map[string]string{"12": "Dana Levi"},
		CategoriesByName: map[string]models.CategoryInfo{
			"citizenship": {Id: 4, Name: "Citizenship", MainName: "Immigration"},
		},
		PlanFlags: &models.ActivePlanFlags{
			Legacy: map[int]bool{},
			New:    map[string]bool{},
		},
		From: from,
		To:   to,
	})

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// 14:00 signing sorts before 10:00
	if rows[0].Schema != models.LeadSchemaNew || rows[1].Schema != models.LeadSchemaLegacy {
		t.Fatalf("sort order wrong: %s then %s", rows[0].Schema, rows[1].Schema)
	}
	if rows[1].Category != "Citizenship (Immigration)" {
		t.Fatalf("legacy category: got %q", rows[1].Category)
	}
	if rows[0].Closer != "Dana Levi" || rows[1].Closer != "Dana Levi" {
		t.Fatalf("closer names: got %q / %q", rows[0].Closer, rows[1].Closer)
	}
	for _, row := range rows {
		if row.HasPaymentPlan == nil || *row.HasPaymentPlan {
			t.Fatalf("both leads should carry the no-payment-plan badge")
		}
	}
}

func TestAssembleDropsOutOfRangeSignDates(t *testing.T) {
	from, to := marchRange()

	rows := AssembleSignedSalesRows(AssembleInput{
		LegacyLeads: []*models.LegacyLead{{ID: 6, Stage: models.StageSignedAgreement}},
		SignDates: models.StageDateIndex{
			// a later re-signing moved the resolved date past the range
			Legacy: map[int]time.Time{6: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)},
			New:    map[string]time.Time{},
		},
		From: from,
		To:   to,
	})
	if len(rows) != 0 {
		t.Fatalf("out-of-range sign date must drop the row, got %d rows", len(rows))
	}
}

func TestAssembleExcludesDroppedLeads(t *testing.T) {
	from, to := marchRange()
	signDate := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	input := AssembleInput{
		LegacyLeads: []*models.LegacyLead{{ID: 6, Stage: models.StageDropped}},
		SignDates: models.StageDateIndex{
			Legacy: map[int]time.Time{6: signDate},
			New:    map[string]time.Time{},
		},
		From: from,
		To:   to,
	}

	if rows := AssembleSignedSalesRows(input); len(rows) != 0 {
		t.Fatalf("dropped lead must be excluded by default")
	}

	input.IncludeDropped = true
	if rows := AssembleSignedSalesRows(input); len(rows) != 1 {
		t.Fatalf("dropped lead must appear when included")
	}
}

func TestAssembleConvertsAmounts(t *testing.T) {
	from, to := marchRange()
	signDate := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := AssembleSignedSalesRows(AssembleInput{
		LegacyLeads: []*models.LegacyLead{{
			ID:               6,
			Stage:            models.StageSignedAgreement,
			CurrencyRaw:      "USD",
			Total:            decimal.NewFromInt(1000),
			SubcontractorFee: decimal.NewFromInt(100),
		}},
		SignDates: models.StageDateIndex{
			Legacy: map[int]time.Time{6: signDate},
			New:    map[string]time.Time{},
		},
		Rates: map[string]decimal.Decimal{"USD": decimal.NewFromFloat(3.7)},
		From:  from,
		To:    to,
	})

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.CurrencySymbol != "$" {
		t.Fatalf("symbol: got %q", row.CurrencySymbol)
	}
	if !row.TotalBase.Equal(decimal.NewFromInt(3700)) {
		t.Fatalf("converted total: got %s", row.TotalBase)
	}
	if !row.SubcontractorFeeBase.Equal(decimal.NewFromInt(370)) {
		t.Fatalf("converted fee: got %s", row.SubcontractorFeeBase)
	}
}

func TestComputeTotalsInvariant(t *testing.T) {
	rows := []*ReportRow{
		{TotalBase: decimal.NewFromFloat(1234.56), SubcontractorFeeBase: decimal.NewFromFloat(100.06)},
		{TotalBase: decimal.NewFromFloat(999.99), SubcontractorFeeBase: decimal.Zero},
		{TotalBase: decimal.NewFromFloat(3700), SubcontractorFeeBase: decimal.NewFromFloat(370)},
	}

	totalBase, lessSub := ComputeTotals(rows)

	var wantTotal, wantFees decimal.Decimal
	for _, row := range rows {
		wantTotal = wantTotal.Add(row.TotalBase)
		wantFees = wantFees.Add(row.SubcontractorFeeBase)
	}
	if !totalBase.Equal(wantTotal) {
		t.Fatalf("total: got %s, want %s", totalBase, wantTotal)
	}
	if !lessSub.Equal(wantTotal.Sub(wantFees)) {
		t.Fatalf("net total: got %s, want %s", lessSub, wantTotal.Sub(wantFees))
	}
}

func TestFilterRows(t *testing.T) {
	rows := []*ReportRow{
		{Name: "A", Scheduler: "Dana Levi", CategoryMain: "Immigration", Language: "Hebrew"},
		{Name: "B", Handler: "Dana Levi", CategoryMain: "Wills & Estates", Language: "English"},
		{Name: "C", Closer: "Amir Cohen", CategoryMain: "Immigration", Language: "Hebrew"},
	}

	// employee matches any of the five roles, case-insensitive
	got := FilterRows(rows, SignedSalesFilters{Employee: "dana levi"})
	if len(got) != 2 {
		t.Fatalf("employee filter: got %d rows", len(got))
	}

	got = FilterRows(rows, SignedSalesFilters{MainCategory: "immigration"})
	if len(got) != 2 {
		t.Fatalf("category filter: got %d rows", len(got))
	}

	got = FilterRows(rows, SignedSalesFilters{Language: "English"})
	if len(got) != 1 || got[0].Name != "B" {
		t.Fatalf("language filter: got %d rows", len(got))
	}

	got = FilterRows(rows, SignedSalesFilters{Employee: "dana levi", MainCategory: "immigration"})
	if len(got) != 1 || got[0].Name != "A" {
		t.Fatalf("combined filter: got %d rows", len(got))
	}

	// no filters returns the input untouched
	if got := FilterRows(rows, SignedSalesFilters{}); len(got) != 3 {
		t.Fatalf("empty filter: got %d rows", len(got))
	}
}

func TestSortHandlerlessFirstIsStable(t *testing.T) {
	d1 := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []*ReportRow{
		{Name: "A", Handler: "Dana Levi", SignDate: d1},
		{Name: "B", SignDate: d2},
		{Name: "C", Handler: "Amir Cohen", SignDate: d2},
		{Name: "D", SignDate: d3},
	}
	SortHandlerlessFirst(rows)

	wantOrder := []string{"B", "D", "A", "C"}
	for i, want := range wantOrder {
		if rows[i].Name != want {
			t.Fatalf("position %d: got %q, want %q", i, rows[i].Name, want)
		}
	}
}

func TestGenerationGuard(t *testing.T) {
	first := claimBuildGeneration("client-1")
	second := claimBuildGeneration("client-1")

	if isCurrentGeneration("client-1", first) {
		t.Fatalf("superseded build must be stale")
	}
	if !isCurrentGeneration("client-1", second) {
		t.Fatalf("latest build must be current")
	}

	// builds without a client key are never considered stale
	if !isCurrentGeneration("", first) {
		t.Fatalf("anonymous builds are always current")
	}

	// a different client's searches do not interfere
	other := claimBuildGeneration("client-2")
	if !isCurrentGeneration("client-1", second) {
		t.Fatalf("client-2 search must not supersede client-1")
	}
	if !isCurrentGeneration("client-2", other) {
		t.Fatalf("client-2 latest must be current")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
func strPtr(s string) *string        { return &s }

func TestCacheKeyVariesByTimezone(t *testing.T) {
	filters := SignedSalesFilters{
		FromDate: models.DateString(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		ToDate:   models.DateString(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)),
		Employee: "Dana Levi",
	}

	// the same calendar dates cover different UTC ranges per timezone, so
	// the cached payloads must not collide
	jerusalem := signedSalesCacheKey(filters, "Asia/Jerusalem")
	newYork := signedSalesCacheKey(filters, "America/New_York")
	if jerusalem == newYork {
		t.Fatalf("cache key must differ by timezone, got %q for both", jerusalem)
	}

	if again := signedSalesCacheKey(filters, "Asia/Jerusalem"); again != jerusalem {
		t.Fatalf("same filters and timezone must share a key: %q vs %q", again, jerusalem)
	}
}

func TestPruneStaleClientGenerations(t *testing.T) {
	now := time.Now()
	latestGenerationByClient.Store("idle-client", clientGeneration{gen: 1, claimed: now.Add(-2 * clientGenerationTTL)})
	fresh := claimBuildGeneration("busy-client")

	pruneStaleClientGenerations(now)

	if _, ok := latestGenerationByClient.Load("idle-client"); ok {
		t.Fatalf("idle client entry must be swept")
	}
	if _, ok := latestGenerationByClient.Load("busy-client"); !ok {
		t.Fatalf("fresh entry must survive the sweep")
	}
	if !isCurrentGeneration("busy-client", fresh) {
		t.Fatalf("fresh generation must stay current after the sweep")
	}
	// a swept client starts over: any generation passes until the next claim
	if !isCurrentGeneration("idle-client", 1) {
		t.Fatalf("swept client must not keep staleness state")
	}
}
