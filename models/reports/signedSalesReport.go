package reports

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/models"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/shopspring/decimal"
)

// SignedSalesFilters is the search form. Employee / main-category / language
// filters are applied post-fetch: they cannot be pushed down uniformly across
// the two lead schemas.
type SignedSalesFilters struct {
	FromDate         models.DateString `json:"from_date" binding:"required"`
	ToDate           models.DateString `json:"to_date" binding:"required"`
	Employee         string            `json:"employee"`
	MainCategory     string            `json:"main_category"`
	Language         string            `json:"language"`
	HandlerlessFirst bool              `json:"handlerless_first"`
	Timezone         string            `json:"timezone"`
}

// ReportRow is the unified shape of one signed lead. Schema tags the source
// table; exactly one of LegacyId / NewId is meaningful.
type ReportRow struct {
	Schema        models.LeadSchema `json:"Schema"`
	LegacyId      int               `json:"LegacyId,omitempty"`
	NewId         string            `json:"NewId,omitempty"`
	DisplayNumber string            `json:"DisplayNumber"`
	Name          string            `json:"Name"`
	Phone         string            `json:"Phone"`
	Email         string            `json:"Email"`
	Language      string            `json:"Language"`
	SignDate      time.Time         `json:"SignDate"`
	Category      string            `json:"Category"`
	CategoryMain  string            `json:"CategoryMain"`
	Scheduler     string            `json:"Scheduler"`
	Manager       string            `json:"Manager"`
	Closer        string            `json:"Closer"`
	Expert        string            `json:"Expert"`
	Handler       string            `json:"Handler"`

	CurrencySymbol       string          `json:"CurrencySymbol"`
	Total                decimal.Decimal `json:"Total"`
	TotalBase            decimal.Decimal `json:"TotalBase"`
	SubcontractorFee     decimal.Decimal `json:"SubcontractorFee"`
	SubcontractorFeeBase decimal.Decimal `json:"SubcontractorFeeBase"`

	// nil when the plan lookup failed for this build (degraded, not fatal)
	HasPaymentPlan *bool `json:"HasPaymentPlan"`
}

// DedupKey addresses a row by (schema, id); the assembler keeps at most one
// row per key.
func (row *ReportRow) DedupKey() string {
	if row.Schema == models.LeadSchemaLegacy {
		return "legacy-" + strconv.Itoa(row.LegacyId)
	}
	return row.NewId
}

type SignedSalesReport struct {
	Rows                       []*ReportRow    `json:"Rows"`
	RowCount                   int             `json:"RowCount"`
	TotalBase                  decimal.Decimal `json:"TotalBase"`
	TotalBaseLessSubcontractor decimal.Decimal `json:"TotalBaseLessSubcontractor"`
	Generation                 int64           `json:"Generation"`
	Warnings                   []string        `json:"Warnings,omitempty"`
}

// AssembleInput carries everything the pure assembly step needs. Lookup maps
// are built once per build and injected so the step is testable without a
// database.
type AssembleInput struct {
	LegacyLeads      []*models.LegacyLead
	NewLeads         []*models.Lead
	SignDates        models.StageDateIndex
	SubLeadNumbers   map[int]string
	EmployeesById    map[string]string
	CategoriesByName map[string]models.CategoryInfo
	LanguagesById    map[int]string
	Rates            map[string]decimal.Decimal
	PlanFlags        *models.ActivePlanFlags
	From             time.Time
	To               time.Time
	IncludeDropped   bool
}

// AssembleSignedSalesRows merges both schemas into the unified row set:
// dedup by (schema, id), sign date from the resolved stage index (rows whose
// resolved date falls outside [From, To) are dropped), decorated names and
// converted amounts, sorted by sign date descending.
func AssembleSignedSalesRows(input AssembleInput) []*ReportRow {

	inRange := func(t time.Time) bool {
		return !t.Before(input.From) && t.Before(input.To)
	}

	rowsByKey := make(map[string]*ReportRow, len(input.LegacyLeads)+len(input.NewLeads))
	order := make([]string, 0, len(input.LegacyLeads)+len(input.NewLeads))

	for _, lead := range input.LegacyLeads {
		if lead == nil {
			continue
		}
		signDate, ok := input.SignDates.Legacy[lead.ID]
		if !ok || !inRange(signDate) {
			continue
		}
		if lead.Stage == models.StageDropped && !input.IncludeDropped {
			continue
		}

		row := assembleLegacyRow(lead, signDate, input)
		if _, exists := rowsByKey[row.DedupKey()]; exists {
			continue
		}
		rowsByKey[row.DedupKey()] = row
		order = append(order, row.DedupKey())
	}

	for _, lead := range input.NewLeads {
		if lead == nil {
			continue
		}
		signDate, ok := input.SignDates.New[lead.ID]
		if !ok || !inRange(signDate) {
			continue
		}
		if lead.Stage == models.StageDropped && !input.IncludeDropped {
			continue
		}

		row := assembleNewRow(lead, signDate, input)
		if _, exists := rowsByKey[row.DedupKey()]; exists {
			continue
		}
		rowsByKey[row.DedupKey()] = row
		order = append(order, row.DedupKey())
	}

	rows := make([]*ReportRow, 0, len(order))
	for _, key := range order {
		rows = append(rows, rowsByKey[key])
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].SignDate.Equal(rows[j].SignDate) {
			return rows[i].SignDate.After(rows[j].SignDate)
		}
		return rows[i].DedupKey() < rows[j].DedupKey()
	})
	return rows
}

func assembleLegacyRow(lead *models.LegacyLead, signDate time.Time, input AssembleInput) *ReportRow {

	currency := models.ResolveCurrency(lead.CurrencyRaw)
	category, categoryMain := models.ResolveCategoryParts(lead.CategoryText, lead.CategoryId, lead.CategoryRef, input.CategoriesByName)

	displayNumber := strconv.Itoa(lead.ID)
	if lead.LeadNumber > 0 {
		displayNumber = strconv.Itoa(lead.LeadNumber)
	}
	if numbered, ok := input.SubLeadNumbers[lead.ID]; ok {
		displayNumber = numbered
	}

	language := ""
	if lead.LanguageId != nil {
		language = input.LanguagesById[*lead.LanguageId]
	}

	row := &ReportRow{
		Schema:        models.LeadSchemaLegacy,
		LegacyId:      lead.ID,
		DisplayNumber: displayNumber,
		Name:          lead.Name,
		Phone:         lead.Phone,
		Email:         lead.Email,
		Language:      language,
		SignDate:      signDate,
		Category:      category,
		CategoryMain:  categoryMain,
		Scheduler:     models.ResolveEmployeeNameById(lead.MeetingScheduler, input.EmployeesById),
		Manager:       models.ResolveEmployeeNameById(lead.MeetingManager, input.EmployeesById),
		Closer:        models.ResolveEmployeeNameById(lead.CloserId, input.EmployeesById),
		Expert:        models.ResolveEmployeeNameById(lead.ExpertId, input.EmployeesById),
		Handler:       models.ResolveEmployeeNameById(lead.CaseHandlerId, input.EmployeesById),

		CurrencySymbol:       currency.DisplaySymbol,
		Total:                lead.Total,
		TotalBase:            models.ConvertToBase(lead.Total, currency.ConversionKey, input.Rates),
		SubcontractorFee:     lead.SubcontractorFee,
		SubcontractorFeeBase: models.ConvertToBase(lead.SubcontractorFee, currency.ConversionKey, input.Rates),
	}
	if input.PlanFlags != nil {
		hasPlan := input.PlanFlags.Legacy[lead.ID]
		row.HasPaymentPlan = &hasPlan
	}
	return row
}

func assembleNewRow(lead *models.Lead, signDate time.Time, input AssembleInput) *ReportRow {

	currency := models.ResolveCurrency(lead.CurrencyId)
	category, categoryMain := models.ResolveCategoryParts(lead.CategoryText, lead.CategoryId, lead.CategoryRef, input.CategoriesByName)

	displayNumber := lead.ID
	if lead.LeadNumber > 0 {
		displayNumber = strconv.Itoa(lead.LeadNumber)
	}

	row := &ReportRow{
		Schema:        models.LeadSchemaNew,
		NewId:         lead.ID,
		DisplayNumber: displayNumber,
		Name:          lead.Name,
		Phone:         lead.Phone,
		Email:         lead.Email,
		Language:      lead.Language,
		SignDate:      signDate,
		Category:      category,
		CategoryMain:  categoryMain,
		Scheduler:     models.ResolveEmployeeName(lead.Scheduler, input.EmployeesById),
		Manager:       models.ResolveEmployeeName(lead.Manager, input.EmployeesById),
		Closer:        models.ResolveEmployeeName(lead.Closer, input.EmployeesById),
		Expert:        models.ResolveEmployeeName(lead.Expert, input.EmployeesById),
		Handler:       models.ResolveEmployeeName(lead.Handler, input.EmployeesById),

		CurrencySymbol:       currency.DisplaySymbol,
		Total:                lead.ProposalTotal,
		TotalBase:            models.ConvertToBase(lead.ProposalTotal, currency.ConversionKey, input.Rates),
		SubcontractorFee:     lead.SubcontractorFee,
		SubcontractorFeeBase: models.ConvertToBase(lead.SubcontractorFee, currency.ConversionKey, input.Rates),
	}
	if input.PlanFlags != nil {
		hasPlan := input.PlanFlags.New[lead.ID]
		row.HasPaymentPlan = &hasPlan
	}
	return row
}

// FilterRows applies the post-fetch filters. Employee matches any of the
// five role names; category matches the main category only; language is an
// exact match. All case-insensitive.
func FilterRows(rows []*ReportRow, filters SignedSalesFilters) []*ReportRow {
	employee := strings.ToLower(strings.TrimSpace(filters.Employee))
	mainCategory := strings.ToLower(strings.TrimSpace(filters.MainCategory))
	language := strings.ToLower(strings.TrimSpace(filters.Language))
	if employee == "" && mainCategory == "" && language == "" {
		return rows
	}

	filtered := make([]*ReportRow, 0, len(rows))
	for _, row := range rows {
		if employee != "" && !rowHasEmployee(row, employee) {
			continue
		}
		if mainCategory != "" && strings.ToLower(row.CategoryMain) != mainCategory {
			continue
		}
		if language != "" && strings.ToLower(row.Language) != language {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

func rowHasEmployee(row *ReportRow, employee string) bool {
	for _, name := range []string{row.Scheduler, row.Manager, row.Closer, row.Expert, row.Handler} {
		if strings.ToLower(name) == employee {
			return true
		}
	}
	return false
}

// SortHandlerlessFirst is the manual toggle: a stable re-sort floating rows
// with no handler to the top without disturbing the date order within each
// half.
func SortHandlerlessFirst(rows []*ReportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Handler == "" && rows[j].Handler != ""
	})
}

// ComputeTotals sums the converted amounts. Rounding happens at display
// time only, never before summation.
func ComputeTotals(rows []*ReportRow) (totalBase, totalBaseLessSubcontractor decimal.Decimal) {
	for _, row := range rows {
		totalBase = totalBase.Add(row.TotalBase)
		totalBaseLessSubcontractor = totalBaseLessSubcontractor.Add(row.TotalBase.Sub(row.SubcontractorFeeBase))
	}
	return totalBase, totalBaseLessSubcontractor
}

// Build generations. Each build takes a process-wide monotonic id and
// registers itself as the latest for the requesting client; a build that is
// no longer the latest when it completes is discarded rather than shown over
// a newer search's result.
var buildGeneration atomic.Int64

var latestGenerationByClient sync.Map // client key -> clientGeneration

type clientGeneration struct {
	gen     int64
	claimed time.Time
}

// Entries older than this are swept; a client idle for an hour has no build
// in flight that could still be superseded.
const clientGenerationTTL = time.Hour

func claimBuildGeneration(clientKey string) int64 {
	gen := buildGeneration.Add(1)
	if clientKey != "" {
		latestGenerationByClient.Store(clientKey, clientGeneration{gen: gen, claimed: time.Now()})
		if gen%512 == 0 {
			pruneStaleClientGenerations(time.Now())
		}
	}
	return gen
}

func pruneStaleClientGenerations(now time.Time) {
	latestGenerationByClient.Range(func(key, value any) bool {
		if entry, ok := value.(clientGeneration); ok && now.Sub(entry.claimed) > clientGenerationTTL {
			latestGenerationByClient.Delete(key)
		}
		return true
	})
}

func isCurrentGeneration(clientKey string, gen int64) bool {
	if clientKey == "" {
		return true
	}
	value, ok := latestGenerationByClient.Load(clientKey)
	if !ok {
		return true
	}
	entry, ok := value.(clientGeneration)
	if !ok {
		return true
	}
	return entry.gen == gen
}

const signedSalesCachePrefix = "report:signed-sales:"

// InvalidateSignedSalesCache drops every cached report variant. Called after
// edits that change what a cached report would show (role edits, stage
// changes).
func InvalidateSignedSalesCache() error {
	if !reportCacheEnabled() {
		return nil
	}
	return cacheInvalidateByPrefix(signedSalesCachePrefix)
}

// signedSalesCacheKey includes the effective timezone: the same calendar
// dates resolve to different UTC bounds per timezone, so entries must not be
// shared across them.
func signedSalesCacheKey(filters SignedSalesFilters, timezone string) string {
	return fmt.Sprintf(signedSalesCachePrefix+"%s:%s:%s:%s:%s:%s:%t",
		time.Time(filters.FromDate).Format("2006-01-02"),
		time.Time(filters.ToDate).Format("2006-01-02"),
		timezone,
		strings.ToLower(filters.Employee),
		strings.ToLower(filters.MainCategory),
		strings.ToLower(filters.Language),
		filters.HandlerlessFirst,
	)
}

// BuildSignedSalesReport runs the whole pipeline: resolve sign dates from
// the stage log, fetch both lead tables, decorate, merge, filter, total.
// Stage-log and lead fetch errors are fatal (no partial financial data);
// the payment-plan lookup degrades to a warning.
func BuildSignedSalesReport(ctx context.Context, filters SignedSalesFilters) (*SignedSalesReport, error) {

	logger := config.GetLogger()
	started := time.Now()
	defer logSlowReport(ctx, "signed_sales", started, map[string]any{
		"from": time.Time(filters.FromDate).Format("2006-01-02"),
		"to":   time.Time(filters.ToDate).Format("2006-01-02"),
	})

	clientKey, _ := utils.GetClientKeyFromContext(ctx)
	generation := claimBuildGeneration(clientKey)

	timezone := filters.Timezone
	if timezone == "" {
		timezone, _ = utils.GetTimezoneFromContext(ctx)
	}
	from, err := filters.FromDate.StartOfDayUTC(timezone)
	if err != nil {
		return nil, err
	}
	to, err := filters.ToDate.StartOfNextDayUTC(timezone)
	if err != nil {
		return nil, err
	}

	cacheKey := signedSalesCacheKey(filters, timezone)
	if reportCacheEnabled() {
		var cached SignedSalesReport
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			cached.Generation = generation
			return &cached, nil
		}
	}

	legacyIds, newIds, err := models.FetchSignedLeadKeys(ctx, from, to)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "FetchSignedLeadKeys", filters, err)
		return nil, err
	}

	transitions, err := models.FetchStageTransitions(ctx, models.StageSignedAgreement, legacyIds, newIds)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "FetchStageTransitions", filters, err)
		return nil, err
	}
	signDates := models.ResolveStageDates(transitions)

	legacyLeads, err := models.FetchLegacyLeadsByIds(ctx, legacyIds)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "FetchLegacyLeadsByIds", filters, err)
		return nil, err
	}
	newLeads, err := models.FetchLeadsByIds(ctx, newIds)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "FetchLeadsByIds", filters, err)
		return nil, err
	}

	// sub-lead numbering runs over the full table per master; recomputed
	// every search, never cached
	masterIds := make([]int, 0, len(legacyLeads))
	for _, lead := range legacyLeads {
		if lead.MasterId != nil && *lead.MasterId > 0 {
			masterIds = append(masterIds, *lead.MasterId)
		}
		masterIds = append(masterIds, lead.ID)
	}
	siblings, err := models.FetchSubLeadSiblings(ctx, masterIds)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "FetchSubLeadSiblings", filters, err)
		return nil, err
	}
	subLeadNumbers := models.ComputeSubLeadNumbers(utils.UniqueSlice(masterIds), siblings)

	employees, err := models.GetEmployees(ctx)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "GetEmployees", filters, err)
		return nil, err
	}
	categories, err := models.GetCategories(ctx)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "GetCategories", filters, err)
		return nil, err
	}
	mainCategories, err := models.GetMainCategories(ctx)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "GetMainCategories", filters, err)
		return nil, err
	}
	languages, err := models.GetLanguages(ctx)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "GetLanguages", filters, err)
		return nil, err
	}
	rates, err := models.FetchLatestRates(ctx)
	if err != nil {
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "FetchLatestRates", filters, err)
		return nil, err
	}

	mainNamesById := make(map[int]string, len(mainCategories))
	for _, main := range mainCategories {
		mainNamesById[main.ID] = main.Name
	}
	languagesById := make(map[int]string, len(languages))
	for _, language := range languages {
		languagesById[language.ID] = language.Name
	}

	var warnings []string
	planFlags, err := models.FetchActivePlanFlags(ctx, legacyIds, newIds)
	if err != nil {
		// degraded: rows render without the plan badge
		config.LogError(logger, "signedSalesReport.go", "BuildSignedSalesReport", "FetchActivePlanFlags", filters, err)
		warnings = append(warnings, "payment plan status unavailable")
		planFlags = nil
	}

	rows := AssembleSignedSalesRows(AssembleInput{
		LegacyLeads:      legacyLeads,
		NewLeads:         newLeads,
		SignDates:        signDates,
		SubLeadNumbers:   subLeadNumbers,
		EmployeesById:    models.BuildEmployeeIdMap(employees),
		CategoriesByName: models.BuildCategoryNameMap(categories, mainNamesById),
		LanguagesById:    languagesById,
		Rates:            rates,
		PlanFlags:        planFlags,
		From:             from,
		To:               to,
		IncludeDropped:   config.SignedReportIncludeDropped(),
	})

	rows = FilterRows(rows, filters)
	if filters.HandlerlessFirst {
		SortHandlerlessFirst(rows)
	}
	totalBase, totalBaseLessSubcontractor := ComputeTotals(rows)

	report := &SignedSalesReport{
		Rows:                       rows,
		RowCount:                   len(rows),
		TotalBase:                  totalBase,
		TotalBaseLessSubcontractor: totalBaseLessSubcontractor,
		Generation:                 generation,
		Warnings:                   warnings,
	}

	if !isCurrentGeneration(clientKey, generation) {
		return nil, utils.ErrorStaleReport
	}

	if reportCacheEnabled() && len(warnings) == 0 {
		_ = cacheSet(cacheKey, report, reportCacheTTL())
	}
	return report, nil
}
