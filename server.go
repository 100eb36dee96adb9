package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/middlewares"
	"bitbucket.org/lawdesk/crm_backend/models"
	"bitbucket.org/lawdesk/crm_backend/models/reports"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("lawdesk-crm")

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	limit  int64
	window time.Duration
}

func signedSalesReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters reports.SignedSalesFilters
		if err := c.ShouldBindJSON(&filters); err != nil {
			respondBindError(c, err)
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "signed_sales_report")
		defer span.End()

		report, err := reports.BuildSignedSalesReport(ctx, filters)
		if err != nil {
			if errors.Is(err, utils.ErrorStaleReport) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			// fail closed: partial signed-lead data is misleading
			c.JSON(http.StatusBadGateway, gin.H{"error": "report build failed", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func signedSalesExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters reports.SignedSalesFilters
		if err := c.ShouldBindJSON(&filters); err != nil {
			respondBindError(c, err)
			return
		}

		report, err := reports.BuildSignedSalesReport(c.Request.Context(), filters)
		if err != nil {
			if errors.Is(err, utils.ErrorStaleReport) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "report build failed", "detail": err.Error()})
			return
		}

		filename := fmt.Sprintf("signed-sales-%s.xlsx", time.Time(filters.ToDate).Format("2006-01-02"))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		if err := reports.WriteSignedSalesExcel(c.Writer, report); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write workbook"})
		}
	}
}

// leadRoleNames is the decorated view of a lead's five role columns.
type leadRoleNames struct {
	Scheduler string `json:"scheduler"`
	Manager   string `json:"manager"`
	Closer    string `json:"closer"`
	Expert    string `json:"expert"`
	Handler   string `json:"handler"`
}

// roleNameForId resolves a numeric employee FK through the per-request
// loader so a detail view issues one batched employee query.
func roleNameForId(ctx context.Context, id *int) string {
	if id == nil || *id <= 0 {
		return ""
	}
	employee, err := middlewares.GetEmployee(ctx, *id)
	if err != nil || employee == nil {
		return ""
	}
	return employee.DisplayName
}

// roleNameForValue handles the new schema's role columns, which hold either
// an employee id string or an already-denormalized name.
func roleNameForValue(ctx context.Context, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if id, err := strconv.Atoi(raw); err == nil {
		return roleNameForId(ctx, &id)
	}
	return raw
}

func getLeadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		schema, err := models.ParseLeadSchema(c.Param("schema"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := c.Request.Context()

		switch schema {
		case models.LeadSchemaLegacy:
			id, err := strconv.Atoi(c.Param("id"))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "legacy lead id must be numeric"})
				return
			}
			lead, err := models.GetLegacyLead(ctx, id)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
				return
			}
			language := ""
			if lead.LanguageId != nil {
				if row, err := middlewares.GetLanguage(ctx, *lead.LanguageId); err == nil && row != nil {
					language = row.Name
				}
			}
			c.JSON(http.StatusOK, gin.H{
				"lead":     lead,
				"language": language,
				"currency": models.ResolveCurrency(lead.CurrencyRaw),
				"roles": leadRoleNames{
					Scheduler: roleNameForId(ctx, lead.MeetingScheduler),
					Manager:   roleNameForId(ctx, lead.MeetingManager),
					Closer:    roleNameForId(ctx, lead.CloserId),
					Expert:    roleNameForId(ctx, lead.ExpertId),
					Handler:   roleNameForId(ctx, lead.CaseHandlerId),
				},
			})
		case models.LeadSchemaNew:
			lead, err := models.GetLead(ctx, c.Param("id"))
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"lead":     lead,
				"language": lead.Language,
				"currency": models.ResolveCurrency(lead.CurrencyId),
				"roles": leadRoleNames{
					Scheduler: roleNameForValue(ctx, lead.Scheduler),
					Manager:   roleNameForValue(ctx, lead.Manager),
					Closer:    roleNameForValue(ctx, lead.Closer),
					Expert:    roleNameForValue(ctx, lead.Expert),
					Handler:   roleNameForValue(ctx, lead.Handler),
				},
			})
		}
	}
}

type roleEditRequest struct {
	EmployeeId *int `json:"employee_id"`
}

func roleEditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		schema, err := models.ParseLeadSchema(c.Param("schema"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		role, err := models.ParseRoleField(c.Param("role"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req roleEditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		assignment, err := models.SaveRoleEdit(c.Request.Context(), schema, c.Param("id"), role, req.EmployeeId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
				return
			}
			// backend error text surfaces verbatim; the row stays untouched
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// cached reports would otherwise show the stale assignment
		if err := reports.InvalidateSignedSalesCache(); err != nil {
			config.LogWarn(config.GetLogger(), "server.go", "roleEditHandler", "InvalidateSignedSalesCache", err.Error())
		}
		c.JSON(http.StatusOK, assignment)
	}
}

func createLeadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewLeadInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		lead, err := models.CreateLead(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, lead)
	}
}

type stageChangeRequest struct {
	Stage int        `json:"stage" binding:"required"`
	Date  *time.Time `json:"date"`
}

func stageChangeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		schema, err := models.ParseLeadSchema(c.Param("schema"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req stageChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		transition, err := models.ChangeLeadStage(c.Request.Context(), schema, c.Param("id"), req.Stage, req.Date)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := reports.InvalidateSignedSalesCache(); err != nil {
			config.LogWarn(config.GetLogger(), "server.go", "stageChangeHandler", "InvalidateSignedSalesCache", err.Error())
		}
		c.JSON(http.StatusCreated, transition)
	}
}

func listEmployeesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		employees, err := models.GetEmployees(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, employees)
	}
}

func listCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := models.GetCategories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

func listCurrenciesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		currencies, err := models.GetCurrencies(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, currencies)
	}
}

func createCurrencyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCurrency
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		currency, err := models.CreateCurrency(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, currency)
	}
}

func listCurrencyExchangesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var currencyId *int
		if raw := c.Query("currency_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "currency_id must be numeric"})
				return
			}
			currencyId = &id
		}
		exchanges, err := models.GetCurrencyExchanges(c.Request.Context(), currencyId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, exchanges)
	}
}

func createCurrencyExchangeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCurrencyExchange
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		exchange, err := models.CreateCurrencyExchange(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, exchange)
	}
}

func respondBindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization",
		"X-Correlation-Id", "X-Client-Key", "X-Timezone", "X-Employee-Id", "X-Employee-Name")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "X-Correlation-Id")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.LoaderMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/reports/signed-sales", signedSalesReportHandler())
	r.POST("/reports/signed-sales/export", signedSalesExportHandler())
	r.GET("/leads/:schema/:id", getLeadHandler())
	r.PATCH("/leads/:schema/:id/roles/:role", roleEditHandler())
	r.POST("/leads", createLeadHandler())
	r.POST("/leads/:schema/:id/stage", stageChangeHandler())
	r.GET("/employees", listEmployeesHandler())
	r.GET("/categories", listCategoriesHandler())
	r.GET("/currencies", listCurrenciesHandler())
	r.POST("/currencies", createCurrencyHandler())
	r.GET("/currency-exchanges", listCurrencyExchangesHandler())
	r.POST("/currency-exchanges", createCurrencyExchangeHandler())
	r.POST("/uploads/signature", signatureUploadHandler())
	r.POST("/uploads/document", documentUploadHandler())
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			userName, _ := utils.GetUserNameFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"user": userName,
			}).Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits. Counts requests per client IP on
// the shared Redis connection; the window expiry is set on the first hit.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	count, err := config.GetRedisCounter(c.Request.Context(), key)
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if count == 1 {
		if rdb := config.GetRedisDB(); rdb != nil {
			_ = rdb.Expire(c.Request.Context(), key, rl.window).Err()
		}
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
