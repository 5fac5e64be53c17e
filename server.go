package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/budget_backend/calculation"
	"bitbucket.org/mmdatafocus/budget_backend/config"
	"bitbucket.org/mmdatafocus/budget_backend/middlewares"
	"bitbucket.org/mmdatafocus/budget_backend/models"
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// respondError maps model-layer errors onto HTTP statuses: bad input is 422,
// a refused state transition is 409, a missing record is 404.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.IsValidationError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case utils.IsIllegalStateError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger := config.GetLogger()
		config.LogError(logger, "server.go", "respondError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		fields := utils.ProcessValidationErrors(err)
		if len(fields) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return false
	}
	return true
}

func productIdParam(c *gin.Context) (int, bool) {
	productId, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId must be a positive integer"})
		return 0, false
	}
	return productId, true
}

func entryIdParam(c *gin.Context) (int, bool) {
	entryId, err := strconv.Atoi(c.Param("entryId"))
	if err != nil || entryId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entryId must be a positive integer"})
		return 0, false
	}
	return entryId, true
}

/* budget lifecycle */

func createBudgetHandler(c *gin.Context) {
	var input models.NewBudget
	if !bindJSON(c, &input) {
		return
	}
	budget, err := models.CreateBudget(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, budget)
}

func getBudgetHandler(c *gin.Context) {
	budget, err := models.GetBudget(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func listBudgetsHandler(c *gin.Context) {
	budgets, err := models.ListBudgets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if yearStr := c.Query("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
			return
		}
		filtered := budgets[:0]
		for _, b := range budgets {
			if b.Year == year {
				filtered = append(filtered, b)
			}
		}
		budgets = filtered
	}
	c.JSON(http.StatusOK, budgets)
}

func budgetReadinessHandler(c *gin.Context) {
	readiness, err := models.CheckBudgetReadiness(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, readiness)
}

func finalizeBudgetHandler(c *gin.Context) {
	budget, readiness, err := models.FinalizeBudget(c.Request.Context(), c.Param("id"))
	if err != nil {
		if readiness != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "readiness": readiness})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func revertBudgetHandler(c *gin.Context) {
	budget, err := models.RevertBudget(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func budgetPnLHandler(c *gin.Context) {
	pnl, err := models.GetBudgetPnL(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pnl)
}

func exportBudgetHandler(c *gin.Context) {
	f, err := models.ExportBudgetWorkbook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=budget.xlsx")
	if err := f.Write(c.Writer); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "server.go", "exportBudgetHandler", "excel write", nil, err)
	}
}

/* estimation worksheets */

func upsertGrowthHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	var input models.NewGrowthEntry
	if !bindJSON(c, &input) {
		return
	}
	entry, err := models.UpsertGrowthEntry(c.Request.Context(), c.Param("id"), productId, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func useGrowthProjectionHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	entry, err := models.UseGrowthProjection(c.Request.Context(), c.Param("id"), productId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func deleteGrowthHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	if err := models.DeleteGrowthEntry(c.Request.Context(), c.Param("id"), productId); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listGrowthHandler(c *gin.Context) {
	entries, err := models.ListGrowthEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func upsertCapacityHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	var input models.NewCapacityEntry
	if !bindJSON(c, &input) {
		return
	}
	entry, err := models.UpsertCapacityEntry(c.Request.Context(), c.Param("id"), productId, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func deleteCapacityHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	if err := models.DeleteCapacityEntry(c.Request.Context(), c.Param("id"), productId); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listCapacityHandler(c *gin.Context) {
	entries, err := models.ListCapacityEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func upsertCollectionHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	var input models.NewCollectionEntry
	if !bindJSON(c, &input) {
		return
	}
	entry, err := models.UpsertCollectionEntry(c.Request.Context(), c.Param("id"), productId, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func deleteCollectionHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	if err := models.DeleteCollectionEntry(c.Request.Context(), c.Param("id"), productId); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listCollectionHandler(c *gin.Context) {
	entries, err := models.ListCollectionEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

/* results */

func updateResultSelectionHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	var input models.NewResultSelection
	if !bindJSON(c, &input) {
		return
	}
	entry, err := models.UpdateResultSelection(c.Request.Context(), c.Param("id"), productId, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func clearResultSelectionHandler(c *gin.Context) {
	productId, ok := productIdParam(c)
	if !ok {
		return
	}
	entry, err := models.ClearResultSelection(c.Request.Context(), c.Param("id"), productId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func selectAllResultsHandler(c *gin.Context) {
	var input struct {
		Method calculation.ResultMethod `json:"method" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}
	entries, err := models.SelectAllResults(c.Request.Context(), c.Param("id"), input.Method)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func resultSummaryHandler(c *gin.Context) {
	summary, err := models.GetResultSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

/* cost plans */

func replacePersonnelHandler(c *gin.Context) {
	var inputs []*models.NewPersonnelEntry
	if !bindJSON(c, &inputs) {
		return
	}
	entries, err := models.ReplacePersonnelEntries(c.Request.Context(), c.Param("id"), inputs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func listPersonnelHandler(c *gin.Context) {
	entries, err := models.ListPersonnelEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func deletePersonnelHandler(c *gin.Context) {
	entryId, ok := entryIdParam(c)
	if !ok {
		return
	}
	if err := models.DeletePersonnelEntry(c.Request.Context(), c.Param("id"), entryId); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func replaceExpensesHandler(c *gin.Context) {
	var inputs []*models.NewExpenseEntry
	if !bindJSON(c, &inputs) {
		return
	}
	entries, err := models.ReplaceExpenseEntries(c.Request.Context(), c.Param("id"), inputs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func listExpensesHandler(c *gin.Context) {
	entries, err := models.ListExpenseEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func deleteExpenseHandler(c *gin.Context) {
	entryId, ok := entryIdParam(c)
	if !ok {
		return
	}
	if err := models.DeleteExpenseEntry(c.Request.Context(), c.Param("id"), entryId); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

/* stateless previews: run the calculators without touching a budget */

func previewTrendlineHandler(c *gin.Context) {
	var input struct {
		History       []*decimal.Decimal        `json:"history"`
		TrendlineType calculation.TrendlineType `json:"trendline_type"`
	}
	if !bindJSON(c, &input) {
		return
	}
	if input.TrendlineType == "" {
		input.TrendlineType = calculation.TrendlineTypeLinear
	}
	if !input.TrendlineType.Valid() {
		respondError(c, utils.NewValidationError("invalid trendline type: "+string(input.TrendlineType)))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projected_value": calculation.ProjectTrendline(input.History, input.TrendlineType),
	})
}

func previewCapacityHandler(c *gin.Context) {
	var input struct {
		LastYearAvailableHours decimal.Decimal    `json:"last_year_available_hours"`
		NextYearHeadcount      decimal.Decimal    `json:"next_year_headcount"`
		NextYearAvgHourlyPrice *decimal.Decimal   `json:"next_year_avg_hourly_price"`
		NextYearBillablePct    *decimal.Decimal   `json:"next_year_billable_pct"`
		Hires                  []calculation.Hire `json:"hires"`
	}
	if !bindJSON(c, &input) {
		return
	}
	for _, h := range input.Hires {
		if err := calculation.ValidateHire(h); err != nil {
			respondError(c, err)
			return
		}
	}
	weighted := calculation.WeightedHeadcount(input.NextYearHeadcount, input.Hires)
	c.JSON(http.StatusOK, gin.H{
		"weighted_headcount": weighted,
		"budgeted_income":    calculation.CapacityIncome(input.LastYearAvailableHours, weighted, input.NextYearAvgHourlyPrice, input.NextYearBillablePct),
	})
}

func previewCollectionHandler(c *gin.Context) {
	var input struct {
		BeginningBalance   decimal.Decimal              `json:"beginning_balance"`
		EndBalance         decimal.Decimal              `json:"end_balance"`
		AvgBalance         *decimal.Decimal             `json:"avg_balance"`
		AvgPaymentPerMonth decimal.Decimal              `json:"avg_payment_per_month"`
		Patterns           []calculation.PaymentPattern `json:"patterns"`
	}
	if !bindJSON(c, &input) {
		return
	}
	if err := calculation.ValidatePatternSet(input.Patterns); err != nil {
		respondError(c, err)
		return
	}
	avgBalance := calculation.AverageBalance(input.BeginningBalance, input.EndBalance)
	if input.AvgBalance != nil {
		avgBalance = *input.AvgBalance
	}
	lastYearMonths := calculation.CollectionMonths(avgBalance, input.AvgPaymentPerMonth)
	budgetedMonths := calculation.BudgetedCollectionMonths(lastYearMonths, input.Patterns)
	c.JSON(http.StatusOK, gin.H{
		"avg_balance":                 avgBalance,
		"last_year_collection_months": lastYearMonths,
		"budgeted_collection_months":  budgetedMonths,
		"budgeted_income":             calculation.CollectionIncome(input.EndBalance, budgetedMonths),
	})
}

func registerRoutes(r *gin.Engine) {
	preview := r.Group("/preview")
	{
		preview.POST("/trendline", previewTrendlineHandler)
		preview.POST("/capacity", previewCapacityHandler)
		preview.POST("/collection", previewCollectionHandler)
	}

	budgets := r.Group("/budgets", middlewares.BusinessContextMiddleware())
	{
		budgets.POST("", createBudgetHandler)
		budgets.GET("", listBudgetsHandler)
		budgets.GET("/:id", getBudgetHandler)
		budgets.GET("/:id/readiness", budgetReadinessHandler)
		budgets.POST("/:id/finalize", finalizeBudgetHandler)
		budgets.POST("/:id/revert", revertBudgetHandler)
		budgets.GET("/:id/pnl", budgetPnLHandler)
		budgets.GET("/:id/export", exportBudgetHandler)

		budgets.GET("/:id/growth", listGrowthHandler)
		budgets.PUT("/:id/growth/:productId", upsertGrowthHandler)
		budgets.DELETE("/:id/growth/:productId", deleteGrowthHandler)
		budgets.POST("/:id/growth/:productId/use-projection", useGrowthProjectionHandler)

		budgets.GET("/:id/capacity", listCapacityHandler)
		budgets.PUT("/:id/capacity/:productId", upsertCapacityHandler)
		budgets.DELETE("/:id/capacity/:productId", deleteCapacityHandler)

		budgets.GET("/:id/collection", listCollectionHandler)
		budgets.PUT("/:id/collection/:productId", upsertCollectionHandler)
		budgets.DELETE("/:id/collection/:productId", deleteCollectionHandler)

		budgets.GET("/:id/results/summary", resultSummaryHandler)
		budgets.PUT("/:id/results/:productId/selection", updateResultSelectionHandler)
		budgets.DELETE("/:id/results/:productId/selection", clearResultSelectionHandler)
		budgets.POST("/:id/results/select-all", selectAllResultsHandler)

		budgets.GET("/:id/personnel", listPersonnelHandler)
		budgets.PUT("/:id/personnel", replacePersonnelHandler)
		budgets.DELETE("/:id/personnel/:entryId", deletePersonnelHandler)

		budgets.GET("/:id/expenses", listExpensesHandler)
		budgets.PUT("/:id/expenses", replaceExpensesHandler)
		budgets.DELETE("/:id/expenses/:entryId", deleteExpenseHandler)
	}
}

func main() {
	port := os.Getenv("API_PORT_2")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB is ready, app endpoints return 503.
	r := gin.New()

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "X-Business-Id", "X-User-Id", "X-User-Name")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(gin.Recovery())
	registerRoutes(r)

	// Start listening immediately (the startup probe is TCP based).
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

	db := config.GetDB()
	sqlDB, err := db.DB()
	utils.ErrorPanic(err)
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow disabling migrations on
	// startup and running them as a separate job instead.
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
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
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
	log.Println("Server started successfully")

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
