package delivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fbetl/internal/domain"
	"fbetl/internal/usecase"
	"fbetl/pkg/config"
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handles HTTP requests
type HTTPHandlers struct {
	extractService *usecase.ExtractService
	rowRepo        domain.RowRepository
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
}

// creates new HTTP handlers
func NewHTTPHandlers(
	extractService *usecase.ExtractService,
	rowRepo domain.RowRepository,
	cfg *config.Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *HTTPHandlers {
	return &HTTPHandlers{
		extractService: extractService,
		rowRepo:        rowRepo,
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics,
	}
}

// ExtractRun triggers the extraction pipeline for the configured accounts
// (or an explicit subset) over a requested date range.
func (h *HTTPHandlers) ExtractRun(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	log := h.logger.WithContext(ctx)

	since := c.Query("since")
	until := c.Query("until")
	rng, err := domain.NewDateRange(since, until)
	if err != nil {
		h.metrics.RecordHTTPRequest("POST", "/extract/run", "400", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid date range",
			"message":    "since and until must be YYYY-MM-DD",
			"request_id": requestID,
		})
		return
	}

	accounts := c.QueryArray("account")
	if len(accounts) == 0 {
		accounts = h.cfg.Extract.AccountIDs
	}

	log.WithFields(map[string]any{
		"accounts": len(accounts),
		"since":    since,
		"until":    until,
	}).Info("Starting extraction run")

	outcomes, runErr := h.extractService.Run(ctx, accounts, rng)

	results := make([]gin.H, 0, len(outcomes))
	for _, o := range outcomes {
		r := gin.H{
			"account_id": o.AccountID,
			"rows":       o.Rows,
			"duration":   o.Duration.String(),
		}
		if o.Err != nil {
			r["error"] = o.Err.Error()
			if errors.Is(o.Err, domain.ErrNoData) {
				r["no_data"] = true
			}
		}
		results = append(results, r)
	}

	status := http.StatusOK
	if runErr != nil {
		// successes are still persisted; the caller must see the failures
		status = http.StatusMultiStatus
	}

	h.metrics.RecordHTTPRequest("POST", "/extract/run", strconv.Itoa(status), time.Since(start))
	c.JSON(status, gin.H{
		"accounts":   results,
		"since":      since,
		"until":      until,
		"request_id": requestID,
	})
}

// GetRows returns extracted rows for one account.
func (h *HTTPHandlers) GetRows(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	accountID := c.Query("account")
	if accountID == "" {
		h.metrics.RecordHTTPRequest("GET", "/rows", "400", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Missing required parameter",
			"message":    "account parameter is required",
			"request_id": requestID,
		})
		return
	}

	rows, err := h.rowRepo.GetByAccount(ctx, accountID)
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/rows", "500", time.Since(start))
		h.logger.WithContext(ctx).WithError(err).Error("Failed to get rows")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to retrieve rows",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	h.metrics.RecordHTTPRequest("GET", "/rows", "200", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"data":       rows,
		"total":      len(rows),
		"request_id": requestID,
	})
}

// GetRowsByDay returns extracted rows across accounts for one calendar day.
func (h *HTTPHandlers) GetRowsByDay(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	day, err := time.Parse("2006-01-02", c.Query("day"))
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/rows/day", "400", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid date format",
			"message":    "day must be YYYY-MM-DD",
			"request_id": requestID,
		})
		return
	}

	rows, err := h.rowRepo.GetByDay(ctx, day)
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/rows/day", "500", time.Since(start))
		h.logger.WithContext(ctx).WithError(err).Error("Failed to get rows by day")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to retrieve rows",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	h.metrics.RecordHTTPRequest("GET", "/rows/day", "200", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"data":       rows,
		"total":      len(rows),
		"day":        day.Format("2006-01-02"),
		"request_id": requestID,
	})
}

// GetAccounts lists accounts with extracted rows.
func (h *HTTPHandlers) GetAccounts(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	accounts, err := h.rowRepo.Accounts(ctx)
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/accounts", "500", time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to list accounts",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	h.metrics.RecordHTTPRequest("GET", "/accounts", "200", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"data":       accounts,
		"total":      len(accounts),
		"request_id": requestID,
	})
}

// GetAPIInfo returns API v1 information and available endpoints
func (h *HTTPHandlers) GetAPIInfo(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()

	apiInfo := gin.H{
		"api_version": "v1",
		"service":     "Facebook Ads Extraction Service",
		"version":     "1.0.0",
		"description": "Extracts and reconciles per-ad daily insights for warehouse loading",
		"endpoints": gin.H{
			"extract": gin.H{
				"path":        "/api/v1/extract/run",
				"methods":     []string{"POST"},
				"description": "Run extraction for a date range",
				"parameters": gin.H{
					"since":   "Required: start date (YYYY-MM-DD)",
					"until":   "Required: end date (YYYY-MM-DD)",
					"account": "Optional, repeatable: restrict to specific account ids",
				},
				"example": "/api/v1/extract/run?since=2025-01-01&until=2025-01-31",
			},
			"rows": gin.H{
				"path":        "/api/v1/rows",
				"methods":     []string{"GET"},
				"description": "Query extracted rows by account or by day",
			},
			"accounts": gin.H{
				"path":        "/api/v1/accounts",
				"methods":     []string{"GET"},
				"description": "List accounts with extracted rows",
			},
		},
		"request_id": requestID,
	}

	h.metrics.RecordHTTPRequest("GET", "/api/v1", "200", time.Since(start))
	c.JSON(http.StatusOK, apiInfo)
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()

	health := gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "fbetl",
		"version":    "1.0.0",
		"request_id": requestID,
	}

	h.metrics.RecordHTTPRequest("GET", "/health", "200", time.Since(start))
	c.JSON(http.StatusOK, health)
}
