package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quantdesk/quantdesk-go/internal/database"
	"github.com/quantdesk/quantdesk-go/internal/report"
)

// ReportsHandler exposes stored daily reports and on-demand generation.
type ReportsHandler struct {
	assembler *report.Assembler
	store     *database.ReportStore
	logger    *logrus.Logger
}

// NewReportsHandler creates the reports handler.
func NewReportsHandler(assembler *report.Assembler, store *database.ReportStore, logger *logrus.Logger) *ReportsHandler {
	return &ReportsHandler{
		assembler: assembler,
		store:     store,
		logger:    logger,
	}
}

// List handles GET /reports.
func (h *ReportsHandler) List(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report storage not configured"})
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 100"})
			return
		}
		limit = parsed
	}

	reports, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// Run handles POST /reports/run, generating a report immediately.
func (h *ReportsHandler) Run(c *gin.Context) {
	if h.assembler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report generation not configured"})
		return
	}
	generated, err := h.assembler.Generate(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("On-demand report generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, generated)
}
