package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"weather-telemetry-service/internal/db"
	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
	"weather-telemetry-service/internal/rules"
)

type Handler struct {
	db     *db.DB
	rules  *rules.Store
	logger *logging.Logger
}

func NewHandler(dbConn *db.DB, ruleStore *rules.Store, logger *logging.Logger) *Handler {
	return &Handler{db: dbConn, rules: ruleStore, logger: logger}
}

type ruleRequest struct {
	Name           string  `json:"name" binding:"required"`
	FieldName      string  `json:"field_name" binding:"required"`
	Operator       string  `json:"operator" binding:"required"`
	ThresholdValue float64 `json:"threshold_value"`
	Severity       string  `json:"severity" binding:"required"`
	Enabled        *bool   `json:"enabled"`
}

func (r ruleRequest) validate() string {
	if !models.KnownField(r.FieldName) {
		return "unknown field_name"
	}
	if !models.ValidOperator(r.Operator) {
		return "operator must be one of >, <, >=, <=, =="
	}
	if !models.ValidSeverity(r.Severity) {
		return "severity must be WARNING or CRITICAL"
	}
	return ""
}

func (h *Handler) CreateAlertConfiguration(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid rule request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	rule, err := h.db.CreateRule(c.Request.Context(), models.AlertConfiguration{
		Name:           req.Name,
		FieldName:      req.FieldName,
		Operator:       req.Operator,
		ThresholdValue: req.ThresholdValue,
		Severity:       req.Severity,
		Enabled:        enabled,
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicateRule) {
			c.JSON(http.StatusConflict, gin.H{"error": "A rule with this field, operator and threshold already exists"})
			return
		}
		h.logger.Errorf("Failed to create rule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create rule"})
		return
	}

	h.rules.Invalidate()
	h.logger.Infof("Created alert configuration %d (%s)", rule.ID, rule.AlertType())
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) ListAlertConfigurations(c *gin.Context) {
	list, err := h.db.ListRules(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list rules: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rules"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetAlertConfiguration(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	rule, err := h.db.GetRule(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to get rule %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get rule"})
		return
	}
	if rule == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) UpdateAlertConfiguration(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	found, err := h.db.UpdateRule(c.Request.Context(), models.AlertConfiguration{
		ID:             id,
		Name:           req.Name,
		FieldName:      req.FieldName,
		Operator:       req.Operator,
		ThresholdValue: req.ThresholdValue,
		Severity:       req.Severity,
		Enabled:        enabled,
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicateRule) {
			c.JSON(http.StatusConflict, gin.H{"error": "A rule with this field, operator and threshold already exists"})
			return
		}
		h.logger.Errorf("Failed to update rule %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update rule"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		return
	}

	h.rules.Invalidate()
	h.logger.Infof("Updated alert configuration %d", id)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) DeleteAlertConfiguration(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	found, err := h.db.DeleteRule(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to delete rule %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		return
	}

	h.rules.Invalidate()
	h.logger.Infof("Deleted alert configuration %d", id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	list, total, err := h.db.ListAlerts(c.Request.Context(), c.Query("station_id"), c.Query("status"), limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "total": total, "limit": limit, "offset": offset})
}

func (h *Handler) ListStations(c *gin.Context) {
	list, err := h.db.ListStations(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list stations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list stations"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
