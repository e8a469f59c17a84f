package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"luckydraw/internal/metrics"
	"luckydraw/internal/services"
)

// maxImportSize caps participant uploads.
const maxImportSize = 4 << 20

// HTTPHandler holds the dependencies for the HTTP handlers, like the lottery service.
type HTTPHandler struct {
	service *services.LotteryService
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.LotteryService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterPublicRoutes registers the routes that need no tenant.
func (h *HTTPHandler) RegisterPublicRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// RegisterTenantRoutes registers the per-tenant lottery routes. The group
// must run TenantMiddleware.
func (h *HTTPHandler) RegisterTenantRoutes(rg *gin.RouterGroup) {
	rg.GET("/participants", h.ListParticipants)
	rg.POST("/participants", h.AddParticipant)
	rg.POST("/participants/import", h.ImportParticipants)
	rg.DELETE("/participants/:name", h.RemoveParticipant)
	rg.DELETE("/participants", h.ClearParticipants)

	rg.GET("/tiers", h.ListTiers)
	rg.PUT("/tiers/:name", h.ConfigureTier)

	rg.GET("/draw", h.DrawStatus)
	rg.POST("/draw", h.StartDraw)
	rg.POST("/draw/stop", h.StopDraw)
	rg.POST("/draw/cancel", h.CancelDraw)
	rg.GET("/draw/events", h.DrawEvents)

	rg.GET("/results", h.ListResults)
	rg.GET("/results/export", h.ExportResultsCSV)
	rg.DELETE("/results", h.ResetResults)

	rg.DELETE("/session", h.ClearSession)
}

// Health reports liveness and the number of sessions in memory.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.service.SessionCount()})
}

// ListParticipants returns the whole pool and the part of it still eligible.
func (h *HTTPHandler) ListParticipants(c *gin.Context) {
	tenantID := tenantOf(c)
	c.JSON(http.StatusOK, gin.H{
		"participants": h.service.GetParticipants(tenantID),
		"eligible":     h.service.GetEligibleParticipants(tenantID),
	})
}

type participantRequest struct {
	Name string `json:"name"`
}

// AddParticipant adds a single name to the pool.
func (h *HTTPHandler) AddParticipant(c *gin.Context) {
	var req participantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.AddParticipant(tenantOf(c), req.Name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": strings.TrimSpace(req.Name)})
}

// ImportParticipants accepts either a multipart upload in the "file" field
// (CSV or plain text, first column used) or a raw text body of separated
// names.
func (h *HTTPHandler) ImportParticipants(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	var names []string
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving file: " + err.Error()})
			return
		}
		defer file.Close()

		if names, err = services.ReadNames(file); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		names = services.ParseNames(string(body))
	}

	res, err := h.service.ImportParticipants(tenantOf(c), names)
	if err != nil {
		h.respondError(c, err)
		return
	}
	logger.Infof("tenant %s imported %d participants (%d duplicates)", tenantOf(c), res.Added, res.SkippedAsDuplicate)
	c.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) RemoveParticipant(c *gin.Context) {
	if err := h.service.RemoveParticipant(tenantOf(c), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ClearParticipants(c *gin.Context) {
	if err := h.service.ClearParticipants(tenantOf(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTiers returns every tier with its awarded and remaining counts.
func (h *HTTPHandler) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetTiers(tenantOf(c)))
}

type tierRequest struct {
	Quota int    `json:"quota"`
	Icon  string `json:"icon"`
	Order int    `json:"order"`
}

// ConfigureTier creates the tier named in the path or updates it.
func (h *HTTPHandler) ConfigureTier(c *gin.Context) {
	var req tierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := tenantOf(c)
	if err := h.service.ConfigureTier(tenantID, c.Param("name"), req.Quota, req.Icon, req.Order); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.service.GetTiers(tenantID))
}

// ListResults returns the award records, most recent first.
func (h *HTTPHandler) ListResults(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetLotteryResults(tenantOf(c)))
}

// ExportResultsCSV handles the request to download the lottery results as a CSV file.
func (h *HTTPHandler) ExportResultsCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment;filename=lottery_results.csv")

	if err := services.WriteResultsCSV(c.Writer, h.service.ExportRecords(tenantOf(c))); err != nil {
		// Headers are already out; all we can do is log.
		logger.Errorf("Error writing CSV export: %v", err)
	}
}

func (h *HTTPHandler) ResetResults(c *gin.Context) {
	if err := h.service.ResetResults(tenantOf(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearSession drops the tenant's in-memory session and its stored snapshot.
func (h *HTTPHandler) ClearSession(c *gin.Context) {
	if err := h.service.ClearSession(c.Request.Context(), tenantOf(c)); err != nil {
		logger.Errorf("[%s] clearing session %s: %v", requestid.Get(c), tenantOf(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError maps service errors onto HTTP statuses.
func (h *HTTPHandler) respondError(c *gin.Context, err error) {
	var rej *services.DrawRejectedError
	switch {
	case errors.As(err, &rej):
		status := http.StatusConflict
		if rej.Reason == services.ReasonUnknownTier {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error(), "reason": rej.Reason})
	case errors.Is(err, services.ErrDrawActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "DrawActive"})
	case errors.Is(err, services.ErrTierNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEmptyName),
		errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrInvalidQuota),
		errors.Is(err, services.ErrQuotaBelowAwarded):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("[%s] %s %s: %v", requestid.Get(c), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
