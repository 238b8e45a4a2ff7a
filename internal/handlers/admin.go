// internal/handlers/admin.go
package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
)

type AdminHandler struct {
	adminService   *services.AdminService
	mintingService *services.MintingService
}

func NewAdminHandler(adminService *services.AdminService, mintingService *services.MintingService) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		mintingService: mintingService,
	}
}

// GET /analytics/overview
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		respondError(c, err, "analytics")
		return
	}

	chain := gin.H{
		"on_chain": h.mintingService.OnChain(),
	}
	if h.mintingService.OnChain() {
		supply, err := h.mintingService.TotalSupply(c.Request.Context())
		if err != nil {
			logrus.WithError(err).Warn("Failed to read total supply")
		} else {
			chain["total_supply"] = supply.String()
		}
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
		"chain": chain,
	})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.UserFilter{
		PaginationParams: params,
	}
	if role := c.Query("role"); role != "" {
		userRole := models.UserRole(role)
		filter.Role = &userRole
	}

	users, total, err := h.adminService.GetUsers(filter)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AuditLogFilter{
		PaginationParams: params,
		ResourceType:     c.Query("resource_type"),
	}
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			filter.UserID = &userID
		}
	}

	logs, total, err := h.adminService.GetAuditLogs(filter)
	if err != nil {
		respondError(c, err, "audit_log")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}

// GET /admin/analytics
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	endDate := time.Now().UTC()
	startDate := endDate.AddDate(0, 0, -30)

	if startDateStr := c.Query("start_date"); startDateStr != "" {
		parsed, err := time.Parse("2006-01-02", startDateStr)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "start_date"), nil)
			return
		}
		startDate = parsed
	}
	if endDateStr := c.Query("end_date"); endDateStr != "" {
		parsed, err := time.Parse("2006-01-02", endDateStr)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "end_date"), nil)
			return
		}
		// include the whole end day
		endDate = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if endDate.Before(startDate) {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "end_date"), nil)
		return
	}

	metrics := []string{
		services.MetricRegistrations,
		services.MetricVerifications,
		services.MetricTransfers,
		services.MetricShipments,
		services.MetricRecalls,
	}
	if metricsStr := c.Query("metrics"); metricsStr != "" {
		metrics = strings.Split(metricsStr, ",")
	}

	analytics, err := h.adminService.GetAnalytics(startDate, endDate, metrics)
	if err != nil {
		respondError(c, err, "analytics")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"analytics":  analytics,
		"start_date": startDate.Format("2006-01-02"),
		"end_date":   endDate.Format("2006-01-02"),
		"metrics":    metrics,
	})
}
