// internal/services/admin_service.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/utils"
)

type AdminService struct {
	db *gorm.DB
}

type DashboardStats struct {
	TotalProducts          int64                          `json:"total_products"`
	VerifiedProducts       int64                          `json:"verified_products"`
	NewProductsThisMonth   int64                          `json:"new_products_this_month"`
	ProductGrowth          float64                        `json:"product_growth"`
	ProductsByStatus       map[models.ProductStatus]int64 `json:"products_by_status"`
	TotalCertificates      int64                          `json:"total_certificates"`
	RecalledCertificates   int64                          `json:"recalled_certificates"`
	SimulatedCertificates  int64                          `json:"simulated_certificates"`
	AverageScore           float64                        `json:"average_authenticity_score"`
	TotalVerifications     int64                          `json:"total_verifications"`
	SuccessfulVerification int64                          `json:"successful_verifications"`
	FailedVerifications    int64                          `json:"failed_verifications"`
	AuthenticRate          float64                        `json:"authentic_rate"`
	ActiveShipments        int64                          `json:"active_shipments"`
	TotalTransfers         int64                          `json:"total_transfers"`
}

type AuditLogFilter struct {
	utils.PaginationParams
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
}

type UserFilter struct {
	utils.PaginationParams
	Role *models.UserRole `json:"role,omitempty"`
}

// Metrics accepted by GetAnalytics.
const (
	MetricRegistrations = "registrations"
	MetricVerifications = "verifications"
	MetricTransfers     = "transfers"
	MetricShipments     = "shipments"
	MetricRecalls       = "recalls"
)

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{ProductsByStatus: make(map[models.ProductStatus]int64)}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{s.db.Model(&models.Product{}), &stats.TotalProducts},
		{s.db.Model(&models.Product{}).Where("verified = ?", true), &stats.VerifiedProducts},
		{s.db.Model(&models.Product{}).Where("created_at >= ?", monthStart), &stats.NewProductsThisMonth},
		{s.db.Model(&models.Certificate{}), &stats.TotalCertificates},
		{s.db.Model(&models.Certificate{}).Where("recalled = ?", true), &stats.RecalledCertificates},
		{s.db.Model(&models.Certificate{}).Where("simulated = ?", true), &stats.SimulatedCertificates},
		{s.db.Model(&models.VerificationLog{}), &stats.TotalVerifications},
		{s.db.Model(&models.VerificationLog{}).Where("status = ?", models.VerificationStatusSuccess), &stats.SuccessfulVerification},
		{s.db.Model(&models.VerificationLog{}).Where("status = ?", models.VerificationStatusFailed), &stats.FailedVerifications},
		{s.db.Model(&models.Shipment{}).Where("status IN ?", []models.ShipmentStatus{models.ShipmentStatusPending, models.ShipmentStatusInTransit}), &stats.ActiveShipments},
		{s.db.Model(&models.OwnershipTransfer{}), &stats.TotalTransfers},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
		}
	}

	var avg sql.NullFloat64
	if err := s.db.Model(&models.Certificate{}).Where("recalled = ?", false).
		Select("AVG(score)").Row().Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to compute average score: %w", err)
	}
	stats.AverageScore = avg.Float64

	var byStatus []struct {
		Status models.ProductStatus
		Count  int64
	}
	if err := s.db.Model(&models.Product{}).Select("status, COUNT(*) AS count").
		Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to group products: %w", err)
	}
	for _, row := range byStatus {
		stats.ProductsByStatus[row.Status] = row.Count
	}

	var authentic int64
	if err := s.db.Model(&models.VerificationLog{}).Where("is_authentic = ?", true).
		Count(&authentic).Error; err != nil {
		return nil, fmt.Errorf("failed to count authentic verifications: %w", err)
	}
	if stats.TotalVerifications > 0 {
		stats.AuthenticRate = float64(authentic) / float64(stats.TotalVerifications) * 100
	}

	// Growth calculations
	var lastMonthProducts int64
	s.db.Model(&models.Product{}).
		Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart).
		Count(&lastMonthProducts)
	if lastMonthProducts > 0 {
		stats.ProductGrowth = float64(stats.NewProductsThisMonth-lastMonthProducts) / float64(lastMonthProducts) * 100
	}

	return stats, nil
}

// GetAnalytics counts the requested metrics between startDate and endDate.
func (s *AdminService) GetAnalytics(startDate, endDate time.Time, metrics []string) (map[string]interface{}, error) {
	analytics := make(map[string]interface{})

	for _, metric := range metrics {
		var query *gorm.DB
		switch metric {
		case MetricRegistrations:
			query = s.db.Model(&models.Certificate{}).Where("minted_at BETWEEN ? AND ?", startDate, endDate)
		case MetricVerifications:
			query = s.db.Model(&models.VerificationLog{}).Where("created_at BETWEEN ? AND ?", startDate, endDate)
		case MetricTransfers:
			query = s.db.Model(&models.OwnershipTransfer{}).Where("transferred_at BETWEEN ? AND ?", startDate, endDate)
		case MetricShipments:
			query = s.db.Model(&models.Shipment{}).Where("created_at BETWEEN ? AND ?", startDate, endDate)
		case MetricRecalls:
			query = s.db.Model(&models.Certificate{}).Where("recalled_at BETWEEN ? AND ?", startDate, endDate)
		default:
			continue
		}

		var count int64
		if err := query.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", metric, err)
		}
		analytics[metric] = count
	}

	return analytics, nil
}

func (s *AdminService) GetUsers(filter UserFilter) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Search != "" {
		searchTerm := "%" + filter.Search + "%"
		query = query.Where("email LIKE ? OR display_name LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "email", "role"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

func (s *AdminService) GetAuditLogs(filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	query := s.db.Model(&models.AuditLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "action"})
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	return logs, total, nil
}
