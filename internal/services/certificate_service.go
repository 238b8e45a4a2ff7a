// internal/services/certificate_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/database"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/utils"
)

type CertificateService struct {
	db *gorm.DB
}

// Registration is everything persisted when a registration workflow completes.
type Registration struct {
	ProductID   string
	Name        string
	Description string
	Owner       string
	ImageURL    string
	QRCode      string
	Score       int
	Labels      []string
	Logo        bool
	Mint        *MintResult
	MintedAt    time.Time
}

type RecallRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

type AdjustScoreRequest struct {
	Score  int    `json:"score" validate:"min=0,max=100"`
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

func NewCertificateService(db *gorm.DB) *CertificateService {
	return &CertificateService{db: db}
}

// SaveRegistration stores the product and its certificate in a single transaction.
func (s *CertificateService) SaveRegistration(reg *Registration) (*models.Product, *models.Certificate, error) {
	if reg.Mint == nil {
		return nil, nil, fmt.Errorf("%w: missing mint result", ErrInvalidInput)
	}

	tokenID := reg.Mint.TokenID
	txHash := reg.Mint.TransactionHash

	product := &models.Product{
		ProductID:           reg.ProductID,
		Name:                reg.Name,
		Description:         reg.Description,
		Status:              models.ProductStatusManufactured,
		Verified:            true,
		OwnerAddress:        reg.Owner,
		ManufacturerAddress: reg.Owner,
		TokenID:             &tokenID,
		ImageURL:            reg.ImageURL,
		QRCode:              reg.QRCode,
		MetadataURI:         reg.Mint.MetadataURI,
	}

	cert := &models.Certificate{
		ProductID:       reg.ProductID,
		Score:           reg.Score,
		Labels:          models.StringList(reg.Labels),
		LogoDetected:    reg.Logo,
		QRCode:          reg.QRCode,
		TokenID:         &tokenID,
		TransactionHash: &txHash,
		ContractAddress: reg.Mint.ContractAddress,
		OwnerAddress:    reg.Owner,
		MetadataURI:     reg.Mint.MetadataURI,
		Simulated:       reg.Mint.Simulated,
		MintedAt:        reg.MintedAt,
	}

	// duplicates are left to the product_id and token_id unique indexes
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: product %s", ErrAlreadyExists, reg.ProductID)
			}
			return fmt.Errorf("failed to create product: %w", err)
		}

		cert.ProductRefID = product.ID
		if err := tx.Create(cert).Error; err != nil {
			return fmt.Errorf("failed to create certificate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	product.Certificates = []models.Certificate{*cert}
	return product, cert, nil
}

// GetByProduct returns the newest certificate of a product, recalled or not.
func (s *CertificateService) GetByProduct(productID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.db.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC")
	}).Where("product_id = ?", strings.TrimSpace(productID)).
		Order("minted_at DESC").First(&cert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &cert, nil
}

func (s *CertificateService) ListCertificates(params utils.PaginationParams, includeRecalled bool) ([]models.Certificate, int64, error) {
	query := s.db.Model(&models.Certificate{})
	if !includeRecalled {
		query = query.Where("recalled = ?", false)
	}
	if params.Search != "" {
		query = query.Where("LOWER(product_id) LIKE ?", "%"+strings.ToLower(params.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count certificates: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "minted_at", "score", "product_id"})
	query = utils.ApplyPagination(query, params)

	var certs []models.Certificate
	if err := query.Find(&certs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch certificates: %w", err)
	}
	return certs, total, nil
}

// Recall marks the active certificate of a product as recalled.
func (s *CertificateService) Recall(productID string, req *RecallRequest) (*models.Certificate, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	cert, err := s.GetByProduct(productID)
	if err != nil {
		return nil, err
	}
	if cert.Recalled {
		return nil, ErrCertificateRecall
	}

	now := time.Now()
	updates := map[string]interface{}{
		"recalled":      true,
		"recall_reason": req.Reason,
		"recalled_at":   now,
	}
	if err := s.db.Model(cert).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to recall certificate: %w", err)
	}

	return s.GetByProduct(productID)
}

// AdjustScore changes a certificate's score and appends the change to its history.
func (s *CertificateService) AdjustScore(productID string, changedBy *uuid.UUID, req *AdjustScoreRequest) (*models.Certificate, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	cert, err := s.GetByProduct(productID)
	if err != nil {
		return nil, err
	}
	if cert.Recalled {
		return nil, ErrCertificateRecall
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		entry := &models.AuthenticityHistory{
			CertificateID: cert.ID,
			OldScore:      cert.Score,
			NewScore:      req.Score,
			ChangedBy:     changedBy,
			Reason:        req.Reason,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to record score change: %w", err)
		}
		if err := tx.Model(&models.Certificate{}).Where("id = ?", cert.ID).
			Update("score", req.Score).Error; err != nil {
			return fmt.Errorf("failed to update score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByProduct(productID)
}
