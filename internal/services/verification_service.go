// internal/services/verification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/analyzer"
	"github.com/apexchain/apex-backend/internal/database"
	"github.com/apexchain/apex-backend/internal/metrics"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/qrpayload"
)

// Confidence assigned to each verification method.
const (
	ConfidenceBlockchain         = 1.0
	ConfidenceBlockchainMismatch = 0.8
	ConfidenceVisual             = 0.85
	ConfidenceSerial             = 0.9
	ConfidenceManual             = 0.7
)

type VerificationService struct {
	db       *gorm.DB
	products *ProductService
	minting  *MintingService
	metrics  *metrics.Metrics
}

// RequestMeta describes who asked for a verification.
type RequestMeta struct {
	UserID    *uuid.UUID
	IPAddress string
	UserAgent string
}

type LookupRequest struct {
	Input  string                    `json:"input" validate:"required"`
	Method models.VerificationMethod `json:"method"`
	RequestMeta
}

// VerificationReport is the answer to a lookup.
type VerificationReport struct {
	Found          bool                `json:"found"`
	IsAuthentic    bool                `json:"is_authentic"`
	Status         analyzer.Status     `json:"status,omitempty"`
	Score          *int                `json:"authenticity_score,omitempty"`
	Reason         string              `json:"reason,omitempty"`
	Decoded        qrpayload.Result    `json:"decoded"`
	Product        *models.Product     `json:"product,omitempty"`
	Certificate    *models.Certificate `json:"certificate,omitempty"`
	VerificationID uuid.UUID           `json:"verification_id"`
}

type VerifyProductRequest struct {
	Method models.VerificationMethod `json:"method" validate:"required,oneof=blockchain visual serial manual"`
	Notes  string                    `json:"notes" validate:"max=2000"`
}

// VerifyProductResult is the outcome of a method-based verification.
type VerifyProductResult struct {
	Verified   bool                    `json:"verified"`
	Confidence float64                 `json:"confidence_score"`
	Details    string                  `json:"details"`
	Product    *models.Product         `json:"product"`
	Log        *models.VerificationLog `json:"verification"`
}

// Lookup failure reasons stored on the verification log.
const (
	ReasonNotFound      = "product not found"
	ReasonNoCertificate = "no certificate issued"
	ReasonRecalled      = "certificate recalled"
)

func NewVerificationService(db *gorm.DB, products *ProductService, minting *MintingService, m *metrics.Metrics) *VerificationService {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &VerificationService{
		db:       db,
		products: products,
		minting:  minting,
		metrics:  m,
	}
}

// Lookup resolves scanned or typed input to a product and reports whether its certificate
// is authentic. Every lookup is logged, including the ones that find nothing.
func (s *VerificationService) Lookup(ctx context.Context, req LookupRequest) (*VerificationReport, error) {
	decoded := qrpayload.Decode(req.Input)
	if decoded.Text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}
	if req.Method == "" {
		req.Method = models.VerificationMethodManualSearch
		if decoded.Kind != qrpayload.KindText {
			req.Method = models.VerificationMethodQRScan
		}
	}

	report := &VerificationReport{Decoded: decoded}

	product, err := s.resolve(decoded)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	entry := &models.VerificationLog{
		Input:      truncate(decoded.Text, 2048),
		Method:     req.Method,
		VerifiedBy: req.UserID,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		Status:     models.VerificationStatusFailed,
	}

	switch {
	case product == nil:
		report.Reason = ReasonNotFound
	default:
		report.Found = true
		report.Product = product
		entry.ProductRefID = &product.ID

		cert := product.ActiveCertificate()
		switch {
		case cert != nil:
			score := cert.Score
			report.Certificate = cert
			report.Score = &score
			report.Status = analyzer.Classify(score)
			report.IsAuthentic = report.Status == analyzer.StatusAuthentic

			entry.CertificateID = &cert.ID
			entry.Score = &score
			entry.Confidence = float64(score) / 100
			entry.Status = models.VerificationStatusSuccess
		case len(product.Certificates) > 0:
			report.Reason = ReasonRecalled
			report.Certificate = &product.Certificates[0]
		default:
			report.Reason = ReasonNoCertificate
		}
	}

	entry.IsAuthentic = report.IsAuthentic
	entry.FailureReason = report.Reason
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to log verification: %w", err)
	}
	report.VerificationID = entry.ID

	s.metrics.RecordVerification(string(req.Method), report.IsAuthentic)

	return report, nil
}

// resolve finds the product named by decoded input. A JSON payload without a product id falls
// back to its token id, "#123" is always a token id, and plain ids fall back to token ids.
func (s *VerificationService) resolve(decoded qrpayload.Result) (*models.Product, error) {
	if decoded.Kind == qrpayload.KindText && strings.HasPrefix(decoded.Text, "#") {
		return s.products.GetProductByTokenID(strings.TrimPrefix(decoded.Text, "#"))
	}

	if decoded.Kind == qrpayload.KindJSON && decoded.Payload != nil && decoded.Payload.ProductID == "" {
		if decoded.Payload.TokenID == "" {
			return nil, ErrNotFound
		}
		return s.products.GetProductByTokenID(decoded.Payload.TokenID)
	}

	id := decoded.ProductID()
	if id == "" {
		return nil, ErrNotFound
	}

	product, err := s.products.GetProduct(id)
	if errors.Is(err, ErrNotFound) {
		return s.products.GetProductByTokenID(id)
	}
	return product, err
}

// VerifyProduct runs one of the manual verification methods against a product and, when it
// succeeds, marks the product verified.
func (s *VerificationService) VerifyProduct(ctx context.Context, productID string, req *VerifyProductRequest, meta RequestMeta) (*VerifyProductResult, error) {
	if req.Method == "" {
		return nil, fmt.Errorf("%w: method is required", ErrInvalidInput)
	}

	product, err := s.products.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	result := &VerifyProductResult{Product: product}

	switch req.Method {
	case models.VerificationMethodBlockchain:
		s.verifyOnChain(ctx, product, result)
	case models.VerificationMethodVisual:
		result.Verified = true
		result.Confidence = ConfidenceVisual
		result.Details = orDefault(req.Notes, "Visual inspection completed by authorized verifier")
	case models.VerificationMethodSerial:
		result.Verified = true
		result.Confidence = ConfidenceSerial
		result.Details = orDefault(req.Notes, fmt.Sprintf("Serial number %s verified against manufacturer records", product.ProductID))
	case models.VerificationMethodManual:
		result.Verified = true
		result.Confidence = ConfidenceManual
		result.Details = orDefault(req.Notes, "Manual verification completed")
	default:
		return nil, fmt.Errorf("%w: unsupported method %q", ErrInvalidInput, req.Method)
	}

	entry := &models.VerificationLog{
		ProductRefID: &product.ID,
		Input:        product.ProductID,
		Method:       req.Method,
		IsAuthentic:  result.Verified,
		Confidence:   result.Confidence,
		Status:       models.VerificationStatusFailed,
		Details:      models.JSONB{"notes": result.Details, "method": string(req.Method)},
		VerifiedBy:   meta.UserID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if cert := product.ActiveCertificate(); cert != nil {
		entry.CertificateID = &cert.ID
	}
	if result.Verified {
		entry.Status = models.VerificationStatusSuccess
	} else {
		entry.FailureReason = result.Details
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to log verification: %w", err)
		}
		if !result.Verified {
			return nil
		}
		return tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
			"verified": true,
			"status":   models.ProductStatusVerified,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordVerification(string(req.Method), result.Verified)
	result.Log = entry

	if result.Verified {
		if refreshed, err := s.products.GetProduct(product.ProductID); err == nil {
			result.Product = refreshed
		}
	}

	return result, nil
}

func (s *VerificationService) verifyOnChain(ctx context.Context, product *models.Product, result *VerifyProductResult) {
	if product.TokenID == nil {
		result.Details = "Product has no blockchain token"
		return
	}

	exists, tokenID, err := s.minting.VerifyOnChain(ctx, product.ProductID)
	if err != nil {
		logrus.WithError(err).WithField("product_id", product.ProductID).Warn("Blockchain verification failed")
		result.Details = "Blockchain verification failed: " + err.Error()
		return
	}
	if !exists {
		result.Details = "No certificate found on chain"
		return
	}

	result.Verified = true
	result.Confidence = ConfidenceBlockchain
	result.Details = fmt.Sprintf("Blockchain verification successful. Token ID: %s", tokenID)
	if tokenID != *product.TokenID {
		result.Confidence = ConfidenceBlockchainMismatch
		result.Details += " - Warning: token id does not match records."
	} else {
		result.Details += " - Token id matches records."
	}
}

// RecentVerifications lists the latest verification logs.
func (s *VerificationService) RecentVerifications(limit int) ([]models.VerificationLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []models.VerificationLog
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch verifications: %w", err)
	}
	return logs, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
