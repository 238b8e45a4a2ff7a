// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/database"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/utils"
)

type ProductService struct {
	db      *gorm.DB
	minting *MintingService
}

type ProductSearchParams struct {
	utils.PaginationParams
	Status   *models.ProductStatus `json:"status,omitempty"`
	Verified *bool                 `json:"verified,omitempty"`
	Owner    string                `json:"owner,omitempty"`
}

type UpdateStatusRequest struct {
	Status models.ProductStatus `json:"status" validate:"required,oneof=manufactured in_transit at_distributor delivered verified"`
}

type TransferRequest struct {
	ToAddress string `json:"to_address" validate:"required,eth_address"`
	// OnChain sends transferProduct through the wallet when the certificate was minted on chain.
	OnChain bool `json:"on_chain"`
}

// ProductHistory is the tracking timeline of one product.
type ProductHistory struct {
	Product       *models.Product            `json:"product"`
	Transfers     []models.OwnershipTransfer `json:"transfers"`
	Shipments     []models.Shipment          `json:"shipments"`
	Verifications []models.VerificationLog   `json:"verifications"`
}

func NewProductService(db *gorm.DB, minting *MintingService) *ProductService {
	return &ProductService{
		db:      db,
		minting: minting,
	}
}

// GetProduct loads a product by its public product id with certificates attached.
func (s *ProductService) GetProduct(productID string) (*models.Product, error) {
	return findProduct(s.db, "product_id = ?", strings.TrimSpace(productID))
}

// GetProductByTokenID loads the product whose certificate carries tokenID.
func (s *ProductService) GetProductByTokenID(tokenID string) (*models.Product, error) {
	return findProduct(s.db, "token_id = ?", strings.TrimSpace(tokenID))
}

func findProduct(db *gorm.DB, query string, arg interface{}) (*models.Product, error) {
	var product models.Product
	err := db.Preload("Certificates", func(db *gorm.DB) *gorm.DB {
		return db.Order("minted_at DESC")
	}).Where(query, arg).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

func (s *ProductService) SearchProducts(params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.Verified != nil {
		query = query.Where("verified = ?", *params.Verified)
	}

	if params.Owner != "" {
		query = query.Where("LOWER(owner_address) = ?", strings.ToLower(params.Owner))
	}

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(product_id) LIKE ? OR LOWER(description) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name", "product_id", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Preload("Certificates").Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

// UpdateStatus moves a product along the supply chain. Moves outside the status graph fail
// with models.ErrInvalidTransition.
func (s *ProductService) UpdateStatus(productID string, req *UpdateStatusRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	product, err := s.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	if !product.Status.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", models.ErrInvalidTransition, product.Status, req.Status)
	}
	if product.Status == req.Status {
		return product, nil
	}

	updates := map[string]interface{}{"status": req.Status}
	if req.Status == models.ProductStatusVerified {
		updates["verified"] = true
	}
	if err := s.db.Model(product).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update product status: %w", err)
	}

	return s.GetProduct(productID)
}

// TransferOwnership records a change of owner, optionally moving the token on chain first.
func (s *ProductService) TransferOwnership(ctx context.Context, productID string, req *TransferRequest) (*models.OwnershipTransfer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	product, err := s.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(product.OwnerAddress, req.ToAddress) {
		return nil, fmt.Errorf("%w: product is already owned by %s", ErrInvalidInput, req.ToAddress)
	}

	cert := product.ActiveCertificate()
	var txHash *string
	if req.OnChain {
		if cert == nil || cert.TokenID == nil {
			return nil, ErrNoTokenID
		}
		if cert.Simulated {
			return nil, fmt.Errorf("%w: certificate was not minted on chain", ErrInvalidInput)
		}
		receipt, err := s.minting.TransferOnChain(ctx, *cert.TokenID, req.ToAddress)
		if err != nil {
			return nil, err
		}
		txHash = &receipt.TxHash
	}

	transfer := &models.OwnershipTransfer{
		ProductRefID:    product.ID,
		FromAddress:     product.OwnerAddress,
		ToAddress:       req.ToAddress,
		TransactionHash: txHash,
		TransferredAt:   time.Now(),
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(transfer).Error; err != nil {
			return fmt.Errorf("failed to record transfer: %w", err)
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
			Update("owner_address", req.ToAddress).Error; err != nil {
			return fmt.Errorf("failed to update owner: %w", err)
		}
		if cert != nil {
			if err := tx.Model(&models.Certificate{}).Where("id = ?", cert.ID).
				Update("owner_address", req.ToAddress).Error; err != nil {
				return fmt.Errorf("failed to update certificate owner: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if txHash != nil {
			logrus.WithFields(logrus.Fields{
				"product_id": product.ProductID,
				"tx_hash":    *txHash,
			}).WithError(err).Error("Token transferred on chain but the transfer could not be recorded")
		}
		return nil, err
	}

	return transfer, nil
}

// History returns the transfers, shipments and verifications of a product, newest first.
func (s *ProductService) History(productID string) (*ProductHistory, error) {
	product, err := s.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	history := &ProductHistory{Product: product}

	if err := s.db.Where("product_ref_id = ?", product.ID).
		Order("transferred_at DESC").Find(&history.Transfers).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch transfers: %w", err)
	}
	if err := s.db.Where("product_ref_id = ?", product.ID).
		Order("created_at DESC").Find(&history.Shipments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch shipments: %w", err)
	}
	if err := s.db.Where("product_ref_id = ?", product.ID).
		Order("created_at DESC").Find(&history.Verifications).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch verifications: %w", err)
	}

	return history, nil
}
