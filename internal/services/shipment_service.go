// internal/services/shipment_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/database"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/utils"
)

type ShipmentService struct {
	db       *gorm.DB
	products *ProductService
}

type CreateShipmentRequest struct {
	ProductID         string     `json:"product_id" validate:"required"`
	FromLocation      string     `json:"from_location" validate:"required,max=255"`
	ToLocation        string     `json:"to_location" validate:"required,max=255"`
	Carrier           string     `json:"carrier" validate:"max=100"`
	TrackingNumber    string     `json:"tracking_number" validate:"max=100"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

type UpdateShipmentRequest struct {
	Status models.ShipmentStatus `json:"status" validate:"required,oneof=pending in_transit delivered cancelled"`
}

// shipmentTransitions lists the statuses each shipment status may move to.
var shipmentTransitions = map[models.ShipmentStatus][]models.ShipmentStatus{
	models.ShipmentStatusPending:   {models.ShipmentStatusInTransit, models.ShipmentStatusCancelled},
	models.ShipmentStatusInTransit: {models.ShipmentStatusDelivered, models.ShipmentStatusCancelled},
}

func NewShipmentService(db *gorm.DB, products *ProductService) *ShipmentService {
	return &ShipmentService{
		db:       db,
		products: products,
	}
}

func (s *ShipmentService) CreateShipment(req *CreateShipmentRequest) (*models.Shipment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	product, err := s.products.GetProduct(req.ProductID)
	if err != nil {
		return nil, err
	}

	shipment := &models.Shipment{
		ProductRefID:      product.ID,
		FromLocation:      req.FromLocation,
		ToLocation:        req.ToLocation,
		Carrier:           req.Carrier,
		TrackingNumber:    req.TrackingNumber,
		Status:            models.ShipmentStatusPending,
		EstimatedDelivery: req.EstimatedDelivery,
	}

	if err := s.db.Create(shipment).Error; err != nil {
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	return shipment, nil
}

func (s *ShipmentService) ListByProduct(productID string) ([]models.Shipment, error) {
	product, err := s.products.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	var shipments []models.Shipment
	if err := s.db.Where("product_ref_id = ?", product.ID).
		Order("created_at DESC").Find(&shipments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch shipments: %w", err)
	}
	return shipments, nil
}

// UpdateStatus moves a shipment forward. Shipping a product moves it in transit and
// delivering it marks it delivered, when the product status graph allows it.
func (s *ShipmentService) UpdateStatus(id uuid.UUID, req *UpdateShipmentRequest) (*models.Shipment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var shipment models.Shipment
	if err := s.db.First(&shipment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if shipment.Status == req.Status {
		return &shipment, nil
	}
	if !canMoveShipment(shipment.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", models.ErrInvalidTransition, shipment.Status, req.Status)
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": req.Status}
		if req.Status == models.ShipmentStatusDelivered {
			updates["actual_delivery"] = time.Now()
		}
		if err := tx.Model(&shipment).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update shipment: %w", err)
		}

		var next models.ProductStatus
		switch req.Status {
		case models.ShipmentStatusInTransit:
			next = models.ProductStatusInTransit
		case models.ShipmentStatusDelivered:
			next = models.ProductStatusDelivered
		default:
			return nil
		}

		var product models.Product
		if err := tx.First(&product, "id = ?", shipment.ProductRefID).Error; err != nil {
			return fmt.Errorf("failed to load product: %w", err)
		}
		if product.Status == next || !product.Status.CanTransitionTo(next) {
			return nil
		}
		return tx.Model(&product).Update("status", next).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.First(&shipment, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &shipment, nil
}

func canMoveShipment(from, to models.ShipmentStatus) bool {
	for _, allowed := range shipmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
