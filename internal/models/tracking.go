// internal/models/tracking.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationLog is append-only. A failed lookup has no certificate or product link.
type VerificationLog struct {
	BaseModel
	ProductRefID  *uuid.UUID         `json:"product_ref_id,omitempty" gorm:"type:uuid;index"`
	CertificateID *uuid.UUID         `json:"nft_certificate_id,omitempty" gorm:"type:uuid;index"`
	Input         string             `json:"input" gorm:"size:2048"`
	Method        VerificationMethod `json:"verification_method" gorm:"type:varchar(20);not null;index"`
	IsAuthentic   bool               `json:"is_authentic"`
	Score         *int               `json:"ai_score,omitempty"`
	Confidence    float64            `json:"confidence_score"`
	Status        VerificationStatus `json:"verification_status" gorm:"type:varchar(20);not null;index"`
	FailureReason string             `json:"failure_reason,omitempty" gorm:"type:text"`
	Details       JSONB              `json:"details,omitempty" gorm:"type:text"`
	VerifiedBy    *uuid.UUID         `json:"verified_by,omitempty" gorm:"type:uuid"`
	IPAddress     string             `json:"user_ip,omitempty" gorm:"size:45"`
	UserAgent     string             `json:"user_agent,omitempty" gorm:"type:text"`
}

// OwnershipTransfer is append-only.
type OwnershipTransfer struct {
	BaseModel
	ProductRefID    uuid.UUID `json:"product_ref_id" gorm:"type:uuid;not null;index"`
	FromAddress     string    `json:"from_address" gorm:"size:42;not null"`
	ToAddress       string    `json:"to_address" gorm:"size:42;not null"`
	TransactionHash *string   `json:"transaction_hash,omitempty" gorm:"size:66"`
	TransferredAt   time.Time `json:"transfer_date"`
}

type Shipment struct {
	BaseModel
	ProductRefID      uuid.UUID      `json:"product_ref_id" gorm:"type:uuid;not null;index"`
	FromLocation      string         `json:"from_location" gorm:"size:255;not null"`
	ToLocation        string         `json:"to_location" gorm:"size:255;not null"`
	Carrier           string         `json:"carrier" gorm:"size:100"`
	TrackingNumber    string         `json:"tracking_number" gorm:"size:100;index"`
	Status            ShipmentStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time     `json:"actual_delivery,omitempty"`
}
