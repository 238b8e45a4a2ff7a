// internal/models/certificate.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Certificate struct {
	BaseModel
	ProductRefID    uuid.UUID  `json:"product_ref_id" gorm:"type:uuid;not null;index"`
	ProductID       string     `json:"product_id" gorm:"size:100;not null;index"`
	Score           int        `json:"authenticity_score" gorm:"not null"`
	Labels          StringList `json:"detected_labels" gorm:"type:text"`
	LogoDetected    bool       `json:"logo_detected" gorm:"default:false"`
	QRCode          string     `json:"qr_code" gorm:"type:text"`
	TokenID         *string    `json:"token_id,omitempty" gorm:"size:78"`
	TransactionHash *string    `json:"transaction_hash,omitempty" gorm:"size:66"`
	ContractAddress string     `json:"contract_address,omitempty" gorm:"size:42"`
	OwnerAddress    string     `json:"owner_address" gorm:"size:42"`
	MetadataURI     string     `json:"metadata_uri,omitempty" gorm:"type:text"`
	Simulated       bool       `json:"simulated" gorm:"default:false;index"`
	Recalled        bool       `json:"is_recalled" gorm:"default:false;index"`
	RecallReason    string     `json:"recall_reason,omitempty" gorm:"type:text"`
	RecalledAt      *time.Time `json:"recalled_at,omitempty"`
	MintedAt        time.Time  `json:"minted_at"`

	// Relationships
	Product *Product              `json:"product,omitempty" gorm:"foreignKey:ProductRefID"`
	History []AuthenticityHistory `json:"history,omitempty" gorm:"foreignKey:CertificateID"`
}

// AuthenticityHistory records every score adjustment on a certificate.
type AuthenticityHistory struct {
	BaseModel
	CertificateID uuid.UUID  `json:"nft_certificate_id" gorm:"type:uuid;not null;index"`
	OldScore      int        `json:"old_score"`
	NewScore      int        `json:"new_score"`
	ChangedBy     *uuid.UUID `json:"changed_by,omitempty" gorm:"type:uuid"`
	Reason        string     `json:"reason,omitempty" gorm:"type:text"`
}
