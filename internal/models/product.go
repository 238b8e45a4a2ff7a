// internal/models/product.go
package models

import (
	"errors"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type Product struct {
	BaseModel
	ProductID           string        `json:"product_id" gorm:"size:100;not null;uniqueIndex"`
	Name                string        `json:"name" gorm:"size:255;not null"`
	Description         string        `json:"description" gorm:"type:text"`
	Status              ProductStatus `json:"status" gorm:"type:varchar(20);default:'manufactured';index"`
	Verified            bool          `json:"verified" gorm:"default:false"`
	OwnerAddress        string        `json:"current_owner_address" gorm:"size:42;index"`
	ManufacturerAddress string        `json:"manufacturer_address" gorm:"size:42"`
	TokenID             *string       `json:"blockchain_token_id,omitempty" gorm:"size:78;uniqueIndex"`
	ImageURL            string        `json:"image_url,omitempty" gorm:"type:text"`
	QRCode              string        `json:"qr_code,omitempty" gorm:"type:text"`
	MetadataURI         string        `json:"metadata_uri,omitempty" gorm:"type:text"`

	// Relationships
	Certificates []Certificate       `json:"certificates,omitempty" gorm:"foreignKey:ProductRefID"`
	Transfers    []OwnershipTransfer `json:"transfers,omitempty" gorm:"foreignKey:ProductRefID"`
	Shipments    []Shipment          `json:"shipments,omitempty" gorm:"foreignKey:ProductRefID"`
}

// productStatusOrder is the intended supply-chain progression.
var productStatusOrder = map[ProductStatus]int{
	ProductStatusManufactured:  0,
	ProductStatusInTransit:     1,
	ProductStatusAtDistributor: 2,
	ProductStatusDelivered:     3,
	ProductStatusVerified:      4,
}

func (s ProductStatus) IsValid() bool {
	_, ok := productStatusOrder[s]
	return ok
}

// CanTransitionTo reports whether next may follow s. Each step moves one stage forward,
// and verification may be recorded from any stage.
func (s ProductStatus) CanTransitionTo(next ProductStatus) bool {
	from, ok := productStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := productStatusOrder[next]
	if !ok {
		return false
	}
	if s == next {
		return true
	}
	if next == ProductStatusVerified {
		return true
	}
	return to == from+1
}

// ActiveCertificate returns the first non-recalled certificate, if any.
func (p *Product) ActiveCertificate() *Certificate {
	for i := range p.Certificates {
		if !p.Certificates[i].Recalled {
			return &p.Certificates[i]
		}
	}
	return nil
}
