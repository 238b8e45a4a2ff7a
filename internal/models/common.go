// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the primary key in Go so that postgres and sqlite behave the same.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(bytes, j)
}

// StringList stores a list of strings as a JSON array.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}

	var list []string
	if err := json.Unmarshal(bytes, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}

// Enums
type ProductStatus string

const (
	ProductStatusManufactured  ProductStatus = "manufactured"
	ProductStatusInTransit     ProductStatus = "in_transit"
	ProductStatusAtDistributor ProductStatus = "at_distributor"
	ProductStatusDelivered     ProductStatus = "delivered"
	ProductStatusVerified      ProductStatus = "verified"
)

type VerificationMethod string

const (
	VerificationMethodQRScan       VerificationMethod = "qr_scan"
	VerificationMethodManualSearch VerificationMethod = "manual_search"
	VerificationMethodAPI          VerificationMethod = "api"
	VerificationMethodNFC          VerificationMethod = "nfc"
	VerificationMethodBlockchain   VerificationMethod = "blockchain"
	VerificationMethodVisual       VerificationMethod = "visual"
	VerificationMethodSerial       VerificationMethod = "serial"
	VerificationMethodManual       VerificationMethod = "manual"
)

type VerificationStatus string

const (
	VerificationStatusSuccess VerificationStatus = "success"
	VerificationStatusFailed  VerificationStatus = "failed"
)

type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "pending"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

type UserRole string

const (
	UserRoleManufacturer UserRole = "manufacturer"
	UserRoleDistributor  UserRole = "distributor"
	UserRoleRetailer     UserRole = "retailer"
	UserRoleConsumer     UserRole = "consumer"
	UserRoleAdmin        UserRole = "admin"
)
