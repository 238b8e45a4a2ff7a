// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/utils"
)

type UserService struct {
	db *gorm.DB
}

type UpdateUserProfileRequest struct {
	DisplayName   *string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	WalletAddress *string `json:"wallet_address,omitempty" validate:"omitempty,eth_address"`
}

type UpdateUserRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=manufacturer distributor retailer consumer admin"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the display name and linked wallet. A wallet address may be linked
// to one account only.
func (s *UserService) UpdateProfile(userID uuid.UUID, req *UpdateUserProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.WalletAddress != nil && !strings.EqualFold(*req.WalletAddress, user.WalletAddress) {
		var count int64
		if err := s.db.Model(&models.User{}).
			Where("LOWER(wallet_address) = ? AND id != ?", strings.ToLower(*req.WalletAddress), userID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: wallet %s is linked to another account", ErrAlreadyExists, *req.WalletAddress)
		}
		updates["wallet_address"] = *req.WalletAddress
	}

	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.GetUserByID(userID)
}

func (s *UserService) UpdateRole(userID uuid.UUID, req *UpdateUserRoleRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(user).Update("role", req.Role).Error; err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	user.Role = req.Role
	return user, nil
}

func (s *UserService) DeleteAccount(userID uuid.UUID, password string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := user.CheckPassword(password); err != nil {
		return ErrUnauthorized
	}

	// Soft delete user
	if err := s.db.Delete(user).Error; err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return nil
}
