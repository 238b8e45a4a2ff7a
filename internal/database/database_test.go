package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/models"
)

func TestUniqueIndexesReportDuplicatedKey(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer Close(db)

	token := "7"
	require.NoError(t, db.Create(&models.Product{ProductID: "F1-ONE", Name: "Cap", TokenID: &token}).Error)

	err = db.Create(&models.Product{ProductID: "F1-ONE", Name: "Copy"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	err = db.Create(&models.Product{ProductID: "F1-TWO", Name: "Other", TokenID: &token}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// products without a token may coexist
	require.NoError(t, db.Create(&models.Product{ProductID: "F1-THREE", Name: "Scarf"}).Error)
	require.NoError(t, db.Create(&models.Product{ProductID: "F1-FOUR", Name: "Flag"}).Error)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer Close(db)

	err = WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Product{ProductID: "F1-TX", Name: "Cap"}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Product{ProductID: "F1-TX", Name: "Copy"}).Error
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}
