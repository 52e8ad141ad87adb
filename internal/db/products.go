package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/asteroid-belt/partmatch/internal/models"
)

const insertBatchSize = 500

// InsertProducts stores metadata rows in a single transaction.
func (db *DB) InsertProducts(rows []models.ProductMetadata) error {
	if len(rows) == 0 {
		return nil
	}
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	return nil
}

// CountProducts returns the number of stored rows.
func (db *DB) CountProducts() (int64, error) {
	var n int64
	if err := db.Model(&models.ProductMetadata{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// AllProducts returns every row ordered by catalog position.
func (db *DB) AllProducts() ([]models.ProductMetadata, error) {
	var rows []models.ProductMetadata
	if err := db.Order("row_index ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return rows, nil
}

// FindByCode returns rows whose code matches exactly, in catalog order.
func (db *DB) FindByCode(code string) ([]models.ProductMetadata, error) {
	var rows []models.ProductMetadata
	if err := db.Where("code = ?", code).Order("row_index ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find product %s: %w", code, err)
	}
	return rows, nil
}
