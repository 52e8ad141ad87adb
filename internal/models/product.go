// Package models defines the core data structures for partmatch.
package models

import "strings"

// Product is a single catalog entry. Identity is its catalog position plus
// its code; codes are not required to be unique.
type Product struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// FullText returns code and name joined by a space.
func (p Product) FullText() string {
	return joinNonEmpty(p.Code, p.Name)
}

// FeatureText returns the text that feature extraction scans: code, name
// and display name.
func (p Product) FeatureText() string {
	return joinNonEmpty(p.Code, p.Name, p.DisplayName)
}

// IsBlank reports whether the product carries no code and no name.
func (p Product) IsBlank() bool {
	return strings.TrimSpace(p.Code) == "" && strings.TrimSpace(p.Name) == ""
}

// ProductMetadata is the row-aligned record stored next to each index vector.
// Row is the 0-based catalog position.
type ProductMetadata struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	Row         int    `gorm:"column:row_index;uniqueIndex" json:"row"`
	Code        string `gorm:"size:100;index" json:"code"`
	Name        string `gorm:"size:500" json:"name"`
	DisplayName string `gorm:"size:500" json:"display_name,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

// TableName specifies the table name for GORM.
func (ProductMetadata) TableName() string {
	return "products"
}

// NewProductMetadata builds the metadata row for product p at row.
func NewProductMetadata(row int, p Product) ProductMetadata {
	return ProductMetadata{
		Row:         row,
		Code:        p.Code,
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Description: p.Description,
	}
}

// Product returns the catalog product described by m.
func (m ProductMetadata) Product() Product {
	return Product{
		Code:        m.Code,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
	}
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
