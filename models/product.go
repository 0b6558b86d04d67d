package models

import "time"

// Kategori dengan ID < 100 dihitung ke total portate AYCE; ID >= 100
// (minuman, extra) tidak dihitung.
const CountedCategoryLimit = 100

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Counted -> apakah produk kategori ini masuk hitungan portate.
func (c *Category) Counted() bool {
	return c.ID < CountedCategoryLimit
}

type Product struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(150);not null" json:"name"`
	Price      float64   `gorm:"type:decimal(10,2);not null;default:0.00" json:"price"`
	CategoryID uint      `gorm:"index;not null" json:"category_id"`
	Category   Category  `gorm:"foreignKey:CategoryID" json:"category"`
	LunchOnly  bool      `gorm:"not null;default:false" json:"lunch_only"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
