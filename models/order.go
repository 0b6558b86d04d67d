package models

import "time"

// Order adalah satu baris pesanan yang sudah dikirim (satu produk per baris),
// dibuat server saat ORDER_SENT. Client hanya men-toggle flag delivered.
type Order struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	SessionID        uint         `gorm:"index;not null" json:"session_id"`
	Session          TableSession `gorm:"foreignKey:SessionID" json:"-"`
	TableID          uint         `gorm:"index;not null" json:"table_id"`
	Table            Table        `gorm:"foreignKey:TableID" json:"table"`
	ProductID        uint         `gorm:"index;not null" json:"product_id"`
	Product          Product      `gorm:"foreignKey:ProductID" json:"product"`
	Quantity         int          `gorm:"not null" json:"quantity"`
	SubmittedAt      time.Time    `gorm:"not null" json:"submitted_at"`
	Delivered        bool         `gorm:"not null;default:false" json:"delivered"`
	ParticipantCount *int         `json:"participant_count,omitempty"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

// Assignment -> produk mana yang ditangani viewer dapur tertentu; dipakai
// filter only_assigned di daftar comanda.
type Assignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
