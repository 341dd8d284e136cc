package model

import "time"

// Store is the tenant root. Every other row carries a store_id.
type Store struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Address     string    `gorm:"type:text" json:"address"`
	PhoneNumber string    `gorm:"type:varchar(30)" json:"phone_number"`
	OpenTime    string    `gorm:"type:varchar(5)" json:"open_time"`  // "20:00"
	CloseTime   string    `gorm:"type:varchar(5)" json:"close_time"` // "25:00" is 1am
	LogoURL     string    `json:"logo_url"`
	IsActive    bool      `gorm:"index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Store) TableName() string {
	return "stores"
}
