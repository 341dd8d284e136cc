package model

import "time"

type MenuCategory struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	StoreID   uint      `gorm:"not null;index" json:"store_id"`
	Name      string    `gorm:"not null" json:"name"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Menus []Menu `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"menus,omitempty"`
}

func (MenuCategory) TableName() string {
	return "menu_categories"
}

// Menu is a priced item. Price is in yen.
type Menu struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	StoreID     uint      `gorm:"not null;index" json:"store_id"`
	CategoryID  *uint     `gorm:"index" json:"category_id,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
	Price       int       `gorm:"not null;default:0" json:"price"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `json:"image_url"`
	IsHidden    bool      `gorm:"default:false" json:"is_hidden"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Category *MenuCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
}

func (Menu) TableName() string {
	return "menus"
}
