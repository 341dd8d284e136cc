package model

import "time"

type BottleKeepStatus string

const (
	BottleActive   BottleKeepStatus = "active"
	BottleFinished BottleKeepStatus = "finished"
	BottleExpired  BottleKeepStatus = "expired"
)

func (s BottleKeepStatus) Valid() bool {
	return s == BottleActive || s == BottleFinished || s == BottleExpired
}

// BottleKeep is a bottle bought by guests and stored for later visits.
type BottleKeep struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	StoreID          uint             `gorm:"not null;index" json:"store_id"`
	MenuID           *uint            `gorm:"index" json:"menu_id,omitempty"`
	BottleName       string           `gorm:"not null" json:"bottle_name"`
	OpenedOn         string           `gorm:"type:varchar(10);not null" json:"opened_on"`
	ExpiresOn        string           `gorm:"type:varchar(10);index" json:"expires_on,omitempty"`
	RemainingPercent int              `gorm:"not null;default:100" json:"remaining_percent"`
	Status           BottleKeepStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Note             string           `gorm:"type:text" json:"note,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	Menu    *Menu              `gorm:"foreignKey:MenuID;constraint:OnDelete:SET NULL" json:"menu,omitempty"`
	Holders []BottleKeepHolder `gorm:"foreignKey:BottleKeepID;constraint:OnDelete:CASCADE" json:"holders,omitempty"`
}

func (BottleKeep) TableName() string {
	return "bottle_keeps"
}

type BottleKeepHolder struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	BottleKeepID uint      `gorm:"not null;uniqueIndex:idx_bottle_holder" json:"bottle_keep_id"`
	ProfileID    uint      `gorm:"not null;uniqueIndex:idx_bottle_holder;index" json:"profile_id"`
	CreatedAt    time.Time `json:"created_at"`

	Profile *Profile `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (BottleKeepHolder) TableName() string {
	return "bottle_keep_holders"
}
