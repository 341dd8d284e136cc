package model

import "time"

// Comment targets exactly one of a profile, a bottle keep or a shift request.
type Comment struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	StoreID        uint      `gorm:"not null;index" json:"store_id"`
	AuthorID       uint      `gorm:"not null;index" json:"author_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	ProfileID      *uint     `gorm:"index" json:"profile_id,omitempty"`
	BottleKeepID   *uint     `gorm:"index" json:"bottle_keep_id,omitempty"`
	ShiftRequestID *uint     `gorm:"index" json:"shift_request_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Author       *Profile      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Profile      *Profile      `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
	BottleKeep   *BottleKeep   `gorm:"foreignKey:BottleKeepID;constraint:OnDelete:CASCADE" json:"-"`
	ShiftRequest *ShiftRequest `gorm:"foreignKey:ShiftRequestID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Comment) TableName() string {
	return "comments"
}

// TargetCount returns how many target foreign keys are set.
func (c *Comment) TargetCount() int {
	n := 0
	if c.ProfileID != nil {
		n++
	}
	if c.BottleKeepID != nil {
		n++
	}
	if c.ShiftRequestID != nil {
		n++
	}
	return n
}
