package model

import "time"

type ProfileRole string

const (
	RoleGuest ProfileRole = "guest"
	RoleCast  ProfileRole = "cast"
	RoleStaff ProfileRole = "staff"
	RoleAdmin ProfileRole = "admin"
)

func (r ProfileRole) Valid() bool {
	switch r {
	case RoleGuest, RoleCast, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsManager reports whether the role may run store operations (approvals, stock, menus).
func (r ProfileRole) IsManager() bool {
	return r == RoleAdmin || r == RoleStaff
}

// CanSubmitShifts reports whether the role works shifts.
func (r ProfileRole) CanSubmitShifts() bool {
	return r == RoleCast || r == RoleStaff
}

// Profile is a person inside a store. Guests usually have no account.
type Profile struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	StoreID     uint        `gorm:"not null;index;uniqueIndex:idx_profiles_store_account" json:"store_id"`
	AccountID   *uint       `gorm:"uniqueIndex:idx_profiles_store_account" json:"account_id,omitempty"`
	DisplayName string      `gorm:"not null" json:"display_name"`
	RealName    string      `json:"real_name,omitempty"`
	Role        ProfileRole `gorm:"type:varchar(20);not null;index" json:"role"`
	Phone       string      `gorm:"type:varchar(30)" json:"phone,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	Note        string      `gorm:"type:text" json:"note,omitempty"`
	IsActive    bool        `gorm:"index" json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Store   *Store   `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE" json:"store,omitempty"`
	Account *Account `gorm:"foreignKey:AccountID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Profile) TableName() string {
	return "profiles"
}
