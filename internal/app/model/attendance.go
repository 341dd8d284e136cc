package model

import "time"

// Attendance is a clock-in/clock-out record for one business date.
// A profile has at most one open record per store.
type Attendance struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	StoreID           uint       `gorm:"not null;index;uniqueIndex:idx_attendances_open,where:clock_out_at IS NULL" json:"store_id"`
	ProfileID         uint       `gorm:"not null;index;uniqueIndex:idx_attendances_open,where:clock_out_at IS NULL" json:"profile_id"`
	BusinessDate      string     `gorm:"type:varchar(10);not null;index" json:"business_date"`
	ShiftSubmissionID *uint      `json:"shift_submission_id,omitempty"`
	ClockInAt         time.Time  `gorm:"not null" json:"clock_in_at"`
	ClockOutAt        *time.Time `json:"clock_out_at,omitempty"`
	Note              string     `gorm:"type:text" json:"note,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (Attendance) TableName() string {
	return "attendances"
}

// WorkedMinutes returns zero while the record is still open.
func (a *Attendance) WorkedMinutes() int {
	if a.ClockOutAt == nil {
		return 0
	}
	return int(a.ClockOutAt.Sub(a.ClockInAt).Minutes())
}
