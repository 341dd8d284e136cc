package model

import "time"

type ShiftRequestStatus string

const (
	ShiftRequestOpen   ShiftRequestStatus = "open"
	ShiftRequestClosed ShiftRequestStatus = "closed"
)

// ShiftRequest is a call for availability on a set of dates.
type ShiftRequest struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	StoreID     uint      `gorm:"not null;index" json:"store_id"`
	Title       string    `gorm:"not null" json:"title"`
	Note        string    `gorm:"type:text" json:"note,omitempty"`
	Deadline    time.Time `gorm:"not null;index" json:"deadline"`
	CreatedByID *uint     `json:"created_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Dates []ShiftRequestDate `gorm:"foreignKey:ShiftRequestID;constraint:OnDelete:CASCADE" json:"dates,omitempty"`
}

func (ShiftRequest) TableName() string {
	return "shift_requests"
}

// Status is derived from the deadline; nothing closes a request explicitly.
func (r *ShiftRequest) Status(now time.Time) ShiftRequestStatus {
	if now.Before(r.Deadline) {
		return ShiftRequestOpen
	}
	return ShiftRequestClosed
}

// HasDate reports whether date is one of the requested dates.
func (r *ShiftRequest) HasDate(date string) bool {
	for _, d := range r.Dates {
		if d.Date == date {
			return true
		}
	}
	return false
}

type ShiftRequestDate struct {
	ID               uint   `gorm:"primarykey" json:"id"`
	ShiftRequestID   uint   `gorm:"not null;uniqueIndex:idx_shift_request_date" json:"shift_request_id"`
	Date             string `gorm:"type:varchar(10);not null;uniqueIndex:idx_shift_request_date" json:"date"`
	DefaultStartTime string `gorm:"type:varchar(5)" json:"default_start_time,omitempty"`
	DefaultEndTime   string `gorm:"type:varchar(5)" json:"default_end_time,omitempty"`
}

func (ShiftRequestDate) TableName() string {
	return "shift_request_dates"
}

type SubmissionStatus string

const (
	// SubmissionNotSubmitted is never stored; it marks a requested date without a row.
	SubmissionNotSubmitted SubmissionStatus = "not_submitted"
	SubmissionPending      SubmissionStatus = "pending"
	SubmissionScheduled    SubmissionStatus = "scheduled"
	SubmissionWorking      SubmissionStatus = "working"
	SubmissionCompleted    SubmissionStatus = "completed"
	SubmissionRejected     SubmissionStatus = "rejected"
)

// IsDecided reports whether a manager has already acted on the row.
func (s SubmissionStatus) IsDecided() bool {
	return s != SubmissionPending && s != SubmissionNotSubmitted
}

// ShiftSubmission is one profile's answer for one requested date.
type ShiftSubmission struct {
	ID             uint             `gorm:"primarykey" json:"id"`
	StoreID        uint             `gorm:"not null;index" json:"store_id"`
	ShiftRequestID uint             `gorm:"not null;uniqueIndex:idx_submission_request_profile_date" json:"shift_request_id"`
	ProfileID      uint             `gorm:"not null;uniqueIndex:idx_submission_request_profile_date;index" json:"profile_id"`
	Date           string           `gorm:"type:varchar(10);not null;uniqueIndex:idx_submission_request_profile_date;index" json:"date"`
	IsAvailable    bool             `json:"is_available"`
	StartTime      string           `gorm:"type:varchar(5)" json:"start_time,omitempty"`
	EndTime        string           `gorm:"type:varchar(5)" json:"end_time,omitempty"`
	Note           string           `gorm:"type:text" json:"note,omitempty"`
	Status         SubmissionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	RejectReason   string           `gorm:"type:text" json:"reject_reason,omitempty"`
	DecidedByID    *uint            `json:"decided_by_id,omitempty"`
	DecidedAt      *time.Time       `json:"decided_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	Profile      *Profile      `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	ShiftRequest *ShiftRequest `gorm:"foreignKey:ShiftRequestID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ShiftSubmission) TableName() string {
	return "shift_submissions"
}
