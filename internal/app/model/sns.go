package model

import "time"

type SNSPlatform string

const (
	PlatformX         SNSPlatform = "x"
	PlatformInstagram SNSPlatform = "instagram"
	PlatformTikTok    SNSPlatform = "tiktok"
	PlatformLine      SNSPlatform = "line"
)

func (p SNSPlatform) Valid() bool {
	switch p {
	case PlatformX, PlatformInstagram, PlatformTikTok, PlatformLine:
		return true
	}
	return false
}

// SNSAccount only tracks connection state; OAuth is handled elsewhere.
type SNSAccount struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	StoreID     uint        `gorm:"not null;index" json:"store_id"`
	Platform    SNSPlatform `gorm:"type:varchar(20);not null" json:"platform"`
	AccountName string      `gorm:"not null" json:"account_name"`
	IsConnected bool        `json:"is_connected"`
	ConnectedAt *time.Time  `json:"connected_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (SNSAccount) TableName() string {
	return "sns_accounts"
}

type SNSPostStatus string

const (
	PostScheduled SNSPostStatus = "scheduled"
	PostPosted    SNSPostStatus = "posted"
	PostFailed    SNSPostStatus = "failed"
	PostCancelled SNSPostStatus = "cancelled"
)

type SNSScheduledPost struct {
	ID                  uint          `gorm:"primarykey" json:"id"`
	StoreID             uint          `gorm:"not null;index" json:"store_id"`
	SNSAccountID        uint          `gorm:"column:sns_account_id;not null;index" json:"sns_account_id"`
	Content             string        `gorm:"type:text;not null" json:"content"`
	ImageURL            string        `json:"image_url,omitempty"`
	Hashtags            StringArray   `gorm:"type:text" json:"hashtags,omitempty"`
	ScheduledAt         time.Time     `gorm:"not null;index" json:"scheduled_at"`
	Status              SNSPostStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PostedAt            *time.Time    `json:"posted_at,omitempty"`
	ErrorMessage        string        `gorm:"type:text" json:"error_message,omitempty"`
	RecurringScheduleID *uint         `json:"recurring_schedule_id,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	Account *SNSAccount `gorm:"foreignKey:SNSAccountID;constraint:OnDelete:CASCADE" json:"account,omitempty"`
}

func (SNSScheduledPost) TableName() string {
	return "sns_scheduled_posts"
}

// SNSRecurringSchedule materialises a scheduled post each time CronSpec fires.
type SNSRecurringSchedule struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	StoreID         uint       `gorm:"not null;index" json:"store_id"`
	SNSAccountID    uint       `gorm:"column:sns_account_id;not null;index" json:"sns_account_id"`
	Name            string     `gorm:"not null" json:"name"`
	CronSpec        string     `gorm:"type:varchar(100);not null" json:"cron_spec"`
	ContentTemplate string     `gorm:"type:text" json:"content_template"`
	UseAI           bool       `gorm:"column:use_ai" json:"use_ai"`
	IsActive        bool       `gorm:"index" json:"is_active"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Account *SNSAccount `gorm:"foreignKey:SNSAccountID;constraint:OnDelete:CASCADE" json:"account,omitempty"`
}

func (SNSRecurringSchedule) TableName() string {
	return "sns_recurring_schedules"
}
