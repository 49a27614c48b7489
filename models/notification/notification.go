package notification

import (
	"time"
)

type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
)

// Notification is a row in the database-backed delivery queue. Rows are
// written on booking transitions and drained by the notification worker;
// delivery failure never rolls back booking state.
type Notification struct {
	ID        uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID *uint `gorm:"index" json:"booking_id,omitempty"`

	Channel   NotificationChannel `gorm:"type:varchar(20);not null" json:"channel"`
	Recipient string              `gorm:"type:varchar(255);not null" json:"recipient"`
	Subject   string              `gorm:"type:varchar(255);not null" json:"subject"`
	Body      string              `gorm:"type:text;not null" json:"body"`

	Status     NotificationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RetryCount int                `gorm:"default:0" json:"retry_count"`
	MaxRetries int                `gorm:"default:3" json:"max_retries"`
	LastError  *string            `gorm:"type:text" json:"last_error,omitempty"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanRetry reports whether a failed notification may be attempted again.
func (n *Notification) CanRetry() bool {
	return n.Status != StatusSent && n.RetryCount < n.MaxRetries
}
