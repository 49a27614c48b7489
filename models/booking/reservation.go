package booking

import (
	"time"
)

// SlotReservation records one capacity reservation against a time slot.
// A row is written when spots are reserved and consumed (Released flipped)
// exactly once when they are given back; retried webhooks that try to
// release again find the row already consumed.
type SlotReservation struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Token        string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"token"`
	TimeSlotID   uint       `gorm:"not null;index" json:"time_slot_id"`
	BookingID    *uint      `gorm:"index" json:"booking_id,omitempty"`
	Participants int        `gorm:"not null" json:"participants"`
	Released     bool       `gorm:"not null;default:false" json:"released"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name for the SlotReservation model
func (SlotReservation) TableName() string {
	return "slot_reservations"
}
