package timeslot

import (
	"time"

	"tour-booking/models/tour"

	"gorm.io/gorm"
)

// TimeSlotStatus is the availability status of a slot.
type TimeSlotStatus string

const (
	TimeSlotStatusAvailable TimeSlotStatus = "available"
	TimeSlotStatusCancelled TimeSlotStatus = "cancelled"
)

func (ts TimeSlotStatus) String() string {
	return string(ts)
}

func (ts TimeSlotStatus) IsValid() bool {
	switch ts {
	case TimeSlotStatusAvailable, TimeSlotStatusCancelled:
		return true
	default:
		return false
	}
}

// TimeSlot is a bookable occurrence of a tour. BookedSpots is the single
// shared counter of this system: it is only ever written through the
// capacity service's guarded update, never by handlers directly.
// Invariant: 0 <= BookedSpots <= Capacity.
type TimeSlot struct {
	ID     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TourID uint      `gorm:"not null;index" json:"tour_id"`
	Tour   tour.Tour `gorm:"foreignKey:TourID" json:"tour"`

	StartTime   time.Time      `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time      `gorm:"not null" json:"end_time"`
	Capacity    int            `gorm:"not null" json:"capacity"`
	BookedSpots int            `gorm:"not null;default:0" json:"booked_spots"`
	Status      TimeSlotStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Remaining reports the spots still open on the slot.
func (s *TimeSlot) Remaining() int {
	if s.Status == TimeSlotStatusCancelled {
		return 0
	}
	return s.Capacity - s.BookedSpots
}
