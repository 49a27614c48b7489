package tour

import (
	"time"

	"tour-booking/models/user"
)

// Tour is a guide-owned listing. Occurrences of a tour are scheduled as
// time slots; the tour itself carries the presentational and pricing data.
type Tour struct {
	ID      uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GuideID uint      `gorm:"not null;index" json:"guide_id"`
	Guide   user.User `gorm:"foreignKey:GuideID" json:"guide"`

	Title        string  `gorm:"type:varchar(255);not null" json:"title"`
	City         string  `gorm:"type:varchar(120);not null;index" json:"city"`
	Description  string  `gorm:"type:text" json:"description"`
	MeetingPoint string  `gorm:"type:text" json:"meeting_point"`
	DurationMin  int     `gorm:"not null" json:"duration_min"`
	PricePerHead float64 `gorm:"type:decimal(10,2);not null" json:"price_per_head"`
	Currency     string  `gorm:"type:varchar(3);not null;default:'THB'" json:"currency"`
	MaxGroupSize int     `gorm:"not null;default:10" json:"max_group_size"`
	Latitude     float64 `gorm:"type:decimal(9,6)" json:"latitude"`
	Longitude    float64 `gorm:"type:decimal(9,6)" json:"longitude"`
	IsPublished  bool    `gorm:"default:false" json:"is_published"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}
