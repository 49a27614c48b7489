package tour

import (
	"fmt"
)

type TourCreateRequest struct {
	Title        string  `json:"title" validate:"required,min=1,max=255"`
	City         string  `json:"city" validate:"required,min=1,max=255"`
	Description  string  `json:"description" validate:"omitempty"`
	MeetingPoint string  `json:"meeting_point" validate:"required,min=1,max=500"`
	DurationMin  int     `json:"duration_min" validate:"required,min=30"`
	PricePerHead float64 `json:"price_per_head" validate:"required,gt=0"`
	Currency     string  `json:"currency" validate:"omitempty,len=3"`
	MaxGroupSize int     `json:"max_group_size" validate:"required,min=1"`
	Latitude     float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    float64 `json:"longitude" validate:"omitempty,longitude"`
}

type TourUpdateRequest struct {
	Title        *string  `json:"title" validate:"omitempty,min=1,max=255"`
	City         *string  `json:"city" validate:"omitempty,min=1,max=255"`
	Description  *string  `json:"description" validate:"omitempty"`
	MeetingPoint *string  `json:"meeting_point" validate:"omitempty,min=1,max=500"`
	DurationMin  *int     `json:"duration_min" validate:"omitempty,min=30"`
	PricePerHead *float64 `json:"price_per_head" validate:"omitempty,gt=0"`
	MaxGroupSize *int     `json:"max_group_size" validate:"omitempty,min=1"`
	IsPublished  *bool    `json:"is_published"`
}

func (t TourCreateRequest) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if t.City == "" {
		return fmt.Errorf("city is required")
	}
	if t.MeetingPoint == "" {
		return fmt.Errorf("meetingPoint is required")
	}
	if t.DurationMin < 30 {
		return fmt.Errorf("durationMin must be at least 30")
	}
	if t.PricePerHead <= 0 {
		return fmt.Errorf("pricePerHead must be greater than zero")
	}
	if t.MaxGroupSize < 1 {
		return fmt.Errorf("maxGroupSize must be at least 1")
	}
	return nil
}

func (t TourUpdateRequest) Validate() error {
	if t.Title != nil && *t.Title == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if t.DurationMin != nil && *t.DurationMin < 30 {
		return fmt.Errorf("durationMin must be at least 30")
	}
	if t.PricePerHead != nil && *t.PricePerHead <= 0 {
		return fmt.Errorf("pricePerHead must be greater than zero")
	}
	if t.MaxGroupSize != nil && *t.MaxGroupSize < 1 {
		return fmt.Errorf("maxGroupSize must be at least 1")
	}
	return nil
}
