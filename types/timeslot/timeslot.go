package timeslot

import (
	"fmt"
	"time"
)

type SlotCreateRequest struct {
	TourID    uint   `json:"tour_id" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Capacity  int    `json:"capacity" validate:"required,min=1"`
}

type SlotCancelRequest struct {
	SlotID uint   `json:"slot_id" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

func (s SlotCreateRequest) Validate() error {
	if s.TourID == 0 {
		return fmt.Errorf("tourID is required")
	}
	if s.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1")
	}
	start, err := time.Parse(time.RFC3339, s.StartTime)
	if err != nil {
		return fmt.Errorf("startTime must be RFC3339 formatted")
	}
	end, err := time.Parse(time.RFC3339, s.EndTime)
	if err != nil {
		return fmt.Errorf("endTime must be RFC3339 formatted")
	}
	if !end.After(start) {
		return fmt.Errorf("endTime must be after startTime")
	}
	return nil
}

func (s SlotCancelRequest) Validate() error {
	if s.SlotID == 0 {
		return fmt.Errorf("slotID is required")
	}
	return nil
}
