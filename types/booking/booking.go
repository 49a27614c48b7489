package booking

import (
	"fmt"
)

type CheckoutRequest struct {
	TimeSlotID   uint   `json:"time_slot_id" validate:"required"`
	Participants int    `json:"participants" validate:"required,min=1"`
	Adults       *int   `json:"adults" validate:"omitempty,min=0"`
	Children     *int   `json:"children" validate:"omitempty,min=0"`
	Infants      *int   `json:"infants" validate:"omitempty,min=0"`
	ContactName  string `json:"contact_name" validate:"required,min=1,max=255"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	ContactPhone string `json:"contact_phone" validate:"required,phone"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// Validate covers presence only; the ledger enforces participant bounds and
// breakdown consistency.
func (r CheckoutRequest) Validate() error {
	if r.TimeSlotID == 0 {
		return fmt.Errorf("timeSlotID is required")
	}
	if r.Participants < 1 {
		return fmt.Errorf("participants must be at least 1")
	}
	if r.ContactName == "" {
		return fmt.Errorf("contactName is required")
	}
	if r.ContactEmail == "" {
		return fmt.Errorf("contactEmail is required")
	}
	if r.ContactPhone == "" {
		return fmt.Errorf("contactPhone is required")
	}
	return nil
}
