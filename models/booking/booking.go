package booking

import (
	"time"

	"tour-booking/models/timeslot"
	"tour-booking/models/user"
)

// Booking is a traveler's reservation against a time slot.
//
// RefundStatus and TransferStatus are legacy free-text columns kept for
// compatibility with older rows; RefundStatusNew / TransferStatusNew are the
// normalized enum columns. Every write path that touches a legacy column must
// re-derive the enum column through the mapping in enums.go.
type Booking struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	TravelerID uint      `gorm:"not null;index" json:"traveler_id"`
	Traveler   user.User `gorm:"foreignKey:TravelerID" json:"traveler"`

	TourID     uint              `gorm:"not null;index" json:"tour_id"`
	TimeSlotID uint              `gorm:"not null;index" json:"time_slot_id"`
	TimeSlot   timeslot.TimeSlot `gorm:"foreignKey:TimeSlotID" json:"time_slot"`

	BookingReference string `gorm:"type:varchar(20);not null;uniqueIndex" json:"booking_reference"`

	Participants int  `gorm:"not null" json:"participants"`
	Adults       *int `json:"adults,omitempty"`
	Children     *int `json:"children,omitempty"`
	Infants      *int `json:"infants,omitempty"`

	ContactName  string  `gorm:"type:varchar(255);not null" json:"contact_name"`
	ContactEmail string  `gorm:"type:varchar(255);not null" json:"contact_email"`
	ContactPhone *string `gorm:"type:varchar(20)" json:"contact_phone,omitempty"`

	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`

	// Legacy free-text columns and their enum counterparts.
	RefundStatus      *string        `gorm:"type:varchar(50)" json:"refund_status,omitempty"`
	RefundStatusNew   RefundStatus   `gorm:"type:varchar(20);not null;default:'not_required'" json:"refund_status_new"`
	TransferStatus    *string        `gorm:"type:varchar(50)" json:"transfer_status,omitempty"`
	TransferStatusNew TransferStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"transfer_status_new"`

	// ReservationToken ties the booking to its capacity reservation so the
	// reserve/release pair is applied exactly once in each direction.
	ReservationToken string `gorm:"type:varchar(36);not null;uniqueIndex" json:"reservation_token"`

	// TicketQRCode is assigned once at confirmation and immutable after.
	TicketQRCode *string `gorm:"type:varchar(255)" json:"ticket_qr_code,omitempty"`

	TotalAmount float64 `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Currency    string  `gorm:"type:varchar(3);not null" json:"currency"`

	PaymentChargeID *string `gorm:"type:varchar(255);index" json:"payment_charge_id,omitempty"`
	CancelReason    *string `gorm:"type:text" json:"cancel_reason,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// BreakdownSum returns the sum of the participant breakdown fields and
// whether any breakdown was supplied at all.
func (b *Booking) BreakdownSum() (int, bool) {
	if b.Adults == nil && b.Children == nil && b.Infants == nil {
		return 0, false
	}
	sum := 0
	if b.Adults != nil {
		sum += *b.Adults
	}
	if b.Children != nil {
		sum += *b.Children
	}
	if b.Infants != nil {
		sum += *b.Infants
	}
	return sum, true
}
