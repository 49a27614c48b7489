package booking_event

import (
	bookingModel "tour-booking/models/booking"

	"gorm.io/gorm"
)

// RecordStatusEvent appends an audit row for a booking status transition.
// Events are many per booking; nothing here mutates the booking itself.
func RecordStatusEvent(tx *gorm.DB, b *bookingModel.Booking, eventType string, createdBy string) error {
	ev := bookingModel.BookingStatusEvent{
		BookingID:     b.ID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		EventType:     eventType,
		CreatedBy:     createdBy,
	}

	return tx.Create(&ev).Error
}
