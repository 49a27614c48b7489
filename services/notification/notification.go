package notification

import (
	"context"
	"fmt"
	"time"

	"tour-booking/logger"
	bookingModel "tour-booking/models/booking"
	notificationModel "tour-booking/models/notification"
	"tour-booking/utils"

	"gorm.io/gorm"
)

// Routing keys on the topic exchange.
const (
	KeyBookingConfirmed = "booking.confirmed"
	KeyBookingCancelled = "booking.cancelled"
)

// Publisher is the live push side of the delivery path (satisfied by
// mq.Publisher). A nil publisher degrades to database-queue-only delivery.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// BookingEventMessage is the wire format published on booking transitions.
type BookingEventMessage struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		BookingID     uint   `json:"booking_id"`
		Reference     string `json:"booking_reference"`
		TimeSlotID    uint   `json:"time_slot_id"`
		Participants  int    `json:"participants"`
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
		Reason        string `json:"reason,omitempty"`
	} `json:"data"`
}

// Service enqueues notification rows and publishes live events. Everything
// here is fire-and-forget from the booking ledger's perspective: failures are
// logged and never propagate back into booking state.
type Service struct {
	DB        *gorm.DB
	Publisher Publisher
}

// NewService creates a new notification service
func NewService(db *gorm.DB, pub Publisher) *Service {
	return &Service{DB: db, Publisher: pub}
}

// EnqueueBookingEvent writes the notification row for a booking transition
// and pushes the matching event to the exchange.
func (s *Service) EnqueueBookingEvent(b *bookingModel.Booking, routingKey, reason string) {
	subject, body := composeMessage(b, routingKey, reason)

	row := notificationModel.Notification{
		BookingID: &b.ID,
		Channel:   notificationModel.ChannelEmail,
		Recipient: b.ContactEmail,
		Subject:   subject,
		Body:      body,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		logger.Error(fmt.Sprintf("Failed to enqueue notification for booking %d", b.ID), err)
	}

	if b.ContactPhone != nil && *b.ContactPhone != "" {
		waRow := notificationModel.Notification{
			BookingID: &b.ID,
			Channel:   notificationModel.ChannelWhatsApp,
			Recipient: *b.ContactPhone,
			Subject:   subject,
			Body:      body,
		}
		if err := s.DB.Create(&waRow).Error; err != nil {
			logger.Error(fmt.Sprintf("Failed to enqueue whatsapp notification for booking %d", b.ID), err)
		}
	}

	if s.Publisher == nil {
		return
	}

	msg := BookingEventMessage{
		Event:      routingKey,
		Version:    1,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	msg.Data.BookingID = b.ID
	msg.Data.Reference = b.BookingReference
	msg.Data.TimeSlotID = b.TimeSlotID
	msg.Data.Participants = b.Participants
	msg.Data.Status = b.Status.String()
	msg.Data.PaymentStatus = b.PaymentStatus.String()
	msg.Data.Reason = reason

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Publisher.PublishJSON(ctx, routingKey, msg); err != nil {
		logger.Error(fmt.Sprintf("Failed to publish %s for booking %d", routingKey, b.ID), err)
	}
}

func composeMessage(b *bookingModel.Booking, routingKey, reason string) (string, string) {
	window := ""
	if !b.TimeSlot.StartTime.IsZero() {
		window = utils.FormatSlotWindow(b.TimeSlot.StartTime, b.TimeSlot.EndTime)
	}

	switch routingKey {
	case KeyBookingConfirmed:
		subject := fmt.Sprintf("Booking %s confirmed", b.BookingReference)
		body := fmt.Sprintf("Hi %s, your booking %s for %d participant(s) is confirmed.",
			b.ContactName, b.BookingReference, b.Participants)
		if window != "" {
			body += " Tour time: " + window + "."
		}
		if b.TicketQRCode != nil {
			body += " Your ticket code: " + *b.TicketQRCode
		}
		return subject, body
	case KeyBookingCancelled:
		subject := fmt.Sprintf("Booking %s cancelled", b.BookingReference)
		body := fmt.Sprintf("Hi %s, your booking %s has been cancelled.", b.ContactName, b.BookingReference)
		if reason != "" {
			body += " Reason: " + reason + "."
		}
		if b.PaymentStatus == bookingModel.PaymentStatusRefunded {
			body += " Your payment will be refunded."
		}
		return subject, body
	default:
		return fmt.Sprintf("Booking %s update", b.BookingReference),
			fmt.Sprintf("Hi %s, there is an update on booking %s.", b.ContactName, b.BookingReference)
	}
}
