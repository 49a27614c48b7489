package booking

import (
	"errors"
	"fmt"
	"time"

	"tour-booking/logger"
	bookingModel "tour-booking/models/booking"
	timeslotModel "tour-booking/models/timeslot"
	tourModel "tour-booking/models/tour"
	"tour-booking/services/booking_event"
	"tour-booking/services/capacity"
	"tour-booking/services/notification"
	"tour-booking/utils"

	"gorm.io/gorm"
)

var (
	ErrValidation      = errors.New("booking validation failed")
	ErrBookingNotFound = errors.New("booking not found")
	// ErrBookingCancelled trips when a payment confirmation arrives for a
	// booking that is already cancelled (e.g. swept as abandoned).
	ErrBookingCancelled = errors.New("booking is cancelled")

	// errStaleStatus aborts a transition whose guarded update matched zero
	// rows: a concurrent writer moved the booking first. The transaction is
	// rolled back and retried against the settled status.
	errStaleStatus = errors.New("booking status changed concurrently")
)

// Service is the booking ledger: it owns booking records and their status
// lifecycle. It never touches slot counters itself; capacity changes go
// through the reconciler, which is the sole writer of booked spots.
type Service struct {
	DB            *gorm.DB
	Capacity      *capacity.Reconciler
	Notifications *notification.Service
}

// NewService creates a new booking service
func NewService(db *gorm.DB, reconciler *capacity.Reconciler, notifications *notification.Service) *Service {
	return &Service{
		DB:            db,
		Capacity:      reconciler,
		Notifications: notifications,
	}
}

// CreatePendingInput carries everything checkout knows about a new booking.
type CreatePendingInput struct {
	TravelerID   uint
	TimeSlotID   uint
	Participants int
	Adults       *int
	Children     *int
	Infants      *int
	ContactName  string
	ContactEmail string
	ContactPhone *string
}

func (in *CreatePendingInput) validate() error {
	if in.Participants <= 0 {
		return fmt.Errorf("%w: participants must be positive", ErrValidation)
	}
	if in.ContactName == "" || in.ContactEmail == "" {
		return fmt.Errorf("%w: contact name and email are required", ErrValidation)
	}
	if in.ContactPhone != nil && *in.ContactPhone != "" && !utils.ValidatePhoneNumber(*in.ContactPhone) {
		return fmt.Errorf("%w: contact phone is not a valid number", ErrValidation)
	}

	if in.Adults == nil && in.Children == nil && in.Infants == nil {
		return nil
	}
	sum := 0
	for _, part := range []*int{in.Adults, in.Children, in.Infants} {
		if part != nil {
			if *part < 0 {
				return fmt.Errorf("%w: participant breakdown values must not be negative", ErrValidation)
			}
			sum += *part
		}
	}
	if sum != in.Participants {
		return fmt.Errorf("%w: participant breakdown sums to %d, expected %d", ErrValidation, sum, in.Participants)
	}
	return nil
}

// CreatePending reserves capacity and persists a pending/pending booking in
// one transaction. A capacity rejection rolls everything back and propagates
// to the caller, who must re-query availability before retrying.
func (s *Service) CreatePending(in CreatePendingInput) (*bookingModel.Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	reference, err := utils.GenerateBookingReference()
	if err != nil {
		return nil, err
	}

	var created bookingModel.Booking
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var slot timeslotModel.TimeSlot
		if err := tx.First(&slot, in.TimeSlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return capacity.ErrSlotNotFound
			}
			return fmt.Errorf("load time slot %d: %w", in.TimeSlotID, err)
		}

		var t tourModel.Tour
		if err := tx.First(&t, slot.TourID).Error; err != nil {
			return fmt.Errorf("load tour %d: %w", slot.TourID, err)
		}

		token, err := s.Capacity.Reserve(tx, slot.ID, in.Participants)
		if err != nil {
			return err
		}

		created = bookingModel.Booking{
			TravelerID:       in.TravelerID,
			TourID:           slot.TourID,
			TimeSlotID:       slot.ID,
			BookingReference: reference,
			Participants:     in.Participants,
			Adults:           in.Adults,
			Children:         in.Children,
			Infants:          in.Infants,
			ContactName:      in.ContactName,
			ContactEmail:     in.ContactEmail,
			ContactPhone:     in.ContactPhone,
			Status:           bookingModel.BookingStatusPending,
			PaymentStatus:    bookingModel.PaymentStatusPending,
			ReservationToken: token,
			TotalAmount:      t.PricePerHead * float64(in.Participants),
			Currency:         t.Currency,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		// Tie the reservation row back to its booking for traceability.
		if err := tx.Model(&bookingModel.SlotReservation{}).
			Where("token = ?", token).
			Update("booking_id", created.ID).Error; err != nil {
			return fmt.Errorf("link reservation to booking %d: %w", created.ID, err)
		}

		return booking_event.RecordStatusEvent(tx, &created, "created", fmt.Sprintf("traveler:%d", in.TravelerID))
	})
	if err != nil {
		return nil, err
	}

	logger.Success(fmt.Sprintf("Booking %s created pending for slot %d (%d participants)",
		created.BookingReference, created.TimeSlotID, created.Participants))
	return &created, nil
}

// MarkConfirmed transitions pending -> confirmed/paid and issues the ticket
// code. It is idempotent: a second confirmation (retried webhook) returns the
// booking unchanged with the same ticket code and no capacity effect.
func (s *Service) MarkConfirmed(bookingID uint, chargeID *string, actor string) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	var newlyConfirmed bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("TimeSlot").First(&b, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("load booking %d: %w", bookingID, err)
		}

		switch b.Status {
		case bookingModel.BookingStatusConfirmed:
			// Already applied; absorb the retry without touching the ticket.
			logger.Info(fmt.Sprintf("Booking %s already confirmed, ignoring repeat confirmation", b.BookingReference))
			return nil
		case bookingModel.BookingStatusCancelled:
			return ErrBookingCancelled
		}

		now := time.Now()
		b.Status = bookingModel.BookingStatusConfirmed
		b.PaymentStatus = bookingModel.PaymentStatusPaid
		b.ConfirmedAt = &now
		if chargeID != nil && *chargeID != "" {
			b.PaymentChargeID = chargeID
		}
		if b.TicketQRCode == nil {
			code := utils.GenerateTicketCode(b.ID)
			b.TicketQRCode = &code
		}

		// Guarded transition: only a booking still pending may confirm. A
		// concurrent cancel (sweeper, traveler) that commits first leaves
		// zero rows here, the same discipline the slot counter uses.
		res := tx.Model(&bookingModel.Booking{}).
			Where("id = ? AND status = ?", b.ID, bookingModel.BookingStatusPending).
			Updates(map[string]interface{}{
				"status":            b.Status,
				"payment_status":    b.PaymentStatus,
				"confirmed_at":      b.ConfirmedAt,
				"payment_charge_id": b.PaymentChargeID,
				"ticket_qr_code":    b.TicketQRCode,
			})
		if res.Error != nil {
			return fmt.Errorf("confirm booking %d: %w", bookingID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the row to a concurrent writer; act on the settled status.
			var settled bookingModel.Booking
			if err := tx.First(&settled, bookingID).Error; err != nil {
				return fmt.Errorf("reload booking %d: %w", bookingID, err)
			}
			switch settled.Status {
			case bookingModel.BookingStatusConfirmed:
				settled.TimeSlot = b.TimeSlot
				b = settled
				logger.Info(fmt.Sprintf("Booking %s already confirmed, ignoring repeat confirmation", b.BookingReference))
				return nil
			case bookingModel.BookingStatusCancelled:
				return ErrBookingCancelled
			default:
				return fmt.Errorf("confirm booking %d: unexpected status %s", bookingID, settled.Status)
			}
		}
		newlyConfirmed = true

		return booking_event.RecordStatusEvent(tx, &b, "confirmed", actor)
	})
	if err != nil {
		return nil, err
	}

	if newlyConfirmed {
		logger.Success(fmt.Sprintf("Booking %s confirmed, ticket issued", b.BookingReference))
		if s.Notifications != nil {
			s.Notifications.EnqueueBookingEvent(&b, notification.KeyBookingConfirmed, "")
		}
	}

	return &b, nil
}

// Cancel transitions a booking to cancelled and releases its capacity
// exactly once. Cancelling an already-cancelled booking is a no-op, not an
// error. A paid booking cancels as refunded with the refund recorded as
// pending until the processor's refund webhook lands; an unpaid one cancels
// as failed.
func (s *Service) Cancel(bookingID uint, reason string, actor string) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	var alreadyCancelled bool

	cancelOnce := func() error {
		b = bookingModel.Booking{}
		alreadyCancelled = false

		return s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("TimeSlot").First(&b, bookingID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrBookingNotFound
				}
				return fmt.Errorf("load booking %d: %w", bookingID, err)
			}

			if b.Status == bookingModel.BookingStatusCancelled {
				alreadyCancelled = true
				return nil
			}
			priorStatus := b.Status

			if err := s.Capacity.Release(tx, b.ReservationToken); err != nil {
				if errors.Is(err, capacity.ErrAlreadyReleased) {
					// Retried webhook raced us; the capacity effect is already
					// applied, so keep going and finish the status change.
					logger.Info(fmt.Sprintf("Reservation for booking %s already released", b.BookingReference))
				} else {
					return err
				}
			}

			now := time.Now()
			wasPaid := b.PaymentStatus == bookingModel.PaymentStatusPaid
			b.Status = bookingModel.BookingStatusCancelled
			b.CancelledAt = &now
			if reason != "" {
				b.CancelReason = &reason
			}

			eventType := "cancelled"
			if wasPaid {
				b.PaymentStatus = bookingModel.PaymentStatusRefunded
				// The money is still with the processor at this point; the
				// refund.create webhook flips this to succeeded once it is
				// actually issued.
				refundLegacy := "pending"
				b.RefundStatus = &refundLegacy
				// A completed payout has to be clawed back when the traveler is
				// refunded.
				if bookingModel.MapLegacyTransferStatus(b.TransferStatus) == bookingModel.TransferStatusCompleted {
					reversedLegacy := "reversed"
					b.TransferStatus = &reversedLegacy
				}
				eventType = "refunded"
			} else {
				b.PaymentStatus = bookingModel.PaymentStatusFailed
			}
			applyLegacySync(&b)

			// Guarded transition mirroring the slot counter: the status must
			// still be what this transaction observed. Zero rows means a
			// concurrent confirm or cancel won; roll back (including the
			// release above) and retry against the settled state.
			res := tx.Model(&bookingModel.Booking{}).
				Where("id = ? AND status = ?", b.ID, priorStatus).
				Updates(map[string]interface{}{
					"status":              b.Status,
					"payment_status":      b.PaymentStatus,
					"cancelled_at":        b.CancelledAt,
					"cancel_reason":       b.CancelReason,
					"refund_status":       b.RefundStatus,
					"refund_status_new":   b.RefundStatusNew,
					"transfer_status":     b.TransferStatus,
					"transfer_status_new": b.TransferStatusNew,
				})
			if res.Error != nil {
				return fmt.Errorf("cancel booking %d: %w", bookingID, res.Error)
			}
			if res.RowsAffected == 0 {
				return errStaleStatus
			}

			return booking_event.RecordStatusEvent(tx, &b, eventType, actor)
		})
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = cancelOnce(); !errors.Is(err, errStaleStatus) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	if !alreadyCancelled {
		logger.Success(fmt.Sprintf("Booking %s cancelled (%s)", b.BookingReference, reason))
		if s.Notifications != nil {
			s.Notifications.EnqueueBookingEvent(&b, notification.KeyBookingCancelled, reason)
		}
	}

	return &b, nil
}

// SetLegacyRefundStatus writes the legacy refund text column and re-derives
// the enum column in the same update. Every write path that touches the
// legacy field must come through here.
func (s *Service) SetLegacyRefundStatus(tx *gorm.DB, b *bookingModel.Booking, legacy string) error {
	b.RefundStatus = &legacy
	b.RefundStatusNew = bookingModel.MapLegacyRefundStatus(&legacy)
	return tx.Model(b).Updates(map[string]interface{}{
		"refund_status":     b.RefundStatus,
		"refund_status_new": b.RefundStatusNew,
	}).Error
}

// SetLegacyTransferStatus writes the legacy transfer text column and
// re-derives the enum column in the same update.
func (s *Service) SetLegacyTransferStatus(tx *gorm.DB, b *bookingModel.Booking, legacy string) error {
	b.TransferStatus = &legacy
	b.TransferStatusNew = bookingModel.MapLegacyTransferStatus(&legacy)
	return tx.Model(b).Updates(map[string]interface{}{
		"transfer_status":     b.TransferStatus,
		"transfer_status_new": b.TransferStatusNew,
	}).Error
}

// SyncLegacyStatusFields recomputes both enum columns from their legacy text
// counterparts and persists the result when anything drifted.
func (s *Service) SyncLegacyStatusFields(bookingID uint) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.DB.First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}

	if !applyLegacySync(&b) {
		return &b, nil
	}

	if err := s.DB.Model(&b).Updates(map[string]interface{}{
		"refund_status_new":   b.RefundStatusNew,
		"transfer_status_new": b.TransferStatusNew,
	}).Error; err != nil {
		return nil, fmt.Errorf("sync legacy status fields for booking %d: %w", bookingID, err)
	}

	return &b, nil
}

// applyLegacySync recomputes the enum columns in memory and reports whether
// either changed.
func applyLegacySync(b *bookingModel.Booking) bool {
	refund := bookingModel.MapLegacyRefundStatus(b.RefundStatus)
	transfer := bookingModel.MapLegacyTransferStatus(b.TransferStatus)

	changed := b.RefundStatusNew != refund || b.TransferStatusNew != transfer
	b.RefundStatusNew = refund
	b.TransferStatusNew = transfer
	return changed
}

// GetByID loads a booking with its slot for API projections.
func (s *Service) GetByID(bookingID uint) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.DB.Preload("TimeSlot").First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	return &b, nil
}

// ListByTraveler returns a traveler's bookings newest first.
func (s *Service) ListByTraveler(travelerID uint) ([]bookingModel.Booking, error) {
	var bookings []bookingModel.Booking
	if err := s.DB.Preload("TimeSlot").
		Where("traveler_id = ?", travelerID).
		Order("created_at DESC").
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings for traveler %d: %w", travelerID, err)
	}
	return bookings, nil
}

// GetByReference loads a booking by its human-facing reference.
func (s *Service) GetByReference(reference string) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.DB.Preload("TimeSlot").Where("booking_reference = ?", reference).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking %s: %w", reference, err)
	}
	return &b, nil
}
