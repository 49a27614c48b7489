package payment

import (
	"errors"
	"fmt"

	"tour-booking/logger"
	bookingModel "tour-booking/models/booking"
	userModel "tour-booking/models/user"
	bookingService "tour-booking/services/booking"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"gorm.io/gorm"
)

var ErrNoPayoutAccount = errors.New("guide has no payout recipient configured")

// Service wraps the payment processor for the booking core: webhook event
// verification, refunds and guide payout transfers. The processor itself is a
// black box; everything here is a thin call with booking state updates around
// it.
type Service struct {
	DB       *gorm.DB
	Client   *omise.Client
	Bookings *bookingService.Service
}

// NewService creates a new payment service
func NewService(db *gorm.DB, client *omise.Client, bookings *bookingService.Service) *Service {
	return &Service{DB: db, Client: client, Bookings: bookings}
}

// VerifyEvent re-fetches a webhook event from the processor instead of
// trusting the delivered payload.
func (s *Service) VerifyEvent(eventID string) (*omise.Event, error) {
	if s.Client == nil {
		return nil, errors.New("payment client not configured")
	}
	ev := &omise.Event{}
	if err := s.Client.Do(ev, &operations.RetrieveEvent{EventID: eventID}); err != nil {
		return nil, fmt.Errorf("retrieve event %s: %w", eventID, err)
	}
	return ev, nil
}

// Refund asks the processor to refund a charge in full.
func (s *Service) Refund(chargeID string, amount int64) error {
	if s.Client == nil {
		return errors.New("payment client not configured")
	}
	refund := &omise.Refund{}
	err := s.Client.Do(refund, &operations.CreateRefund{
		ChargeID: chargeID,
		Amount:   amount,
	})
	if err != nil {
		return fmt.Errorf("create refund for charge %s: %w", chargeID, err)
	}
	return nil
}

// RefundBooking sends the processor refund for a cancelled paid booking.
// The legacy refund column stays pending until the refund.create webhook
// confirms the processor issued it; a rejected refund call is recorded as
// failed for backoffice follow-up. Bookings paid by bank transfer carry no
// charge and need a manual refund.
func (s *Service) RefundBooking(b *bookingModel.Booking) error {
	if b.PaymentChargeID == nil || *b.PaymentChargeID == "" {
		logger.Warning(fmt.Sprintf("Booking %s was paid without a charge (bank transfer), refund needs manual follow-up", b.BookingReference))
		return nil
	}

	if err := s.Refund(*b.PaymentChargeID, int64(b.TotalAmount*100)); err != nil {
		if setErr := s.Bookings.SetLegacyRefundStatus(s.DB, b, "failed"); setErr != nil {
			logger.Error(fmt.Sprintf("Failed to record refund failure for booking %s", b.BookingReference), setErr)
		}
		return fmt.Errorf("refund booking %d: %w", b.ID, err)
	}

	logger.Success(fmt.Sprintf("Refund requested for booking %s", b.BookingReference))
	return nil
}

// TransferToGuide creates the payout transfer for a confirmed booking and
// records the outcome through the legacy transfer columns (the enum column is
// re-derived by the same write).
func (s *Service) TransferToGuide(b *bookingModel.Booking, guide *userModel.User) error {
	if guide.PayoutRecipientID == nil || *guide.PayoutRecipientID == "" {
		return ErrNoPayoutAccount
	}
	if s.Client == nil {
		return errors.New("payment client not configured")
	}

	transfer := &omise.Transfer{}
	err := s.Client.Do(transfer, &operations.CreateTransfer{
		Amount:    int64(b.TotalAmount * 100),
		Recipient: *guide.PayoutRecipientID,
	})
	if err != nil {
		logger.Error(fmt.Sprintf("Payout transfer failed for booking %s", b.BookingReference), err)
		if setErr := s.Bookings.SetLegacyTransferStatus(s.DB, b, "failed"); setErr != nil {
			return fmt.Errorf("record failed transfer for booking %d: %w", b.ID, setErr)
		}
		return fmt.Errorf("create transfer for booking %d: %w", b.ID, err)
	}

	if err := s.Bookings.SetLegacyTransferStatus(s.DB, b, "completed"); err != nil {
		return fmt.Errorf("record completed transfer for booking %d: %w", b.ID, err)
	}
	logger.Success(fmt.Sprintf("Payout transfer created for booking %s", b.BookingReference))
	return nil
}

// FindBookingByCharge resolves a booking from the processor's charge id.
func (s *Service) FindBookingByCharge(chargeID string) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.DB.Where("payment_charge_id = ?", chargeID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookingService.ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking by charge %s: %w", chargeID, err)
	}
	return &b, nil
}
