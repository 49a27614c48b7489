package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"tour-booking/logger"
	userModel "tour-booking/models/user"
	bookingService "tour-booking/services/booking"
	paymentService "tour-booking/services/payment"
	"tour-booking/types"

	"github.com/gofiber/fiber/v2"
	"github.com/omise/omise-go"
	"gorm.io/gorm"
)

// WebhookController receives payment processor webhooks. Every delivered
// event is re-fetched from the processor before any state changes; a payload
// we cannot verify is answered 401 and retried by the processor.
type WebhookController struct {
	DB       *gorm.DB
	Logger   *logger.AsyncLogger
	Payments *paymentService.Service
	Bookings *bookingService.Service
}

// NewWebhookController creates a new webhook controller
func NewWebhookController(db *gorm.DB, asyncLogger *logger.AsyncLogger, payments *paymentService.Service, bookings *bookingService.Service) *WebhookController {
	return &WebhookController{
		DB:       db,
		Logger:   asyncLogger,
		Payments: payments,
		Bookings: bookings,
	}
}

type incomingEvent struct {
	ID   string          `json:"id"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// Handle processes a webhook delivery. The handler is idempotent: the ledger
// absorbs repeated confirms and cancels, so processor retries are safe.
func (wc *WebhookController) Handle(c *fiber.Ctx) error {
	var inc incomingEvent
	if err := c.BodyParser(&inc); err != nil {
		logger.Error("Failed to parse webhook payload", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid webhook payload",
			Data:    nil,
		})
	}

	ev, err := wc.Payments.VerifyEvent(inc.ID)
	if err != nil {
		logger.Error(fmt.Sprintf("Webhook event %s could not be verified", inc.ID), err)
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Event verification failed",
			Data:    nil,
		})
	}

	switch ev.Key {
	case "charge.complete":
		wc.handleChargeComplete(ev)
	case "refund.create":
		wc.handleRefundCreate(ev)
	default:
		logger.Info(fmt.Sprintf("Ignoring webhook event %s (%s)", ev.ID, ev.Key))
	}

	// Always 200 once verified; failures inside handlers are logged and the
	// booking stays in a state the sweeper or a retry can resolve.
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Event processed",
		Data:    nil,
	})
}

func (wc *WebhookController) handleChargeComplete(ev *omise.Event) {
	ch, err := decodeCharge(ev)
	if err != nil {
		logger.Error("Failed to decode charge from event", err)
		return
	}

	reference, _ := ch.Metadata["booking_reference"].(string)
	if reference == "" {
		logger.Warning(fmt.Sprintf("Charge %s carries no booking reference, skipping", ch.ID))
		return
	}

	booking, err := wc.Bookings.GetByReference(reference)
	if err != nil {
		logger.Error(fmt.Sprintf("Charge %s references unknown booking %s", ch.ID, reference), err)
		return
	}

	if ch.Status != "successful" {
		reason := "payment failed"
		if ch.FailureCode != nil && *ch.FailureCode != "" {
			reason = "payment failed: " + *ch.FailureCode
		}
		if _, err := wc.Bookings.Cancel(booking.ID, reason, "payment-webhook"); err != nil {
			logger.Error(fmt.Sprintf("Failed to cancel booking %s after failed charge", reference), err)
		}
		return
	}

	confirmed, err := wc.Bookings.MarkConfirmed(booking.ID, &ch.ID, "payment-webhook")
	if err != nil {
		if errors.Is(err, bookingService.ErrBookingCancelled) {
			// Paid after cancellation (sweeper or traveler won the race):
			// give the money back, the spots are already released.
			logger.Warning(fmt.Sprintf("Charge %s landed on cancelled booking %s, refunding", ch.ID, reference))
			if refundErr := wc.Payments.Refund(ch.ID, ch.Amount); refundErr != nil {
				logger.Error(fmt.Sprintf("Failed to refund late charge %s", ch.ID), refundErr)
				return
			}
			// Record the charge and the in-flight refund so the refund.create
			// webhook can settle this booking's columns.
			if setErr := wc.DB.Model(booking).Update("payment_charge_id", ch.ID).Error; setErr != nil {
				logger.Error(fmt.Sprintf("Failed to record charge for booking %s", reference), setErr)
			}
			if setErr := wc.Bookings.SetLegacyRefundStatus(wc.DB, booking, "pending"); setErr != nil {
				logger.Error(fmt.Sprintf("Failed to record refund for booking %s", reference), setErr)
			}
			return
		}
		logger.Error(fmt.Sprintf("Failed to confirm booking %s", reference), err)
		return
	}

	wc.transferToGuide(confirmed.ID)
}

// transferToGuide pays the guide their share once a booking confirms. A
// transfer failure never rolls back the confirmation; the legacy transfer
// columns record it as failed for backoffice follow-up.
func (wc *WebhookController) transferToGuide(bookingID uint) {
	booking, err := wc.Bookings.GetByID(bookingID)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to reload booking %d for payout", bookingID), err)
		return
	}

	var guide userModel.User
	if err := wc.DB.
		Joins("JOIN tours ON tours.guide_id = users.id").
		Where("tours.id = ?", booking.TourID).
		First(&guide).Error; err != nil {
		logger.Error(fmt.Sprintf("Failed to resolve guide for booking %d", bookingID), err)
		return
	}

	if err := wc.Payments.TransferToGuide(booking, &guide); err != nil {
		if errors.Is(err, paymentService.ErrNoPayoutAccount) {
			logger.Warning(fmt.Sprintf("Guide %s has no payout account, holding transfer for booking %s", guide.Uuid, booking.BookingReference))
			return
		}
		logger.Error(fmt.Sprintf("Payout transfer failed for booking %s", booking.BookingReference), err)
	}
}

func (wc *WebhookController) handleRefundCreate(ev *omise.Event) {
	var refund omise.Refund
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		logger.Error("Failed to re-marshal event data", err)
		return
	}
	if err := json.Unmarshal(raw, &refund); err != nil {
		logger.Error("Failed to decode refund from event", err)
		return
	}

	booking, err := wc.Payments.FindBookingByCharge(refund.Charge)
	if err != nil {
		if errors.Is(err, bookingService.ErrBookingNotFound) {
			logger.Warning(fmt.Sprintf("Refund %s does not match any booking", refund.ID))
			return
		}
		logger.Error(fmt.Sprintf("Failed to resolve booking for refund %s", refund.ID), err)
		return
	}

	cancelled, err := wc.Bookings.Cancel(booking.ID, "refund issued by processor", "payment-webhook")
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to cancel booking %s after refund", booking.BookingReference), err)
		return
	}

	// The processor has issued the money back; settle the refund columns.
	if err := wc.Bookings.SetLegacyRefundStatus(wc.DB, cancelled, "succeeded"); err != nil {
		logger.Error(fmt.Sprintf("Failed to record refund for booking %s", cancelled.BookingReference), err)
	}
}

func decodeCharge(ev *omise.Event) (*omise.Charge, error) {
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("re-marshal event data: %w", err)
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("unmarshal charge: %w", err)
	}
	return &ch, nil
}
