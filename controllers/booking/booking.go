package booking

import (
	"errors"
	"fmt"
	"io"

	"tour-booking/logger"
	bookingModel "tour-booking/models/booking"
	bookingService "tour-booking/services/booking"
	"tour-booking/services/capacity"
	paymentService "tour-booking/services/payment"
	slipverifyService "tour-booking/services/slipverify"
	"tour-booking/types"
	bookingTypes "tour-booking/types/booking"
	"tour-booking/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// BookingController handles booking-related HTTP requests
type BookingController struct {
	DB         *gorm.DB
	Logger     *logger.AsyncLogger
	Bookings   *bookingService.Service
	Payments   *paymentService.Service
	SlipVerify *slipverifyService.Service
}

// NewBookingController creates a new booking controller
func NewBookingController(db *gorm.DB, asyncLogger *logger.AsyncLogger, bookings *bookingService.Service, payments *paymentService.Service, slipVerify *slipverifyService.Service) *BookingController {
	return &BookingController{
		DB:         db,
		Logger:     asyncLogger,
		Bookings:   bookings,
		Payments:   payments,
		SlipVerify: slipVerify,
	}
}

// Checkout reserves spots on a slot and creates a pending booking. The
// reservation and the booking row commit in one transaction; a full slot
// comes back as a conflict, not an error page.
func (bc *BookingController) Checkout(c *fiber.Ctx) error {
	var req bookingTypes.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	traveler, err := utils.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "User not found",
			Data:    nil,
		})
	}

	booking, err := bc.Bookings.CreatePending(bookingService.CreatePendingInput{
		TravelerID:   traveler.ID,
		TimeSlotID:   req.TimeSlotID,
		Participants: req.Participants,
		Adults:       req.Adults,
		Children:     req.Children,
		Infants:      req.Infants,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: &req.ContactPhone,
	})
	if err != nil {
		switch {
		case errors.Is(err, bookingService.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
				Status:  fiber.StatusBadRequest,
				Message: err.Error(),
				Data:    nil,
			})
		case errors.Is(err, capacity.ErrSlotNotFound):
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Time slot not found",
				Data:    nil,
			})
		case errors.Is(err, capacity.ErrSlotCancelled):
			return c.Status(fiber.StatusConflict).JSON(types.ApiResponse{
				Status:  fiber.StatusConflict,
				Message: "Time slot has been cancelled",
				Data:    nil,
			})
		case errors.Is(err, capacity.ErrCapacityExceeded):
			return c.Status(fiber.StatusConflict).JSON(types.ApiResponse{
				Status:  fiber.StatusConflict,
				Message: "Not enough spots remaining on this time slot",
				Data:    nil,
			})
		default:
			logger.Error("Failed to create booking", err)
			return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Failed to create booking",
				Data:    nil,
			})
		}
	}

	logger.Success(fmt.Sprintf("Booking created successfully with reference: %s", booking.BookingReference))

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Booking created successfully",
		Data:    booking,
	})
}

// Show returns a booking by its human-facing reference. Travelers only see
// their own bookings.
func (bc *BookingController) Show(c *fiber.Ctx) error {
	reference := c.Params("reference")
	if reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Booking reference is required",
			Data:    nil,
		})
	}

	booking, err := bc.Bookings.GetByReference(reference)
	if err != nil {
		if errors.Is(err, bookingService.ErrBookingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Booking not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load booking", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	traveler, err := utils.CurrentUser(c)
	if err != nil || booking.TravelerID != traveler.ID {
		return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
			Status:  fiber.StatusNotFound,
			Message: "Booking not found",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking retrieved successfully",
		Data:    booking,
	})
}

// MyBookings lists the traveler's bookings newest first
func (bc *BookingController) MyBookings(c *fiber.Ctx) error {
	traveler, err := utils.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "User not found",
			Data:    nil,
		})
	}

	bookings, err := bc.Bookings.ListByTraveler(traveler.ID)
	if err != nil {
		logger.Error("Failed to list bookings", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to list bookings",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Bookings retrieved successfully",
		Data:    bookings,
	})
}

// Cancel cancels the traveler's booking. Cancelling twice is a no-op that
// still answers OK.
func (bc *BookingController) Cancel(c *fiber.Ctx) error {
	reference := c.Params("reference")

	// An empty body is fine for a cancel.
	var req bookingTypes.CancelRequest
	_ = c.BodyParser(&req)

	booking, err := bc.Bookings.GetByReference(reference)
	if err != nil {
		if errors.Is(err, bookingService.ErrBookingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Booking not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load booking", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	traveler, err := utils.CurrentUser(c)
	if err != nil || booking.TravelerID != traveler.ID {
		return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
			Status:  fiber.StatusNotFound,
			Message: "Booking not found",
			Data:    nil,
		})
	}

	reason := req.Reason
	if reason == "" {
		reason = "cancelled by traveler"
	}

	cancelled, err := bc.Bookings.Cancel(booking.ID, reason, traveler.Uuid)
	if err != nil {
		logger.Error("Failed to cancel booking", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to cancel booking",
			Data:    nil,
		})
	}

	// A paid booking needs its money sent back; the refund webhook settles
	// the columns once the processor issues it.
	if cancelled.PaymentStatus == bookingModel.PaymentStatusRefunded {
		if err := bc.Payments.RefundBooking(cancelled); err != nil {
			logger.Error(fmt.Sprintf("Refund request failed for booking %s", cancelled.BookingReference), err)
		}
	}

	logger.Success(fmt.Sprintf("Booking %s cancelled", cancelled.BookingReference))

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking cancelled successfully",
		Data:    cancelled,
	})
}

// UploadSlip accepts a bank-transfer slip image for a pending booking and
// runs it through slip verification. A slip whose amount matches the booking
// total confirms the booking.
func (bc *BookingController) UploadSlip(c *fiber.Ctx) error {
	reference := c.Params("reference")

	booking, err := bc.Bookings.GetByReference(reference)
	if err != nil {
		if errors.Is(err, bookingService.ErrBookingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Booking not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load booking", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	traveler, err := utils.CurrentUser(c)
	if err != nil || booking.TravelerID != traveler.ID {
		return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
			Status:  fiber.StatusNotFound,
			Message: "Booking not found",
			Data:    nil,
		})
	}

	fileHeader, err := c.FormFile("slip")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "A slip image file is required",
			Data:    nil,
		})
	}

	// 10 MB cap to keep the vision call reasonable.
	if fileHeader.Size > 10*1024*1024 {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(types.ApiResponse{
			Status:  fiber.StatusRequestEntityTooLarge,
			Message: "Slip image must be 10MB or smaller",
			Data:    nil,
		})
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType != "image/jpeg" && mimeType != "image/png" && mimeType != "image/webp" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Slip must be a JPEG, PNG or WebP image",
			Data:    nil,
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded slip", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to read uploaded file",
			Data:    nil,
		})
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		logger.Error("Failed to read uploaded slip", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to read uploaded file",
			Data:    nil,
		})
	}

	requestID := bc.SlipVerify.GenerateRequestID()
	request, err := bc.SlipVerify.CreateInitialRequest(c, requestID, booking.ID, fileHeader.Filename, fileBytes, mimeType)
	if err != nil {
		logger.Error("Failed to record slip verification request", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to start slip verification",
			Data:    nil,
		})
	}

	data, err := bc.SlipVerify.VerifyAndConfirm(c.Context(), request, booking, fileBytes, mimeType)
	if err != nil {
		logger.Error("Slip verification failed", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ApiResponse{
			Status:  fiber.StatusUnprocessableEntity,
			Message: "Slip could not be verified",
			Data: map[string]interface{}{
				"request_id": requestID,
			},
		})
	}

	updated, err := bc.Bookings.GetByID(booking.ID)
	if err != nil {
		updated = booking
	}

	logger.Success(fmt.Sprintf("Slip verified for booking %s (request %s)", booking.BookingReference, requestID))

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Slip processed",
		Data: map[string]interface{}{
			"request_id":     requestID,
			"slip":           data,
			"amount_matched": request.AmountMatched,
			"booking":        updated,
		},
	})
}
