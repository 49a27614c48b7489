package timeslot

import (
	"errors"
	"fmt"
	"time"

	weatherService "tour-booking/httpServices/weather"
	"tour-booking/logger"
	bookingModel "tour-booking/models/booking"
	timeslotModel "tour-booking/models/timeslot"
	tourModel "tour-booking/models/tour"
	bookingService "tour-booking/services/booking"
	"tour-booking/services/capacity"
	paymentService "tour-booking/services/payment"
	"tour-booking/types"
	timeslotTypes "tour-booking/types/timeslot"
	"tour-booking/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// TimeSlotController handles slot scheduling and availability requests
type TimeSlotController struct {
	DB       *gorm.DB
	Logger   *logger.AsyncLogger
	Capacity *capacity.Reconciler
	Bookings *bookingService.Service
	Payments *paymentService.Service
	Weather  *weatherService.WeatherClient
}

// NewTimeSlotController creates a new time slot controller
func NewTimeSlotController(db *gorm.DB, asyncLogger *logger.AsyncLogger, reconciler *capacity.Reconciler, bookings *bookingService.Service, payments *paymentService.Service, weather *weatherService.WeatherClient) *TimeSlotController {
	return &TimeSlotController{
		DB:       db,
		Logger:   asyncLogger,
		Capacity: reconciler,
		Bookings: bookings,
		Payments: payments,
		Weather:  weather,
	}
}

// Store schedules a new slot for a tour the guide manages
func (sc *TimeSlotController) Store(c *fiber.Ctx) error {
	var req timeslotTypes.SlotCreateRequest
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

	var tour tourModel.Tour
	if err := sc.DB.First(&tour, req.TourID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Tour not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load tour", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	guide, err := utils.CurrentUser(c)
	if err != nil || tour.GuideID != guide.ID {
		return c.Status(fiber.StatusForbidden).JSON(types.ApiResponse{
			Status:  fiber.StatusForbidden,
			Message: "You do not manage this tour",
			Data:    nil,
		})
	}

	startTime, _ := time.Parse(time.RFC3339, req.StartTime)
	endTime, _ := time.Parse(time.RFC3339, req.EndTime)

	if req.Capacity > tour.MaxGroupSize {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: fmt.Sprintf("Capacity cannot exceed the tour's max group size of %d", tour.MaxGroupSize),
			Data:    nil,
		})
	}

	// Reject overlap with another live slot of the same tour.
	var overlapping int64
	sc.DB.Model(&timeslotModel.TimeSlot{}).
		Where("tour_id = ? AND status = ? AND start_time < ? AND end_time > ?",
			tour.ID, timeslotModel.TimeSlotStatusAvailable, endTime, startTime).
		Count(&overlapping)
	if overlapping > 0 {
		return c.Status(fiber.StatusConflict).JSON(types.ApiResponse{
			Status:  fiber.StatusConflict,
			Message: "Slot overlaps an existing slot for this tour",
			Data:    nil,
		})
	}

	slot := timeslotModel.TimeSlot{
		TourID:    tour.ID,
		StartTime: startTime,
		EndTime:   endTime,
		Capacity:  req.Capacity,
		Status:    timeslotModel.TimeSlotStatusAvailable,
	}

	if err := sc.DB.Create(&slot).Error; err != nil {
		logger.Error("Failed to create time slot", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to create time slot",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Time slot created successfully with ID: %d", slot.ID))

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Time slot created successfully",
		Data:    slot,
	})
}

// slotView is a slot plus its derived availability and optional forecast.
type slotView struct {
	timeslotModel.TimeSlot
	Remaining int                         `json:"remaining"`
	Forecast  *weatherService.DayForecast `json:"forecast,omitempty"`
}

// Availability lists the bookable slots of a tour for a given day, or the
// whole coming week when no date is passed. Forecast data is attached when
// the tour carries coordinates; a weather outage degrades to slots without
// forecasts.
func (sc *TimeSlotController) Availability(c *fiber.Ctx) error {
	tourID, err := c.ParamsInt("id")
	if err != nil || tourID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid tour id",
			Data:    nil,
		})
	}

	var tour tourModel.Tour
	if err := sc.DB.First(&tour, tourID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Tour not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load tour", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	var windowStart, windowEnd time.Time
	if date := c.Query("date"); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
				Status:  fiber.StatusBadRequest,
				Message: "date must be formatted as 2006-01-02",
				Data:    nil,
			})
		}
		windowStart = now.New(day).BeginningOfDay()
		windowEnd = now.New(day).EndOfDay()
	} else {
		windowStart = now.BeginningOfDay()
		windowEnd = now.BeginningOfDay().AddDate(0, 0, 7)
	}

	var slots []timeslotModel.TimeSlot
	if err := sc.DB.
		Where("tour_id = ? AND status = ? AND start_time >= ? AND start_time <= ?",
			tour.ID, timeslotModel.TimeSlotStatusAvailable, windowStart, windowEnd).
		Order("start_time ASC").
		Find(&slots).Error; err != nil {
		logger.Error("Failed to list time slots", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to list time slots",
			Data:    nil,
		})
	}

	var forecast *weatherService.ForecastResponse
	if sc.Weather != nil && (tour.Latitude != 0 || tour.Longitude != 0) {
		forecast, err = sc.Weather.RequestDailyForecast(tour.Latitude, tour.Longitude, 8)
		if err != nil {
			logger.Warning(fmt.Sprintf("Weather lookup failed for tour %d: %v", tour.ID, err))
			forecast = nil
		}
	}

	views := make([]slotView, 0, len(slots))
	for _, slot := range slots {
		view := slotView{TimeSlot: slot, Remaining: slot.Remaining()}
		if forecast != nil {
			view.Forecast = sc.Weather.ForecastForDate(forecast, slot.StartTime.Format("2006-01-02"))
		}
		views = append(views, view)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Availability retrieved successfully",
		Data:    views,
	})
}

// Cancel withdraws a slot and cancels every live booking on it. Bookings
// already cancelled are left untouched; paid ones go through the refund path.
func (sc *TimeSlotController) Cancel(c *fiber.Ctx) error {
	var req timeslotTypes.SlotCancelRequest
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

	var slot timeslotModel.TimeSlot
	if err := sc.DB.Preload("Tour").First(&slot, req.SlotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Time slot not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load time slot", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	guide, err := utils.CurrentUser(c)
	if err != nil || slot.Tour.GuideID != guide.ID {
		return c.Status(fiber.StatusForbidden).JSON(types.ApiResponse{
			Status:  fiber.StatusForbidden,
			Message: "You do not manage this tour",
			Data:    nil,
		})
	}

	if slot.Status == timeslotModel.TimeSlotStatusCancelled {
		return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
			Status:  fiber.StatusOK,
			Message: "Time slot is already cancelled",
			Data:    slot,
		})
	}

	reason := req.Reason
	if reason == "" {
		reason = "time slot cancelled by guide"
	}

	if err := sc.DB.Model(&slot).Update("status", timeslotModel.TimeSlotStatusCancelled).Error; err != nil {
		logger.Error("Failed to cancel time slot", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to cancel time slot",
			Data:    nil,
		})
	}

	// Cancel live bookings one by one so each gets its own refund and
	// notification handling. Failures are logged and skipped; the sweep of
	// remaining bookings is retryable because Cancel is idempotent.
	var liveBookings []bookingModel.Booking
	if err := sc.DB.
		Where("time_slot_id = ? AND status IN ?", slot.ID,
			[]string{string(bookingModel.BookingStatusPending), string(bookingModel.BookingStatusConfirmed)}).
		Find(&liveBookings).Error; err != nil {
		logger.Error("Failed to list bookings for cancelled slot", err)
	}

	cancelled := 0
	for _, b := range liveBookings {
		cb, err := sc.Bookings.Cancel(b.ID, reason, "guide")
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to cancel booking %d on slot %d", b.ID, slot.ID), err)
			continue
		}
		if cb.PaymentStatus == bookingModel.PaymentStatusRefunded {
			if err := sc.Payments.RefundBooking(cb); err != nil {
				logger.Error(fmt.Sprintf("Refund request failed for booking %s", cb.BookingReference), err)
			}
		}
		cancelled++
	}

	logger.Success(fmt.Sprintf("Time slot %d cancelled, %d bookings cancelled", slot.ID, cancelled))

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Time slot cancelled successfully",
		Data: map[string]interface{}{
			"slot_id":            slot.ID,
			"bookings_cancelled": cancelled,
		},
	})
}

// Destroy removes a slot that has no live bookings. Slots with pending or
// confirmed bookings must be cancelled instead so every traveler goes through
// the refund and notification path.
func (sc *TimeSlotController) Destroy(c *fiber.Ctx) error {
	slotID, err := c.ParamsInt("id")
	if err != nil || slotID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid time slot id",
			Data:    nil,
		})
	}

	var slot timeslotModel.TimeSlot
	if err := sc.DB.Preload("Tour").First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Time slot not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load time slot", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	guide, err := utils.CurrentUser(c)
	if err != nil || slot.Tour.GuideID != guide.ID {
		return c.Status(fiber.StatusForbidden).JSON(types.ApiResponse{
			Status:  fiber.StatusForbidden,
			Message: "You do not manage this tour",
			Data:    nil,
		})
	}

	var liveBookings int64
	sc.DB.Model(&bookingModel.Booking{}).
		Where("time_slot_id = ? AND status IN ?", slot.ID,
			[]string{string(bookingModel.BookingStatusPending), string(bookingModel.BookingStatusConfirmed)}).
		Count(&liveBookings)
	if liveBookings > 0 {
		return c.Status(fiber.StatusConflict).JSON(types.ApiResponse{
			Status:  fiber.StatusConflict,
			Message: "Time slot has active bookings and cannot be deleted, cancel it instead",
			Data:    nil,
		})
	}

	if err := sc.DB.Delete(&slot).Error; err != nil {
		logger.Error("Failed to delete time slot", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to delete time slot",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Time slot %d deleted", slot.ID))

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Time slot deleted successfully",
		Data:    nil,
	})
}
