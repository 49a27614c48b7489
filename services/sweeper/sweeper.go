package sweeper

import (
	"context"
	"fmt"
	"time"

	"tour-booking/logger"
	bookingModel "tour-booking/models/booking"
	bookingService "tour-booking/services/booking"

	"gorm.io/gorm"
)

// Sweeper cancels pending bookings whose payment window has lapsed and
// releases their reserved spots. Payment intents expire on the processor's
// side without any callback we can rely on, so this reconciliation runs as a
// periodic background job.
type Sweeper struct {
	DB            *gorm.DB
	Bookings      *bookingService.Service
	PaymentWindow time.Duration
	Interval      time.Duration
}

// NewSweeper creates a new abandoned-booking sweeper
func NewSweeper(db *gorm.DB, bookings *bookingService.Service, paymentWindow, interval time.Duration) *Sweeper {
	return &Sweeper{
		DB:            db,
		Bookings:      bookings,
		PaymentWindow: paymentWindow,
		Interval:      interval,
	}
}

// Run blocks until ctx is done. Started from main in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if swept, err := s.SweepOnce(); err != nil {
				logger.Error("Pending booking sweep failed", err)
			} else if swept > 0 {
				logger.Info(fmt.Sprintf("Swept %d abandoned pending booking(s)", swept))
			}
		}
	}
}

// SweepOnce cancels every pending booking older than the payment window and
// returns how many were swept. Each booking is cancelled independently so one
// failure does not block the rest.
func (s *Sweeper) SweepOnce() (int, error) {
	cutoff := time.Now().Add(-s.PaymentWindow)

	var stale []bookingModel.Booking
	err := s.DB.
		Where("status = ? AND payment_status = ? AND created_at < ?",
			bookingModel.BookingStatusPending, bookingModel.PaymentStatusPending, cutoff).
		Limit(200).
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("load stale pending bookings: %w", err)
	}

	swept := 0
	for i := range stale {
		if _, err := s.Bookings.Cancel(stale[i].ID, "payment window expired", "sweeper"); err != nil {
			logger.Error(fmt.Sprintf("Failed to sweep booking %s", stale[i].BookingReference), err)
			continue
		}
		swept++
	}

	return swept, nil
}
