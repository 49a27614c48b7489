package payment

import (
	"errors"
	"testing"

	bookingModel "tour-booking/models/booking"
	userModel "tour-booking/models/user"
	bookingService "tour-booking/services/booking"
	"tour-booking/services/capacity"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.Exec(`CREATE TABLE bookings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		traveler_id INTEGER NOT NULL,
		tour_id INTEGER NOT NULL,
		time_slot_id INTEGER NOT NULL,
		booking_reference TEXT NOT NULL UNIQUE,
		participants INTEGER NOT NULL,
		adults INTEGER,
		children INTEGER,
		infants INTEGER,
		contact_name TEXT NOT NULL,
		contact_email TEXT NOT NULL,
		contact_phone TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_status TEXT NOT NULL DEFAULT 'pending',
		refund_status TEXT,
		refund_status_new TEXT NOT NULL DEFAULT 'not_required',
		transfer_status TEXT,
		transfer_status_new TEXT NOT NULL DEFAULT 'pending',
		reservation_token TEXT NOT NULL UNIQUE,
		ticket_qr_code TEXT,
		total_amount REAL NOT NULL,
		currency TEXT NOT NULL,
		payment_charge_id TEXT,
		cancel_reason TEXT,
		confirmed_at DATETIME,
		cancelled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	bookings := bookingService.NewService(db, capacity.NewReconciler(db), nil)
	// No processor client wired; calls that reach it must fail cleanly.
	return NewService(db, nil, bookings), db
}

func seedCancelledBooking(t *testing.T, db *gorm.DB, chargeID *string) *bookingModel.Booking {
	t.Helper()
	legacy := "pending"
	b := &bookingModel.Booking{
		TravelerID:       7,
		TourID:           1,
		TimeSlotID:       1,
		BookingReference: "TB-20260830-TEST01",
		Participants:     2,
		ContactName:      "Mali R.",
		ContactEmail:     "mali@example.com",
		Status:           bookingModel.BookingStatusCancelled,
		PaymentStatus:    bookingModel.PaymentStatusRefunded,
		RefundStatus:     &legacy,
		RefundStatusNew:  bookingModel.RefundStatusPending,
		ReservationToken: "tok-payment-test",
		TotalAmount:      1200,
		Currency:         "THB",
		PaymentChargeID:  chargeID,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func TestRefundBooking_NoChargeNeedsManualFollowUp(t *testing.T) {
	svc, db := newTestService(t)
	b := seedCancelledBooking(t, db, nil)

	// Bank transfer bookings have no charge; nothing to send to the
	// processor, and the pending columns stay for the backoffice.
	if err := svc.RefundBooking(b); err != nil {
		t.Fatalf("expected no error for chargeless booking, got %v", err)
	}

	var fresh bookingModel.Booking
	if err := db.First(&fresh, b.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.RefundStatus == nil || *fresh.RefundStatus != "pending" {
		t.Fatalf("expected legacy refund 'pending', got %v", fresh.RefundStatus)
	}
	if fresh.RefundStatusNew != bookingModel.RefundStatusPending {
		t.Fatalf("expected refund enum pending, got %s", fresh.RefundStatusNew)
	}
}

func TestRefundBooking_ProcessorFailureRecordedAsFailed(t *testing.T) {
	svc, db := newTestService(t)
	charge := "chrg_test_refund"
	b := seedCancelledBooking(t, db, &charge)

	if err := svc.RefundBooking(b); err == nil {
		t.Fatal("expected error when the processor call fails")
	}

	var fresh bookingModel.Booking
	if err := db.First(&fresh, b.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.RefundStatus == nil || *fresh.RefundStatus != "failed" {
		t.Fatalf("expected legacy refund 'failed', got %v", fresh.RefundStatus)
	}
	if fresh.RefundStatusNew != bookingModel.RefundStatusFailed {
		t.Fatalf("expected refund enum failed, got %s", fresh.RefundStatusNew)
	}
}

func TestTransferToGuide_NoPayoutAccount(t *testing.T) {
	svc, db := newTestService(t)
	charge := "chrg_test_transfer"
	b := seedCancelledBooking(t, db, &charge)

	if err := svc.TransferToGuide(b, &userModel.User{}); !errors.Is(err, ErrNoPayoutAccount) {
		t.Fatalf("expected ErrNoPayoutAccount, got %v", err)
	}
}
