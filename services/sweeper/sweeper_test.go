package sweeper

import (
	"testing"
	"time"

	bookingModel "tour-booking/models/booking"
	timeslotModel "tour-booking/models/timeslot"
	tourModel "tour-booking/models/tour"
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

	schema := []string{
		`CREATE TABLE tours (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guide_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			city TEXT NOT NULL,
			description TEXT,
			meeting_point TEXT,
			duration_min INTEGER NOT NULL,
			price_per_head REAL NOT NULL,
			currency TEXT NOT NULL DEFAULT 'THB',
			max_group_size INTEGER NOT NULL DEFAULT 10,
			latitude REAL,
			longitude REAL,
			is_published INTEGER DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		);`,
		`CREATE TABLE time_slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tour_id INTEGER NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			capacity INTEGER NOT NULL,
			booked_spots INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'available',
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		);`,
		`CREATE TABLE bookings (
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
		);`,
		`CREATE TABLE slot_reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token TEXT NOT NULL UNIQUE,
			time_slot_id INTEGER NOT NULL,
			booking_id INTEGER,
			participants INTEGER NOT NULL,
			released INTEGER NOT NULL DEFAULT 0,
			released_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE booking_status_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			event_type TEXT NOT NULL,
			created_by TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	return db
}

func seedBooking(t *testing.T, db *gorm.DB, bookings *bookingService.Service, slotID uint) *bookingModel.Booking {
	t.Helper()

	phone := "+66899990000"
	b, err := bookings.CreatePending(bookingService.CreatePendingInput{
		TravelerID:   3,
		TimeSlotID:   slotID,
		Participants: 2,
		ContactName:  "Pim W",
		ContactEmail: "pim@example.com",
		ContactPhone: &phone,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func backdate(t *testing.T, db *gorm.DB, bookingID uint, age time.Duration) {
	t.Helper()
	err := db.Model(&bookingModel.Booking{}).Where("id = ?", bookingID).
		UpdateColumn("created_at", time.Now().Add(-age)).Error
	if err != nil {
		t.Fatalf("backdate booking: %v", err)
	}
}

func TestSweepOnce_CancelsExpiredPending(t *testing.T) {
	db := openTestDB(t)
	bookings := bookingService.NewService(db, capacity.NewReconciler(db), nil)
	s := NewSweeper(db, bookings, 15*time.Minute, time.Minute)

	tour := tourModel.Tour{GuideID: 1, Title: "Old Town Walk", City: "Bangkok", DurationMin: 90, PricePerHead: 400, Currency: "THB", MaxGroupSize: 10, IsPublished: true}
	if err := db.Create(&tour).Error; err != nil {
		t.Fatalf("seed tour: %v", err)
	}
	start := time.Date(2026, 9, 20, 9, 0, 0, 0, time.UTC)
	slot := timeslotModel.TimeSlot{TourID: tour.ID, StartTime: start, EndTime: start.Add(90 * time.Minute), Capacity: 10, Status: timeslotModel.TimeSlotStatusAvailable}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	stale := seedBooking(t, db, bookings, slot.ID)
	fresh := seedBooking(t, db, bookings, slot.ID)
	backdate(t, db, stale.ID, 30*time.Minute)

	swept, err := s.SweepOnce()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept, got %d", swept)
	}

	var after bookingModel.Booking
	db.First(&after, stale.ID)
	if after.Status != bookingModel.BookingStatusCancelled || after.PaymentStatus != bookingModel.PaymentStatusFailed {
		t.Fatalf("expected cancelled/failed, got %s/%s", after.Status, after.PaymentStatus)
	}
	if after.CancelReason == nil || *after.CancelReason != "payment window expired" {
		t.Fatalf("expected sweep reason recorded, got %v", after.CancelReason)
	}

	var freshAfter bookingModel.Booking
	db.First(&freshAfter, fresh.ID)
	if freshAfter.Status != bookingModel.BookingStatusPending {
		t.Fatalf("fresh booking must stay pending, got %s", freshAfter.Status)
	}

	// Only the stale booking's two spots come back.
	var slotAfter timeslotModel.TimeSlot
	db.First(&slotAfter, slot.ID)
	if slotAfter.BookedSpots != 2 {
		t.Fatalf("expected booked=2 after sweep, got %d", slotAfter.BookedSpots)
	}
}

func TestSweepOnce_IgnoresConfirmedBookings(t *testing.T) {
	db := openTestDB(t)
	bookings := bookingService.NewService(db, capacity.NewReconciler(db), nil)
	s := NewSweeper(db, bookings, 15*time.Minute, time.Minute)

	tour := tourModel.Tour{GuideID: 1, Title: "Night Market Tour", City: "Chiang Mai", DurationMin: 120, PricePerHead: 600, Currency: "THB", MaxGroupSize: 8, IsPublished: true}
	if err := db.Create(&tour).Error; err != nil {
		t.Fatalf("seed tour: %v", err)
	}
	start := time.Date(2026, 9, 21, 18, 0, 0, 0, time.UTC)
	slot := timeslotModel.TimeSlot{TourID: tour.ID, StartTime: start, EndTime: start.Add(2 * time.Hour), Capacity: 8, Status: timeslotModel.TimeSlotStatusAvailable}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	b := seedBooking(t, db, bookings, slot.ID)
	charge := "chrg_test_sweep"
	if _, err := bookings.MarkConfirmed(b.ID, &charge, "payment-webhook"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	backdate(t, db, b.ID, 2*time.Hour)

	swept, err := s.SweepOnce()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected nothing swept, got %d", swept)
	}

	var after bookingModel.Booking
	db.First(&after, b.ID)
	if after.Status != bookingModel.BookingStatusConfirmed {
		t.Fatalf("confirmed booking must be untouched, got %s", after.Status)
	}
}
