package booking

import (
	"errors"
	"testing"
	"time"

	bookingModel "tour-booking/models/booking"
	timeslotModel "tour-booking/models/timeslot"
	tourModel "tour-booking/models/tour"
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

	// Minimal schema for the ledger paths (sqlite-friendly).
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

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	return NewService(db, capacity.NewReconciler(db), nil), db
}

func seedTourAndSlot(t *testing.T, db *gorm.DB, price float64, slotCapacity int) *timeslotModel.TimeSlot {
	t.Helper()

	tour := tourModel.Tour{
		GuideID:      1,
		Title:        "Canal Kayak Loop",
		City:         "Bangkok",
		DurationMin:  120,
		PricePerHead: price,
		Currency:     "THB",
		MaxGroupSize: slotCapacity,
		IsPublished:  true,
	}
	if err := db.Create(&tour).Error; err != nil {
		t.Fatalf("seed tour: %v", err)
	}

	start := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	slot := &timeslotModel.TimeSlot{
		TourID:    tour.ID,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Capacity:  slotCapacity,
		Status:    timeslotModel.TimeSlotStatusAvailable,
	}
	if err := db.Create(slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return slot
}

func validInput(slotID uint, participants int) CreatePendingInput {
	phone := "+66812345678"
	return CreatePendingInput{
		TravelerID:   7,
		TimeSlotID:   slotID,
		Participants: participants,
		ContactName:  "Somchai T",
		ContactEmail: "somchai@example.com",
		ContactPhone: &phone,
	}
}

func intPtr(v int) *int { return &v }

func TestCreatePending_Validation(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	cases := []struct {
		name   string
		mutate func(*CreatePendingInput)
	}{
		{"zero participants", func(in *CreatePendingInput) { in.Participants = 0 }},
		{"missing contact name", func(in *CreatePendingInput) { in.ContactName = "" }},
		{"missing contact email", func(in *CreatePendingInput) { in.ContactEmail = "" }},
		{"bad phone", func(in *CreatePendingInput) { bad := "not-a-phone"; in.ContactPhone = &bad }},
		{"breakdown sum mismatch", func(in *CreatePendingInput) {
			in.Participants = 4
			in.Adults = intPtr(1)
			in.Children = intPtr(1)
			in.Infants = intPtr(1)
		}},
		{"negative breakdown value", func(in *CreatePendingInput) {
			in.Participants = 2
			in.Adults = intPtr(3)
			in.Children = intPtr(-1)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput(slot.ID, 2)
			tc.mutate(&in)
			if _, err := svc.CreatePending(in); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}

	// Nothing may have been written by the rejected attempts.
	var count int64
	db.Model(&bookingModel.Booking{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no bookings, got %d", count)
	}
}

func TestCreatePending_PartialBreakdownAccepted(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	in := validInput(slot.ID, 3)
	in.Adults = intPtr(2)
	in.Children = intPtr(1)

	b, err := svc.CreatePending(in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sum, ok := b.BreakdownSum(); !ok || sum != 3 {
		t.Fatalf("expected breakdown sum 3, got %d (supplied=%v)", sum, ok)
	}
}

func TestCreatePending_ReservesAndPrices(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 750, 10)

	b, err := svc.CreatePending(validInput(slot.ID, 4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if b.Status != bookingModel.BookingStatusPending || b.PaymentStatus != bookingModel.PaymentStatusPending {
		t.Fatalf("expected pending/pending, got %s/%s", b.Status, b.PaymentStatus)
	}
	if b.TotalAmount != 3000 {
		t.Fatalf("expected total 3000, got %v", b.TotalAmount)
	}
	if b.BookingReference == "" || b.ReservationToken == "" {
		t.Fatalf("expected reference and token, got %q / %q", b.BookingReference, b.ReservationToken)
	}

	var fresh timeslotModel.TimeSlot
	db.First(&fresh, slot.ID)
	if fresh.BookedSpots != 4 {
		t.Fatalf("expected booked=4, got %d", fresh.BookedSpots)
	}

	var reservation bookingModel.SlotReservation
	if err := db.Where("token = ?", b.ReservationToken).First(&reservation).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}
	if reservation.BookingID == nil || *reservation.BookingID != b.ID {
		t.Fatalf("expected reservation linked to booking %d, got %+v", b.ID, reservation)
	}

	var events int64
	db.Table("booking_status_events").Where("booking_id = ? AND event_type = ?", b.ID, "created").Count(&events)
	if events != 1 {
		t.Fatalf("expected one created event, got %d", events)
	}
}

func TestCreatePending_CapacityExceededRollsBack(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 3)

	if _, err := svc.CreatePending(validInput(slot.ID, 2)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreatePending(validInput(slot.ID, 2)); !errors.Is(err, capacity.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	var count int64
	db.Model(&bookingModel.Booking{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one booking after rollback, got %d", count)
	}

	var fresh timeslotModel.TimeSlot
	db.First(&fresh, slot.ID)
	if fresh.BookedSpots != 2 {
		t.Fatalf("expected booked=2 after rollback, got %d", fresh.BookedSpots)
	}
}

func TestMarkConfirmed_IssuesTicketOnce(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	b, err := svc.CreatePending(validInput(slot.ID, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	charge := "chrg_test_1"
	confirmed, err := svc.MarkConfirmed(b.ID, &charge, "payment-webhook")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != bookingModel.BookingStatusConfirmed || confirmed.PaymentStatus != bookingModel.PaymentStatusPaid {
		t.Fatalf("expected confirmed/paid, got %s/%s", confirmed.Status, confirmed.PaymentStatus)
	}
	if confirmed.TicketQRCode == nil || *confirmed.TicketQRCode == "" {
		t.Fatalf("expected ticket code issued")
	}
	if confirmed.ConfirmedAt == nil {
		t.Fatalf("expected confirmed_at set")
	}
	firstTicket := *confirmed.TicketQRCode

	// A retried confirmation keeps the same ticket and does not move capacity.
	again, err := svc.MarkConfirmed(b.ID, &charge, "payment-webhook")
	if err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}
	if again.TicketQRCode == nil || *again.TicketQRCode != firstTicket {
		t.Fatalf("expected ticket %q preserved, got %v", firstTicket, again.TicketQRCode)
	}

	var fresh timeslotModel.TimeSlot
	db.First(&fresh, slot.ID)
	if fresh.BookedSpots != 2 {
		t.Fatalf("expected booked=2 unchanged, got %d", fresh.BookedSpots)
	}
}

func TestMarkConfirmed_CancelledBooking(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	b, err := svc.CreatePending(validInput(slot.ID, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Cancel(b.ID, "payment window expired", "sweeper"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.MarkConfirmed(b.ID, nil, "payment-webhook"); !errors.Is(err, ErrBookingCancelled) {
		t.Fatalf("expected ErrBookingCancelled, got %v", err)
	}
}

func TestCancel_PendingReleasesCapacity(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	b, err := svc.CreatePending(validInput(slot.ID, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := svc.Cancel(b.ID, "changed plans", "traveler")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != bookingModel.BookingStatusCancelled || cancelled.PaymentStatus != bookingModel.PaymentStatusFailed {
		t.Fatalf("expected cancelled/failed, got %s/%s", cancelled.Status, cancelled.PaymentStatus)
	}
	if cancelled.CancelReason == nil || *cancelled.CancelReason != "changed plans" {
		t.Fatalf("expected cancel reason recorded, got %v", cancelled.CancelReason)
	}

	var fresh timeslotModel.TimeSlot
	db.First(&fresh, slot.ID)
	if fresh.BookedSpots != 0 {
		t.Fatalf("expected spots released, got booked=%d", fresh.BookedSpots)
	}
}

func TestCancel_SecondCancelIsNoOp(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	b, err := svc.CreatePending(validInput(slot.ID, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Cancel(b.ID, "changed plans", "traveler"); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := svc.Cancel(b.ID, "changed plans", "traveler"); err != nil {
		t.Fatalf("second cancel must be a no-op, got %v", err)
	}

	// The release must not have been applied twice.
	var fresh timeslotModel.TimeSlot
	db.First(&fresh, slot.ID)
	if fresh.BookedSpots != 0 {
		t.Fatalf("expected booked=0, got %d", fresh.BookedSpots)
	}

	var events int64
	db.Table("booking_status_events").Where("booking_id = ? AND event_type = ?", b.ID, "cancelled").Count(&events)
	if events != 1 {
		t.Fatalf("expected one cancelled event, got %d", events)
	}
}

func TestCancel_PaidBookingRefundsAndReversesTransfer(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	b, err := svc.CreatePending(validInput(slot.ID, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	charge := "chrg_test_2"
	if _, err := svc.MarkConfirmed(b.ID, &charge, "payment-webhook"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// The guide payout already went through before the traveler cancelled.
	if err := svc.SetLegacyTransferStatus(db, b, "completed"); err != nil {
		t.Fatalf("set transfer: %v", err)
	}

	cancelled, err := svc.Cancel(b.ID, "weather warning", "guide")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if cancelled.PaymentStatus != bookingModel.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", cancelled.PaymentStatus)
	}
	// The refund is pending until the processor confirms it via webhook.
	if cancelled.RefundStatus == nil || *cancelled.RefundStatus != "pending" {
		t.Fatalf("expected legacy refund 'pending', got %v", cancelled.RefundStatus)
	}
	if cancelled.RefundStatusNew != bookingModel.RefundStatusPending {
		t.Fatalf("expected refund enum pending, got %s", cancelled.RefundStatusNew)
	}
	if cancelled.TransferStatus == nil || *cancelled.TransferStatus != "reversed" {
		t.Fatalf("expected legacy transfer 'reversed', got %v", cancelled.TransferStatus)
	}
	if cancelled.TransferStatusNew != bookingModel.TransferStatusReversed {
		t.Fatalf("expected transfer enum reversed, got %s", cancelled.TransferStatusNew)
	}

	var fresh timeslotModel.TimeSlot
	db.First(&fresh, slot.ID)
	if fresh.BookedSpots != 0 {
		t.Fatalf("expected spots released on refund, got booked=%d", fresh.BookedSpots)
	}

	var events int64
	db.Table("booking_status_events").Where("booking_id = ? AND event_type = ?", b.ID, "refunded").Count(&events)
	if events != 1 {
		t.Fatalf("expected one refunded event, got %d", events)
	}

	// The refund.create webhook settles the columns once the money moved.
	if err := svc.SetLegacyRefundStatus(db, cancelled, "succeeded"); err != nil {
		t.Fatalf("settle refund: %v", err)
	}
	settled, err := svc.GetByID(b.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if settled.RefundStatus == nil || *settled.RefundStatus != "succeeded" {
		t.Fatalf("expected legacy refund 'succeeded', got %v", settled.RefundStatus)
	}
	if settled.RefundStatusNew != bookingModel.RefundStatusSucceeded {
		t.Fatalf("expected refund enum succeeded, got %s", settled.RefundStatusNew)
	}
}

func TestSetLegacyRefundStatus_WritesBothColumns(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	b, err := svc.CreatePending(validInput(slot.ID, 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SetLegacyRefundStatus(db, b, "Processing"); err != nil {
		t.Fatalf("set refund: %v", err)
	}

	var fresh bookingModel.Booking
	db.First(&fresh, b.ID)
	if fresh.RefundStatus == nil || *fresh.RefundStatus != "Processing" {
		t.Fatalf("expected legacy text preserved verbatim, got %v", fresh.RefundStatus)
	}
	if fresh.RefundStatusNew != bookingModel.RefundStatusPending {
		t.Fatalf("expected enum pending, got %s", fresh.RefundStatusNew)
	}
}

func TestSyncLegacyStatusFields_RepairsDrift(t *testing.T) {
	svc, db := newTestService(t)
	slot := seedTourAndSlot(t, db, 500, 10)

	b, err := svc.CreatePending(validInput(slot.ID, 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate an old writer that only touched the legacy columns.
	if err := db.Model(&bookingModel.Booking{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
		"refund_status":   "SUCCESS",
		"transfer_status": "reverse",
	}).Error; err != nil {
		t.Fatalf("drift: %v", err)
	}

	synced, err := svc.SyncLegacyStatusFields(b.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if synced.RefundStatusNew != bookingModel.RefundStatusSucceeded {
		t.Fatalf("expected refund enum succeeded, got %s", synced.RefundStatusNew)
	}
	if synced.TransferStatusNew != bookingModel.TransferStatusReversed {
		t.Fatalf("expected transfer enum reversed, got %s", synced.TransferStatusNew)
	}
}
