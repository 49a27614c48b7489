package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	bookingModel "tour-booking/models/booking"
	notificationModel "tour-booking/models/notification"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	err = db.Exec(`CREATE TABLE notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		booking_id INTEGER,
		channel TEXT NOT NULL,
		recipient TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		retry_count INTEGER DEFAULT 0,
		max_retries INTEGER DEFAULT 3,
		last_error TEXT,
		sent_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`).Error
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}

	return db
}

type capturingPublisher struct {
	keys []string
}

func (p *capturingPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.keys = append(p.keys, key)
	return nil
}

type recordingNotifier struct {
	sent []string
	fail bool
}

func (n *recordingNotifier) Notify(recipient, subject, message string) error {
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.sent = append(n.sent, recipient)
	return nil
}

func sampleBooking() *bookingModel.Booking {
	phone := "+66811112222"
	ticket := "TKT-9-abc"
	return &bookingModel.Booking{
		ID:               9,
		BookingReference: "TB-TESTREF9",
		TimeSlotID:       4,
		Participants:     2,
		ContactName:      "Nok S",
		ContactEmail:     "nok@example.com",
		ContactPhone:     &phone,
		Status:           bookingModel.BookingStatusConfirmed,
		PaymentStatus:    bookingModel.PaymentStatusPaid,
		TicketQRCode:     &ticket,
	}
}

func TestEnqueueBookingEvent_WritesRowsAndPublishes(t *testing.T) {
	db := openTestDB(t)
	pub := &capturingPublisher{}
	svc := NewService(db, pub)

	svc.EnqueueBookingEvent(sampleBooking(), KeyBookingConfirmed, "")

	var rows []notificationModel.Notification
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected email + whatsapp rows, got %d", len(rows))
	}
	if rows[0].Channel != notificationModel.ChannelEmail || rows[0].Recipient != "nok@example.com" {
		t.Fatalf("unexpected email row: %+v", rows[0])
	}
	if rows[1].Channel != notificationModel.ChannelWhatsApp || rows[1].Recipient != "+66811112222" {
		t.Fatalf("unexpected whatsapp row: %+v", rows[1])
	}
	if rows[0].Status != notificationModel.StatusPending {
		t.Fatalf("expected pending, got %s", rows[0].Status)
	}

	if len(pub.keys) != 1 || pub.keys[0] != KeyBookingConfirmed {
		t.Fatalf("expected one %s publish, got %v", KeyBookingConfirmed, pub.keys)
	}
}

func TestEnqueueBookingEvent_NilPublisherStillQueues(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db, nil)

	b := sampleBooking()
	b.ContactPhone = nil
	svc.EnqueueBookingEvent(b, KeyBookingCancelled, "guide cancelled the slot")

	var rows []notificationModel.Notification
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the email row, got %d", len(rows))
	}
}

func TestDrainPending_DeliversAndMarksSent(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db, nil)
	svc.EnqueueBookingEvent(sampleBooking(), KeyBookingConfirmed, "")

	email := &recordingNotifier{}
	wa := &recordingNotifier{}
	w := NewWorker(db, nil, map[notificationModel.NotificationChannel]Notifier{
		notificationModel.ChannelEmail:    email,
		notificationModel.ChannelWhatsApp: wa,
	})

	w.DrainPending()

	if len(email.sent) != 1 || len(wa.sent) != 1 {
		t.Fatalf("expected one delivery per channel, got email=%d whatsapp=%d", len(email.sent), len(wa.sent))
	}

	var rows []notificationModel.Notification
	db.Find(&rows)
	for _, row := range rows {
		if row.Status != notificationModel.StatusSent || row.SentAt == nil {
			t.Fatalf("expected sent with timestamp, got %+v", row)
		}
	}

	// A second drain must not resend already-sent rows.
	w.DrainPending()
	if len(email.sent) != 1 {
		t.Fatalf("expected no redelivery, got %d", len(email.sent))
	}
}

func TestDrainPending_RetriesUntilExhausted(t *testing.T) {
	db := openTestDB(t)

	row := notificationModel.Notification{
		Channel:    notificationModel.ChannelEmail,
		Recipient:  "nok@example.com",
		Subject:    "Booking TB-TESTREF9 confirmed",
		Body:       "Hi Nok",
		MaxRetries: 2,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed row: %v", err)
	}

	failing := &recordingNotifier{fail: true}
	w := NewWorker(db, nil, map[notificationModel.NotificationChannel]Notifier{
		notificationModel.ChannelEmail: failing,
	})

	for i := 0; i < 4; i++ {
		w.DrainPending()
	}

	var after notificationModel.Notification
	db.First(&after, row.ID)
	if after.Status != notificationModel.StatusFailed {
		t.Fatalf("expected failed, got %s", after.Status)
	}
	if after.RetryCount != 2 {
		t.Fatalf("expected retries capped at 2, got %d", after.RetryCount)
	}
	if after.LastError == nil || *after.LastError != "smtp unreachable" {
		t.Fatalf("expected last error recorded, got %v", after.LastError)
	}
	if after.CanRetry() {
		t.Fatalf("exhausted row must not be retryable")
	}
}

func TestComposeMessage_ConfirmedIncludesWindowAndTicket(t *testing.T) {
	b := sampleBooking()
	b.TimeSlot.StartTime = time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	b.TimeSlot.EndTime = b.TimeSlot.StartTime.Add(2 * time.Hour)

	subject, body := composeMessage(b, KeyBookingConfirmed, "")
	if subject != "Booking TB-TESTREF9 confirmed" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, fragment := range []string{"Nok S", "2026-09-12 09:00 to 11:00", "TKT-9-abc"} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("body %q missing %q", body, fragment)
		}
	}
}
