package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tour-booking/logger"
	notificationModel "tour-booking/models/notification"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
)

// Notifier delivers a composed message over one channel (email, WhatsApp).
type Notifier interface {
	Notify(recipient, subject, message string) error
}

// ConsoleNotifier logs deliveries; stands in for real email/WhatsApp senders
// in development.
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (n *ConsoleNotifier) Notify(recipient, subject, message string) error {
	logger.Info(fmt.Sprintf("[notify] to=%s :: %s :: %s", recipient, subject, message))
	return nil
}

// Deliveries is the MQ side the worker drains (satisfied by mq.Consumer).
type Deliveries interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Worker drains booking events and flushes the matching queued notification
// rows. The database rows are the source of truth; the MQ delivery is only
// the wake-up signal, so a periodic drain also picks up rows whose event was
// lost.
type Worker struct {
	DB        *gorm.DB
	Consumer  Deliveries
	Notifiers map[notificationModel.NotificationChannel]Notifier
}

// NewWorker creates a notification worker with the given channel senders.
func NewWorker(db *gorm.DB, consumer Deliveries, notifiers map[notificationModel.NotificationChannel]Notifier) *Worker {
	return &Worker{DB: db, Consumer: consumer, Notifiers: notifiers}
}

// Run blocks until ctx is done. Started from main in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	var deliveries <-chan amqp.Delivery
	if w.Consumer != nil {
		ch, err := w.Consumer.Deliveries(ctx)
		if err != nil {
			logger.Error("Notification worker could not consume deliveries, falling back to polling", err)
		} else {
			deliveries = ch
		}
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				deliveries = nil
				continue
			}
			w.handleDelivery(d)
		case <-ticker.C:
			w.DrainPending()
		}
	}
}

func (w *Worker) handleDelivery(d amqp.Delivery) {
	var msg BookingEventMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Error("Notification worker received malformed event", err)
		_ = d.Nack(false, false)
		return
	}

	w.flushForBooking(msg.Data.BookingID)
	_ = d.Ack(false)
}

// DrainPending attempts delivery for every pending or retryable row.
func (w *Worker) DrainPending() {
	var rows []notificationModel.Notification
	err := w.DB.
		Where("status = ? OR (status = ? AND retry_count < max_retries)",
			notificationModel.StatusPending, notificationModel.StatusFailed).
		Order("created_at ASC").
		Limit(100).
		Find(&rows).Error
	if err != nil {
		logger.Error("Notification worker failed to load pending rows", err)
		return
	}

	for i := range rows {
		w.attempt(&rows[i])
	}
}

func (w *Worker) flushForBooking(bookingID uint) {
	var rows []notificationModel.Notification
	err := w.DB.
		Where("booking_id = ? AND status <> ?", bookingID, notificationModel.StatusSent).
		Find(&rows).Error
	if err != nil {
		logger.Error(fmt.Sprintf("Notification worker failed to load rows for booking %d", bookingID), err)
		return
	}

	for i := range rows {
		w.attempt(&rows[i])
	}
}

func (w *Worker) attempt(row *notificationModel.Notification) {
	if !row.CanRetry() && row.Status == notificationModel.StatusFailed {
		return
	}

	notifier, ok := w.Notifiers[row.Channel]
	if !ok {
		logger.Warning(fmt.Sprintf("No notifier configured for channel %s, skipping notification %d", row.Channel, row.ID))
		return
	}

	if err := notifier.Notify(row.Recipient, row.Subject, row.Body); err != nil {
		row.Status = notificationModel.StatusFailed
		row.RetryCount++
		errMsg := err.Error()
		row.LastError = &errMsg
		if saveErr := w.DB.Save(row).Error; saveErr != nil {
			logger.Error(fmt.Sprintf("Failed to record notification failure %d", row.ID), saveErr)
		}
		return
	}

	now := time.Now()
	row.Status = notificationModel.StatusSent
	row.SentAt = &now
	row.LastError = nil
	if err := w.DB.Save(row).Error; err != nil {
		logger.Error(fmt.Sprintf("Failed to mark notification %d sent", row.ID), err)
	}
}
