package capacity

import (
	"errors"
	"fmt"
	"time"

	"tour-booking/logger"
	bookingModel "tour-booking/models/booking"
	timeslotModel "tour-booking/models/timeslot"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The reconciler is the only code allowed to mutate TimeSlot.BookedSpots.
// Both directions go through a single guarded UPDATE so concurrent requests
// against the same slot serialize at the storage layer: zero rows affected
// means the guard rejected the change, never that the change half-applied.
var (
	ErrSlotNotFound     = errors.New("time slot not found")
	ErrSlotCancelled    = errors.New("time slot is cancelled")
	ErrCapacityExceeded = errors.New("requested spots exceed remaining capacity")
	ErrAlreadyReleased  = errors.New("reservation already released")
	ErrInvalidState     = errors.New("slot counter in invalid state")
)

// Availability is the public projection of a slot's capacity state.
type Availability struct {
	TimeSlotID  uint `json:"time_slot_id"`
	Capacity    int  `json:"capacity"`
	BookedSpots int  `json:"booked_spots"`
	Remaining   int  `json:"remaining"`
}

// Reconciler owns the reserve/release discipline for slot capacity.
type Reconciler struct {
	DB *gorm.DB
}

// NewReconciler creates a new capacity reconciler
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{DB: db}
}

// GetAvailability answers the remaining capacity for a slot. Missing and
// cancelled slots both surface as errors (a cancelled slot has nothing left
// to sell).
func (r *Reconciler) GetAvailability(slotID uint) (*Availability, error) {
	var slot timeslotModel.TimeSlot
	if err := r.DB.First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("load time slot %d: %w", slotID, err)
	}

	if slot.Status == timeslotModel.TimeSlotStatusCancelled {
		return nil, ErrSlotCancelled
	}

	return &Availability{
		TimeSlotID:  slot.ID,
		Capacity:    slot.Capacity,
		BookedSpots: slot.BookedSpots,
		Remaining:   slot.Remaining(),
	}, nil
}

// Reserve atomically takes participants spots on the slot and records a
// reservation token. The guard condition keeps booked_spots <= capacity even
// under concurrent callers; the losing caller on the last spot gets
// ErrCapacityExceeded and must re-query availability before retrying.
func (r *Reconciler) Reserve(tx *gorm.DB, slotID uint, participants int) (string, error) {
	if participants <= 0 {
		return "", fmt.Errorf("reserve: participants must be positive, got %d", participants)
	}

	res := tx.Model(&timeslotModel.TimeSlot{}).
		Where("id = ? AND status = ? AND booked_spots + ? <= capacity",
			slotID, timeslotModel.TimeSlotStatusAvailable, participants).
		UpdateColumn("booked_spots", gorm.Expr("booked_spots + ?", participants))
	if res.Error != nil {
		return "", fmt.Errorf("reserve %d spots on slot %d: %w", participants, slotID, res.Error)
	}

	if res.RowsAffected == 0 {
		// The guard rejected the update; find out which way.
		var slot timeslotModel.TimeSlot
		if err := tx.First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrSlotNotFound
			}
			return "", fmt.Errorf("inspect slot %d after rejected reserve: %w", slotID, err)
		}
		if slot.Status == timeslotModel.TimeSlotStatusCancelled {
			return "", ErrSlotCancelled
		}
		return "", ErrCapacityExceeded
	}

	reservation := bookingModel.SlotReservation{
		Token:        uuid.NewString(),
		TimeSlotID:   slotID,
		Participants: participants,
	}
	if err := tx.Create(&reservation).Error; err != nil {
		return "", fmt.Errorf("record reservation for slot %d: %w", slotID, err)
	}

	return reservation.Token, nil
}

// Release gives a reservation's spots back to its slot. The token row is
// consumed exactly once: a retried webhook that releases again observes
// ErrAlreadyReleased and the counter is untouched.
func (r *Reconciler) Release(tx *gorm.DB, token string) error {
	var reservation bookingModel.SlotReservation
	if err := tx.Where("token = ?", token).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("release token %s: %w", token, ErrAlreadyReleased)
		}
		return fmt.Errorf("load reservation %s: %w", token, err)
	}

	now := time.Now()
	consumed := tx.Model(&bookingModel.SlotReservation{}).
		Where("token = ? AND released = ?", token, false).
		Updates(map[string]interface{}{"released": true, "released_at": now})
	if consumed.Error != nil {
		return fmt.Errorf("consume reservation %s: %w", token, consumed.Error)
	}
	if consumed.RowsAffected == 0 {
		return ErrAlreadyReleased
	}

	res := tx.Model(&timeslotModel.TimeSlot{}).
		Where("id = ? AND booked_spots - ? >= 0", reservation.TimeSlotID, reservation.Participants).
		UpdateColumn("booked_spots", gorm.Expr("booked_spots - ?", reservation.Participants))
	if res.Error != nil {
		return fmt.Errorf("release %d spots on slot %d: %w", reservation.Participants, reservation.TimeSlotID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Counter would have gone negative: this is a bug, not a condition to
		// clamp away. Reject the operation and leave the evidence in place.
		logger.Error(fmt.Sprintf(
			"invariant violation: releasing %d spots on slot %d would drive booked_spots negative (token %s)",
			reservation.Participants, reservation.TimeSlotID, token), nil)
		return ErrInvalidState
	}

	return nil
}
