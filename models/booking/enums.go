package booking

import "strings"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (bs BookingStatus) String() string {
	return string(bs)
}

func (bs BookingStatus) IsValid() bool {
	switch bs {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once a booking can no longer change status.
// No transition re-enters pending.
func (bs BookingStatus) IsTerminal() bool {
	return bs == BookingStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (ps PaymentStatus) String() string {
	return string(ps)
}

func (ps PaymentStatus) IsValid() bool {
	switch ps {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// RefundStatus is the normalized counterpart of the legacy refund_status
// text column.
type RefundStatus string

const (
	RefundStatusNotRequired RefundStatus = "not_required"
	RefundStatusPending     RefundStatus = "pending"
	RefundStatusSucceeded   RefundStatus = "succeeded"
	RefundStatusFailed      RefundStatus = "failed"
)

// TransferStatus is the normalized counterpart of the legacy transfer_status
// text column (guide payout state).
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
	TransferStatusReversed  TransferStatus = "reversed"
)

// MapLegacyRefundStatus derives the refund enum from a legacy text value.
// Matching is case-insensitive; unrecognized or empty values map to
// not_required.
func MapLegacyRefundStatus(legacy *string) RefundStatus {
	if legacy == nil {
		return RefundStatusNotRequired
	}
	switch strings.ToLower(strings.TrimSpace(*legacy)) {
	case "succeeded", "success":
		return RefundStatusSucceeded
	case "failed", "failure":
		return RefundStatusFailed
	case "pending", "processing":
		return RefundStatusPending
	default:
		return RefundStatusNotRequired
	}
}

// MapLegacyTransferStatus derives the transfer enum from a legacy text value.
// Matching is case-insensitive; unrecognized or empty values map to pending.
func MapLegacyTransferStatus(legacy *string) TransferStatus {
	if legacy == nil {
		return TransferStatusPending
	}
	switch strings.ToLower(strings.TrimSpace(*legacy)) {
	case "completed", "complete", "succeeded", "success":
		return TransferStatusCompleted
	case "failed", "failure":
		return TransferStatusFailed
	case "reversed", "reverse":
		return TransferStatusReversed
	default:
		return TransferStatusPending
	}
}
