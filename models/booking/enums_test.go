package booking

import "testing"

func strPtr(s string) *string { return &s }

func TestMapLegacyRefundStatus(t *testing.T) {
	cases := []struct {
		name   string
		legacy *string
		want   RefundStatus
	}{
		{"nil", nil, RefundStatusNotRequired},
		{"empty", strPtr(""), RefundStatusNotRequired},
		{"succeeded", strPtr("succeeded"), RefundStatusSucceeded},
		{"success uppercase", strPtr("SUCCESS"), RefundStatusSucceeded},
		{"padded", strPtr("  Succeeded  "), RefundStatusSucceeded},
		{"failed", strPtr("failed"), RefundStatusFailed},
		{"failure", strPtr("Failure"), RefundStatusFailed},
		{"pending", strPtr("pending"), RefundStatusPending},
		{"processing", strPtr("Processing"), RefundStatusPending},
		{"unrecognized", strPtr("weird-gateway-value"), RefundStatusNotRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapLegacyRefundStatus(tc.legacy); got != tc.want {
				t.Fatalf("MapLegacyRefundStatus(%v) = %s, want %s", tc.legacy, got, tc.want)
			}
		})
	}
}

func TestMapLegacyTransferStatus(t *testing.T) {
	cases := []struct {
		name   string
		legacy *string
		want   TransferStatus
	}{
		{"nil", nil, TransferStatusPending},
		{"empty", strPtr(""), TransferStatusPending},
		{"completed", strPtr("completed"), TransferStatusCompleted},
		{"complete", strPtr("Complete"), TransferStatusCompleted},
		{"success", strPtr("SUCCESS"), TransferStatusCompleted},
		{"failed", strPtr("failed"), TransferStatusFailed},
		{"reversed", strPtr("reversed"), TransferStatusReversed},
		{"reverse padded", strPtr(" Reverse "), TransferStatusReversed},
		{"unrecognized", strPtr("on-hold"), TransferStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapLegacyTransferStatus(tc.legacy); got != tc.want {
				t.Fatalf("MapLegacyTransferStatus(%v) = %s, want %s", tc.legacy, got, tc.want)
			}
		})
	}
}

func TestBookingStatusIsValid(t *testing.T) {
	for _, s := range []BookingStatus{BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled} {
		if !s.IsValid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if BookingStatus("expired").IsValid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}

func TestBookingStatusIsTerminal(t *testing.T) {
	if !BookingStatusCancelled.IsTerminal() {
		t.Fatalf("cancelled must be terminal")
	}
	if BookingStatusPending.IsTerminal() || BookingStatusConfirmed.IsTerminal() {
		t.Fatalf("pending and confirmed must not be terminal")
	}
}
