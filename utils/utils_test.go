package utils

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateBookingReference(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref, err := GenerateBookingReference()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(ref) != 11 || !strings.HasPrefix(ref, "TB-") {
			t.Fatalf("unexpected reference format: %q", ref)
		}
		for _, r := range ref[3:] {
			if !strings.ContainsRune(referenceAlphabet, r) {
				t.Fatalf("reference %q contains %q outside the alphabet", ref, r)
			}
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q in 50 draws", ref)
		}
		seen[ref] = true
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{"+66812345678", "0812345678", " +447911123456 ", "12345678"}
	for _, p := range valid {
		if !ValidatePhoneNumber(p) {
			t.Fatalf("expected %q to be valid", p)
		}
	}

	invalid := []string{"", "not-a-phone", "+66 81 234 5678", "1234567", "12345678901234567", "++66812345678"}
	for _, p := range invalid {
		if ValidatePhoneNumber(p) {
			t.Fatalf("expected %q to be rejected", p)
		}
	}
}

func TestFormatSlotWindow(t *testing.T) {
	start := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	got := FormatSlotWindow(start, start.Add(2*time.Hour))
	want := "2026-09-12 09:00 to 11:00"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
