package slipverify

import (
	"testing"
)

func TestParseSlipResponse(t *testing.T) {
	payload := `{"amount": 1500.50, "currency": "THB", "sender_name": "Somchai T", "transfer_ref": "FT2609120001", "transferred_at": "2026-09-12 09:41"}`

	cases := []struct {
		name string
		text string
	}{
		{"bare json", payload},
		{"json fence", "```json\n" + payload + "\n```"},
		{"plain fence", "```\n" + payload + "\n```"},
		{"padded", "  \n" + payload + "\n  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := parseSlipResponse(tc.text)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if data.Amount != 1500.50 || data.Currency != "THB" {
				t.Fatalf("unexpected data: %+v", data)
			}
			if data.TransferRef != "FT2609120001" {
				t.Fatalf("unexpected transfer ref %q", data.TransferRef)
			}
		})
	}

	if _, err := parseSlipResponse("sorry, I cannot read this image"); err == nil {
		t.Fatalf("expected error on non-JSON response")
	}
}

func TestAmountsMatch(t *testing.T) {
	cases := []struct {
		a, b float64
		want bool
	}{
		{1500.50, 1500.50, true},
		{1500.504, 1500.50, true},
		{1500.51, 1500.50, false},
		{1499.00, 1500.50, false},
		{0, 0, true},
	}
	for _, tc := range cases {
		if got := amountsMatch(tc.a, tc.b); got != tc.want {
			t.Fatalf("amountsMatch(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestGenerateRequestID(t *testing.T) {
	s := &Service{}
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := s.GenerateRequestID()
		if len(id) != 24 {
			t.Fatalf("expected 24 characters, got %d (%q)", len(id), id)
		}
		for _, r := range id {
			if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
				t.Fatalf("non-hex character %q in %q", r, id)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}
