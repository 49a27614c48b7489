package utils

import "testing"

const testKey = "pass-phrase-of-32-bytes-exactly!"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	account := "123-4-56789-0"

	enc, err := EncryptData(testKey, account)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if enc == account {
		t.Fatal("ciphertext equals plaintext")
	}

	dec, err := DecryptData(testKey, enc)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if dec != account {
		t.Fatalf("expected %q back, got %q", account, dec)
	}

	// GCM nonces make every ciphertext unique.
	enc2, err := EncryptData(testKey, account)
	if err != nil {
		t.Fatalf("encrypt again: %v", err)
	}
	if enc2 == enc {
		t.Fatal("expected distinct ciphertexts for the same plaintext")
	}
}

func TestDecryptDataRejectsWrongKey(t *testing.T) {
	enc, err := EncryptData(testKey, "987-6-54321-0")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := DecryptData("diff-phrase-of-32-bytes-exactly!", enc); err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
}

func TestEncryptDataRejectsBadKey(t *testing.T) {
	if _, err := EncryptData("short", "anything"); err == nil {
		t.Fatal("expected an error for a key that is not 32 bytes")
	}
}

func TestMaskAccountNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234567890", "****7890"},
		{"123-4-56789-0", "****89-0"},
		{"1234", "1234"},
		{"", ""},
	}
	for _, c := range cases {
		if got := MaskAccountNumber(c.in); got != c.want {
			t.Fatalf("MaskAccountNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
