package id

import "testing"

func TestNewAccountID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		got, err := NewAccountID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !Valid(got) {
			t.Fatalf("generated invalid ID %q", got)
		}
		seen[got] = true
	}
	if len(seen) < 90 {
		t.Fatalf("suspiciously many collisions: %d unique of 100", len(seen))
	}
}

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"12345678":  true,
		"99999999":  true,
		"01234567":  false, // leading zero
		"1234567":   false, // too short
		"123456789": false, // too long
		"1234567a":  false,
		"":          false,
	}
	for in, want := range cases {
		if got := Valid(in); got != want {
			t.Fatalf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}
