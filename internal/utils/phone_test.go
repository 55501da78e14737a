package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"010-1234-5678", "010-1234-5678", true},
		{"01012345678", "010-1234-5678", true},
		{"010 1234 5678", "010-1234-5678", true},
		{"010.1234.5678", "010-1234-5678", true},
		{"02-1234-5678", "", false},
		{"011-1234-5678", "", false},
		{"010-1234-567", "", false},
		{"010-1234-56789", "", false},
		{"", "", false},
		{"abc", "", false},
	}

	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("NormalizePhone(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("NormalizePhone(%q) expected error, got %q", tc.in, got)
		}
		if got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"010-1234-5678", "010-****-5678"},
		{"010-9000-0000", "010-****-0000"},
		// Anything outside the canonical shape passes through.
		{"01012345678", "01012345678"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskPhone(tc.in); got != tc.want {
			t.Fatalf("MaskPhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
