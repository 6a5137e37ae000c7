package utils

import "testing"

func TestIsValidPaymentMethod(t *testing.T) {
	for _, m := range []string{"cash", "zelle", "transfer", "card", "other"} {
		if !IsValidPaymentMethod(m) {
			t.Errorf("expected %q to be valid", m)
		}
	}
	for _, m := range []string{"", "bitcoin", "CASH"} {
		if IsValidPaymentMethod(m) {
			t.Errorf("expected %q to be invalid", m)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Art", "art"},
		{"Ballet Intermedio", "ballet-intermedio"},
		{"  Música y Canto  ", "m-sica-y-canto"},
		{"Robotics 101", "robotics-101"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Slugify(tc.input); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  "); got != "helloworld" {
		t.Errorf("unexpected sanitized value %q", got)
	}
}
