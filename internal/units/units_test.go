package units

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "00:00"},
		{"sub-second truncates", 999 * time.Millisecond, "00:00"},
		{"one minute five", 65 * time.Second, "01:05"},
		{"truncates not rounds", 65*time.Second + 900*time.Millisecond, "01:05"},
		{"just under an hour", time.Hour - time.Second, "59:59"},
		{"exactly an hour", time.Hour, " 1:00:00"},
		{"hours path", 3725 * time.Second, " 1:02:05"},
		{"two digit hours", 12*time.Hour + 3*time.Minute + 4*time.Second, "12:03:04"},
		{"three digit hours widen", 100 * time.Hour, "100:00:00"},
		{"negative clamps", -5 * time.Second, "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(2500 * time.Millisecond); got != 2 {
		t.Errorf("Seconds(2.5s) = %d, want 2", got)
	}
}
