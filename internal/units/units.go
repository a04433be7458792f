// Package units provides display formatting for hold durations.
package units

import (
	"fmt"
	"time"
)

// FormatDuration renders d as MM:SS below one hour and as H:MM:SS (hours
// space-padded to two columns) from one hour on. Partial seconds are
// truncated; negative durations render as zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	seconds := total % 60
	minutes := (total / 60) % 60
	hours := total / 3600
	if hours == 0 {
		return fmt.Sprintf("%02d:%02d", minutes, seconds)
	}
	return fmt.Sprintf("%2d:%02d:%02d", hours, minutes, seconds)
}

// Seconds converts a duration to whole seconds, truncating.
func Seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
