package gallery

import (
	"fmt"
	"time"
)

// FormatSize renders a byte count as B, KB or MB with one decimal.
func FormatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	kb := float64(n) / 1024
	if kb < 1024 {
		return fmt.Sprintf("%.1f KB", kb)
	}
	return fmt.Sprintf("%.1f MB", kb/1024)
}

// FormatDate renders the calendar date of t in loc, e.g. "Jan 2, 2006".
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("Jan 2, 2006")
}
