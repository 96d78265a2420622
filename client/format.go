package client

import (
	"fmt"
	"time"
)

// FormatFavoriteCount is the popularity line shown on result cards.
func FormatFavoriteCount(count int) string {
	if count <= 1 {
		return fmt.Sprintf("%d Partner Loves This", count)
	}
	return fmt.Sprintf("%d Partners Love This", count)
}

// FormatDate renders a comment timestamp like "Mar 1, 2025, 02:30 PM" in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("Jan 2, 2006, 03:04 PM")
}
