package main

import (
	"fmt"
	"math"
	"time"
)

// humanizeUntil renders the distance from now to t the way the study prompt
// shows intervals: "now", "10m", "3h", "4d", "2.5mo".
func humanizeUntil(t, now time.Time) string {
	d := t.Sub(now)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(math.Round(d.Minutes())))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(math.Round(d.Hours())))
	}
	days := d.Hours() / 24
	switch {
	case days < 30:
		return fmt.Sprintf("%dd", int(math.Round(days)))
	case days < 365:
		return fmt.Sprintf("%.1fmo", days/30)
	default:
		return fmt.Sprintf("%.1fy", days/365)
	}
}
