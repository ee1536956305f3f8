// Package timeutil provides display formatting for timestamps.
package timeutil

import (
	"fmt"
	"time"
)

// absoluteLayout renders e.g. "June 05, 2025 at 3:04 pm".
const absoluteLayout = "January 02, 2006 at 3:04 pm"

// RelativeTime maps a timestamp to the feed's human-readable age string.
// Pure: the result depends only on (now, t).
//
// Thresholds: under a minute "Just now"; exactly one minute "1 minute ago";
// under an hour "N minutes ago"; exactly one hour "1 hour ago"; under a day
// "N hours ago"; under two days "Yesterday"; otherwise an absolute date.
func RelativeTime(now, t time.Time) string {
	hours := int(now.Sub(t).Hours())

	if hours < 1 {
		minutes := int(now.Sub(t).Minutes())
		if minutes < 1 {
			return "Just now"
		}
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	}

	if hours < 24 {
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}

	if hours < 48 {
		return "Yesterday"
	}
	return t.Format(absoluteLayout)
}
