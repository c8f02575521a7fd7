package emergency

import "fmt"

// FormatRemaining renders a millisecond duration for humans, e.g. "25d 3h" or "42m".
func FormatRemaining(ms int64) string {
	if ms <= 0 {
		return "0d 0h"
	}

	totalSeconds := ms / 1000
	days := totalSeconds / (24 * 3600)
	hours := (totalSeconds % (24 * 3600)) / 3600
	minutes := (totalSeconds % 3600) / 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
