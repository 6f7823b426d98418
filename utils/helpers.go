package utils

// IsValidInterval reports whether the traffic-over-time bucket size is
// one the stats engine supports.
func IsValidInterval(interval string) bool {
	switch interval {
	case "", "day", "hour":
		return true
	default:
		return false
	}
}
