package helpers

import "time"

// ToEpoch converts an ISO 8601 / RFC 3339 timestamp to epoch seconds.
// Empty or unparseable input yields 0.
func ToEpoch(iso string) int64 {
	if iso == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return 0
	}
	return t.Unix()
}
