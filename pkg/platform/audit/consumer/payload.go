package consumer

import "time"

// eventTimestamp parses the payload's RFC3339Nano timestamp, falling back
// to the consume time when absent or malformed. Audit rows always carry a
// timestamp; readers tolerate the skew on fallback.
func eventTimestamp(raw string) time.Time {
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts
		}
	}
	return time.Now()
}
