package sparkplug

import "time"

// msToTime converts an epoch-millisecond timestamp to a time.Time in
// UTC, the convention used throughout Metric/Publishable timestamps.
func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
