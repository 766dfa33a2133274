package store

import "time"

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(v float64) time.Time {
	return time.Unix(0, int64(v*1e9)).UTC()
}
