package core

import "time"

// MonthBucket is one month of aggregated spending.
type MonthBucket struct {
	Year  int
	Month time.Month
	Total Money
	Count int64
}

// AllTimeStats aggregates the complete, unfiltered record set for a user.
// Monthly holds the most recent twelve calendar months, newest first.
type AllTimeStats struct {
	Total   Money
	Count   int64
	First   time.Time
	Last    time.Time
	Monthly []MonthBucket
}

// WindowStats aggregates records created at or after Since (the per-user
// reset watermark).
type WindowStats struct {
	Total Money
	Count int64
	First time.Time
	Last  time.Time
	Since time.Time
}
