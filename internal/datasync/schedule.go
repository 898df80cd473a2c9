package datasync

import "time"

// MonthlySchedule returns true if an area needs a refresh. The datastore
// publishes a month's totals once, so one successful sync per calendar month
// is enough.
func MonthlySchedule(now time.Time, lastSync *time.Time) bool {
	if lastSync == nil {
		return true
	}
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return lastSync.Before(thisMonth)
}
