package crime

import (
	"fmt"
	"time"
)

// YearMonth addresses one month of the grid.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Before reports whether ym is earlier than o.
func (ym YearMonth) Before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

// Previous returns the calendar month before ym.
func (ym YearMonth) Previous() YearMonth {
	y, m := PreviousMonth(ym.Year, ym.Month)
	return YearMonth{Year: y, Month: m}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// PreviousMonth returns the calendar month before (year, month), rolling back
// into December of the prior year for January. month must be 1-12.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// MonthLabel returns the three-letter English abbreviation for month.
func MonthLabel(month int) string {
	return time.Month(month).String()[:3]
}
