package model

// Row is one month of per-category incident counts as delivered by a source.
type Row struct {
	Year   int            `json:"year"`
	Month  int            `json:"month"`
	Counts map[string]int `json:"counts"`
}

// Point is one labeled value of a chart series. A nil Value means the
// underlying month had no data, which is not the same as zero incidents.
type Point struct {
	Label string   `json:"label" yaml:"label"`
	Value *float64 `json:"value" yaml:"value"`
}

// NewPoint returns a point holding v.
func NewPoint(label string, v float64) Point {
	return Point{Label: label, Value: &v}
}

// MissingPoint returns a point without a value.
func MissingPoint(label string) Point {
	return Point{Label: label}
}

// CategoryStats is the cached per-category summary for an area's current
// month. Nil fields had no data for one of their inputs.
type CategoryStats struct {
	IncidentsMonth      *int     `json:"incidents_month" yaml:"incidents_month"`
	RateMonth           *float64 `json:"rate_month" yaml:"rate_month"`
	ChangeLastMonth     *float64 `json:"change_last_month" yaml:"change_last_month"`
	ChangeMonthLastYear *float64 `json:"change_month_last_year" yaml:"change_month_last_year"`
}
