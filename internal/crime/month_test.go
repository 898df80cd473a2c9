package crime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreviousMonth(t *testing.T) {
	tests := []struct {
		name         string
		year, month  int
		wantY, wantM int
	}{
		{"january wraps", 2021, 1, 2020, 12},
		{"mid year", 2021, 7, 2021, 6},
		{"december", 2021, 12, 2021, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m := PreviousMonth(tt.year, tt.month)
			assert.Equal(t, tt.wantY, y)
			assert.Equal(t, tt.wantM, m)
		})
	}
}

func TestYearMonth(t *testing.T) {
	a := YearMonth{Year: 2020, Month: 12}
	b := YearMonth{Year: 2021, Month: 1}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.Equal(t, a, b.Previous())
	assert.Equal(t, "2021-01", b.String())
	assert.Equal(t, "Jan", MonthLabel(1))
	assert.Equal(t, "Dec", MonthLabel(12))
}
