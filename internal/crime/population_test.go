package crime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimatePopulation_Anchors(t *testing.T) {
	p := EstimatePopulation(382618, 382578)

	assert.Equal(t, 382618.0, p.For(2000))
	assert.InDelta(t, 382578.0, p.For(2010), 1e-6)
	assert.Len(t, p, 21)
}

func TestEstimatePopulation_Linear(t *testing.T) {
	p := EstimatePopulation(1000, 2000)

	for y := PopulationFirstYear; y < PopulationLastYear; y++ {
		assert.InDelta(t, 100.0, p.For(y+1)-p.For(y), 1e-9, "year %d", y)
	}
	assert.InDelta(t, 3000.0, p.For(2020), 1e-9)
	assert.InDelta(t, 1500.0, p.For(2005), 1e-9)
}

func TestEstimatePopulation_NeverNegative(t *testing.T) {
	p := EstimatePopulation(1000, 100)

	for y := PopulationFirstYear; y <= PopulationLastYear; y++ {
		assert.GreaterOrEqual(t, p.For(y), 0.0, "year %d", y)
	}
	assert.Equal(t, 0.0, p.For(2020))
}

func TestPopulationTable_OutOfRange(t *testing.T) {
	p := EstimatePopulation(1000, 2000)

	assert.Equal(t, 0.0, p.For(1999))
	assert.Equal(t, 0.0, p.For(2021))
	assert.Equal(t, 0.001, p.thousands(2021))
}
