package crime

// Census anchors and the span of years a PopulationTable covers.
const (
	PopulationFirstYear  = 2000
	PopulationAnchorYear = 2010
	PopulationLastYear   = 2020
)

// PopulationTable maps a year to its estimated population.
type PopulationTable map[int]float64

// EstimatePopulation fills every year from 2000 through 2020 by extending the
// constant yearly change between the 2000 and 2010 census counts. Estimates
// never go below zero.
func EstimatePopulation(p2000, p2010 float64) PopulationTable {
	rate := (p2010 - p2000) / float64(PopulationAnchorYear-PopulationFirstYear)

	t := make(PopulationTable, PopulationLastYear-PopulationFirstYear+1)
	for year := PopulationFirstYear; year <= PopulationLastYear; year++ {
		estimate := p2000 + rate*float64(year-PopulationFirstYear)
		if estimate < 0 {
			estimate = 0
		}
		t[year] = estimate
	}
	return t
}

// For returns the estimate for year, or 0 when the year is not covered.
func (t PopulationTable) For(year int) float64 {
	return t[year]
}

// thousands returns the population of year in thousands. A missing or zero
// population counts as 1 so rates stay finite.
func (t PopulationTable) thousands(year int) float64 {
	p := t[year]
	if p <= 0 {
		p = 1
	}
	return p / 1000
}
