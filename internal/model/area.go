package model

// CityKey identifies the city-wide area in caches and sync logs.
const CityKey = "city"

// Neighborhood is a city neighborhood with its two census population anchors.
type Neighborhood struct {
	Key            string  `json:"key" yaml:"key"`
	Name           string  `json:"name" yaml:"name"`
	Population2000 float64 `json:"population_2000" yaml:"population_2000"`
	Population2010 float64 `json:"population_2010" yaml:"population_2010"`
}
