package domain

import (
	"math"
	"strconv"
	"strings"
)

// ZoneBand maps the half-open temperature range [Min, Max) to a zone code.
type ZoneBand struct {
	Code        string
	Min         float64
	Max         float64
	Description string
}

func (b ZoneBand) contains(t float64) bool {
	return b.Min <= t && t < b.Max
}

// usdaTopBound is the upper edge of 13b; anything warmer is forced to 13b.
const usdaTopBound = 21.1

// USDAZones is the USDA hardiness table in °C, coldest first.
var USDAZones = []ZoneBand{
	{Code: "1a", Min: math.Inf(-1), Max: -48.3},
	{Code: "1b", Min: -48.3, Max: -45.6},
	{Code: "2a", Min: -45.6, Max: -42.8},
	{Code: "2b", Min: -42.8, Max: -40},
	{Code: "3a", Min: -40, Max: -37.2},
	{Code: "3b", Min: -37.2, Max: -34.4},
	{Code: "4a", Min: -34.4, Max: -31.7},
	{Code: "4b", Min: -31.7, Max: -28.9},
	{Code: "5a", Min: -28.9, Max: -26.1},
	{Code: "5b", Min: -26.1, Max: -23.3},
	{Code: "6a", Min: -23.3, Max: -20.6},
	{Code: "6b", Min: -20.6, Max: -17.8},
	{Code: "7a", Min: -17.8, Max: -15},
	{Code: "7b", Min: -15, Max: -12.2},
	{Code: "8a", Min: -12.2, Max: -9.4},
	{Code: "8b", Min: -9.4, Max: -6.7},
	{Code: "9a", Min: -6.7, Max: -3.9},
	{Code: "9b", Min: -3.9, Max: -1.1},
	{Code: "10a", Min: -1.1, Max: 1.7},
	{Code: "10b", Min: 1.7, Max: 4.4},
	{Code: "11a", Min: 4.4, Max: 7.2},
	{Code: "11b", Min: 7.2, Max: 10},
	{Code: "12a", Min: 10, Max: 12.8},
	{Code: "12b", Min: 12.8, Max: 15.6},
	{Code: "13a", Min: 15.6, Max: 18.3},
	{Code: "13b", Min: 18.3, Max: usdaTopBound},
}

// rhsFallback is returned when no RHS band matches (only possible for NaN).
const rhsFallback = "H4"

// RHSZones is the RHS hardiness table in °C, warmest first.
var RHSZones = []ZoneBand{
	{Code: "H1a", Min: 15, Max: math.Inf(1), Description: "Heated greenhouse, tropical"},
	{Code: "H1b", Min: 10, Max: 15, Description: "Heated greenhouse, subtropical"},
	{Code: "H1c", Min: 5, Max: 10, Description: "Heated greenhouse, warm temperate"},
	{Code: "H2", Min: 1, Max: 5, Description: "Tender, cool or frost-free greenhouse"},
	{Code: "H3", Min: -5, Max: 1, Description: "Half hardy, unheated greenhouse or mild winter"},
	{Code: "H4", Min: -10, Max: -5, Description: "Hardy, average winter"},
	{Code: "H5", Min: -15, Max: -10, Description: "Hardy, cold winter"},
	{Code: "H6", Min: -20, Max: -15, Description: "Hardy, very cold winter"},
	{Code: "H7", Min: math.Inf(-1), Max: -20, Description: "Very hardy"},
}

// Hardiness categories derived from the USDA zone number.
const (
	CategoryVeryHardy = "Very Hardy"
	CategoryHardy     = "Hardy"
	CategoryHalfHardy = "Half Hardy"
	CategoryTender    = "Tender"
)

// ZoneClassification is the cold-hardiness part of a report.
type ZoneClassification struct {
	USDAZone          string `json:"usda_zone" yaml:"usda_zone"`
	RHSZone           string `json:"rhs_zone" yaml:"rhs_zone"`
	RHSDescription    string `json:"rhs_description" yaml:"rhs_description"`
	HardinessCategory string `json:"hardiness_category" yaml:"hardiness_category"`
}

// ClassifyZones maps the coldest recorded minimum to USDA and RHS codes plus a
// coarse category. The category is derived from the USDA number only and does
// not track the RHS rating.
func ClassifyZones(coldest float64) ZoneClassification {
	usda := USDAZone(coldest)
	rhs := rhsBand(coldest)
	return ZoneClassification{
		USDAZone:          usda,
		RHSZone:           rhs.Code,
		RHSDescription:    rhs.Description,
		HardinessCategory: HardinessCategory(usda),
	}
}

// USDAZone returns the USDA code for t, first matching band wins.
func USDAZone(t float64) string {
	top := USDAZones[len(USDAZones)-1]
	if t >= usdaTopBound {
		return top.Code
	}
	for _, b := range USDAZones {
		if b.contains(t) {
			return b.Code
		}
	}
	return top.Code
}

func rhsBand(t float64) ZoneBand {
	for _, b := range RHSZones {
		if b.contains(t) {
			return b
		}
	}
	for _, b := range RHSZones {
		if b.Code == rhsFallback {
			return b
		}
	}
	return ZoneBand{Code: rhsFallback}
}

// HardinessCategory buckets a USDA code by its numeric prefix.
func HardinessCategory(usdaZone string) string {
	n := ZoneNumber(usdaZone)
	switch {
	case n <= 5:
		return CategoryVeryHardy
	case n <= 7:
		return CategoryHardy
	case n <= 9:
		return CategoryHalfHardy
	default:
		return CategoryTender
	}
}

// ZoneNumber extracts the numeric prefix of a USDA code ("10b" -> 10).
// Returns 0 when the code has no leading digits.
func ZoneNumber(usdaZone string) int {
	digits := strings.TrimRightFunc(usdaZone, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
