package domain

import "math"

// KoppenClass is a simplified Köppen code with its human-readable name.
type KoppenClass struct {
	Code        string `json:"code" yaml:"code"`
	Description string `json:"description" yaml:"description"`
}

func (k KoppenClass) String() string {
	return k.Code + " - " + k.Description
}

// Decision thresholds for the simplified tree.
const (
	tropicalColdestMonth    = 18.0
	continentalColdestMonth = -3.0
	aridAnnualPrecip        = 500.0
	temperateLatitudeCutoff = 40.0
	hotSummerMonth          = 22.0
	warmSummerMonth         = 15.0
	hotDesertMeanTemp       = 18.0
)

var (
	koppenAf  = KoppenClass{Code: "Af", Description: "Tropical rainforest"}
	koppenAw  = KoppenClass{Code: "Aw", Description: "Tropical savanna"}
	koppenAm  = KoppenClass{Code: "Am", Description: "Tropical monsoon"}
	koppenDfa = KoppenClass{Code: "Dfa", Description: "Hot summer continental"}
	koppenDfb = KoppenClass{Code: "Dfb", Description: "Warm summer continental"}
	koppenDfc = KoppenClass{Code: "Dfc", Description: "Subarctic"}
	koppenBWh = KoppenClass{Code: "BWh", Description: "Hot desert"}
	koppenBSk = KoppenClass{Code: "BSk", Description: "Cold steppe"}
	koppenCfa = KoppenClass{Code: "Cfa", Description: "Humid subtropical"}
	koppenCsa = KoppenClass{Code: "Csa", Description: "Mediterranean"}
	koppenCfb = KoppenClass{Code: "Cfb", Description: "Oceanic"}
	koppenCfc = KoppenClass{Code: "Cfc", Description: "Subpolar oceanic"}
)

// KoppenSummary holds the monthly aggregates the classifier decides on.
type KoppenSummary struct {
	ColdestMonth float64 // mean temperature of the coldest calendar month, °C
	HottestMonth float64 // mean temperature of the hottest calendar month, °C
	MeanTemp     float64 // mean of the monthly means, °C
	AnnualPrecip float64 // precipitation per year, mm
}

// ClassifyKoppen derives the simplified Köppen class for the dataset. A nil
// latitude is treated as within the temperate cutoff.
func ClassifyKoppen(ds Dataset, latitude *float64) KoppenClass {
	sorted := ds.sorted()
	return KoppenFromSummary(summarizeKoppen(collectMonths(sorted), annualRainfall(sorted)), latitude)
}

func summarizeKoppen(months [12]monthStats, annualPrecip float64) KoppenSummary {
	s := KoppenSummary{AnnualPrecip: annualPrecip}
	var (
		means meanAcc
		first = true
	)
	for _, m := range months {
		avg, ok := m.temp.value()
		if !ok {
			continue
		}
		means.add(&avg)
		if first || avg < s.ColdestMonth {
			s.ColdestMonth = avg
		}
		if first || avg > s.HottestMonth {
			s.HottestMonth = avg
		}
		first = false
	}
	s.MeanTemp, _ = means.value()
	return s
}

// KoppenFromSummary applies the decision tree. Branches are checked in order
// and a borderline value resolves to the first branch that accepts it.
func KoppenFromSummary(s KoppenSummary, latitude *float64) KoppenClass {
	switch {
	case s.ColdestMonth >= tropicalColdestMonth:
		switch {
		case s.AnnualPrecip > 1500:
			return koppenAf
		case s.AnnualPrecip > 600:
			return koppenAw
		default:
			return koppenAm
		}
	case s.ColdestMonth <= continentalColdestMonth:
		if s.AnnualPrecip > 600 {
			if s.HottestMonth > hotSummerMonth {
				return koppenDfa
			}
			return koppenDfb
		}
		return koppenDfc
	case s.AnnualPrecip < aridAnnualPrecip:
		if s.MeanTemp > hotDesertMeanTemp {
			return koppenBWh
		}
		return koppenBSk
	}

	lat := 0.0
	if latitude != nil {
		lat = *latitude
	}
	if math.Abs(lat) < temperateLatitudeCutoff {
		switch {
		case s.AnnualPrecip > 1000 && s.HottestMonth > hotSummerMonth:
			return koppenCfa
		case s.HottestMonth > hotSummerMonth:
			return koppenCsa
		default:
			return koppenCfb
		}
	}
	if s.HottestMonth > warmSummerMonth {
		return koppenCfb
	}
	return koppenCfc
}
