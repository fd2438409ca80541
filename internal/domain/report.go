package domain

// ClimateReport is the full set of climate metrics for one dataset. It is a
// value: every call builds a fresh one and nothing retains it.
type ClimateReport struct {
	ZoneClassification `yaml:",inline"`
	HeatZone           int         `json:"heat_zone" yaml:"heat_zone"`
	Koppen             KoppenClass `json:"koppen_class" yaml:"koppen_class"`
	SeasonalMetrics    `yaml:",inline"`
	FrostDates         FrostDates           `json:"frost_dates" yaml:"frost_dates"`
	GrowingSeason      GrowingSeason        `json:"growing_season" yaml:"growing_season"`
	MonthlyData        [12]MonthlyAggregate `json:"monthly_data" yaml:"monthly_data"`

	ColdestMinimum   float64 `json:"coldest_minimum" yaml:"coldest_minimum"`
	InsufficientData bool    `json:"insufficient_data" yaml:"insufficient_data"`
	RecordCount      int     `json:"record_count" yaml:"record_count"`
	YearsCovered     int     `json:"years_covered" yaml:"years_covered"`
}

// ReportParts collects analyzer outputs before assembly. Each Analyzer writes
// a disjoint set of fields, so analyzers may run concurrently on one value.
type ReportParts struct {
	Coldest      float64
	HasColdest   bool
	Zones        ZoneClassification
	HeatZone     int
	Koppen       KoppenClass
	Seasonal     SeasonalMetrics
	Monthly      [12]MonthlyAggregate
	Frost        FrostDates
	Growing      GrowingSeason
	RecordCount  int
	YearsCovered int
}

// Analyzer computes one independent slice of a report from the dataset.
type Analyzer func(ds Dataset, parts *ReportParts)

// Analyzers returns the report analyzers. They share no state other than the
// read-only dataset; ordering between them does not matter.
func Analyzers(latitude *float64) []Analyzer {
	return []Analyzer{
		analyzeHardiness,
		analyzeHeat,
		func(ds Dataset, p *ReportParts) { p.Koppen = ClassifyKoppen(ds, latitude) },
		analyzeSeasonal,
		analyzeFrost,
		analyzeGrowing,
		analyzeCoverage,
	}
}

// analyzeHardiness chains the coldest minimum into the zone tables.
func analyzeHardiness(ds Dataset, p *ReportParts) {
	p.Coldest, p.HasColdest = ColdestMinimum(ds)
	p.Zones = ClassifyZones(p.Coldest)
}

func analyzeHeat(ds Dataset, p *ReportParts) {
	p.HeatZone = HeatZone(ds)
}

func analyzeSeasonal(ds Dataset, p *ReportParts) {
	p.Seasonal = AggregateSeasonal(ds)
	p.Monthly = MonthlyNormals(ds)
}

func analyzeFrost(ds Dataset, p *ReportParts) {
	p.Frost = EstimateFrostDates(ds)
}

func analyzeGrowing(ds Dataset, p *ReportParts) {
	p.Growing = EstimateGrowingSeason(ds)
}

func analyzeCoverage(ds Dataset, p *ReportParts) {
	p.RecordCount = len(ds)
	p.YearsCovered = len(ds.years())
}

// AssembleReport merges analyzer outputs into a report.
func AssembleReport(p ReportParts) ClimateReport {
	return ClimateReport{
		ZoneClassification: p.Zones,
		HeatZone:           p.HeatZone,
		Koppen:             p.Koppen,
		SeasonalMetrics:    p.Seasonal,
		FrostDates:         p.Frost,
		GrowingSeason:      p.Growing,
		MonthlyData:        p.Monthly,
		ColdestMinimum:     p.Coldest,
		InsufficientData:   !p.HasColdest,
		RecordCount:        p.RecordCount,
		YearsCovered:       p.YearsCovered,
	}
}

// ComputeClimateReport runs every analyzer in sequence and assembles the report.
// The input slice is not modified.
func ComputeClimateReport(ds Dataset, latitude *float64) ClimateReport {
	sorted := ds.sorted()
	var parts ReportParts
	for _, analyze := range Analyzers(latitude) {
		analyze(sorted, &parts)
	}
	return AssembleReport(parts)
}

// SortedCopy returns the dataset ordered by date, as the analyzers see it.
func SortedCopy(ds Dataset) Dataset {
	return ds.sorted()
}
