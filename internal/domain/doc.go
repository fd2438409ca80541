// Package domain derives horticultural climate metrics from multi-year daily
// weather observations for a single location.
//
// # Input
//
// A [Dataset] is a slice of [DailyRecord] values, normally 10 to 20 calendar
// years from the historical archive of a weather provider. Every numeric field
// is optional. A nil value is skipped by the aggregate it would feed, it is
// never treated as zero. Records may arrive in any order and years need not be
// contiguous; analyzers that sum floating point values work on a private copy
// sorted by date so the result does not depend on input order.
//
// # Hardiness
//
// Hardiness is driven by the single coldest daily minimum in the whole span,
// not a typical winter:
//
//	USDA:  26 half-zones of ~2.8 °C from 1a (< -48.3) to 13b (>= 18.3)
//	RHS:   H1a (>= 15) down to H7 (< -20)
//	Category (from the USDA number): <=5 Very Hardy | 6-7 Hardy | 8-9 Half Hardy | >=10 Tender
//
// When no record carries a minimum temperature the coldest value defaults to
// 0 °C, which classifies as 10a. [ClimateReport.InsufficientData] is set so
// callers can tell the default apart from a real measurement.
//
// # Heat
//
// The AHS heat zone counts days with a maximum above 30 °C, normalizes the
// count to days per year (record count / 365) and maps it to zones 1 to 12.
//
// # Köppen
//
// A simplified decision tree over monthly normals, checked in this order:
//
//	coldest month >= 18 °C     tropical   (Af, Aw, Am by annual precipitation)
//	coldest month <= -3 °C     continental (Dfa, Dfb, Dfc)
//	annual precipitation < 500 arid (BWh, BSk)
//	otherwise                  temperate, split at 40° latitude (Cfa, Csa, Cfb, Cfc)
//
// # Seasons
//
// Frost days have a minimum at or below 0 °C. Growing days have a minimum
// above 5 °C. Per-year dates are averaged by month and day independently and
// expressed in the latest year present in the dataset. A window crossing the
// new year therefore averages to a mid-year date; this is kept as is.
package domain
