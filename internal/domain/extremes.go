package domain

// ColdestMinimum returns the lowest TempMin across the whole dataset. The
// second return value is false when no record has a minimum, in which case
// the value is the 0 °C default.
func ColdestMinimum(ds Dataset) (float64, bool) {
	var (
		coldest float64
		found   bool
	)
	for _, r := range ds {
		if r.TempMin == nil {
			continue
		}
		if !found || *r.TempMin < coldest {
			coldest = *r.TempMin
			found = true
		}
	}
	return coldest, found
}
