package openmeteo

import (
	"fmt"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

// Open-Meteo archive response types. Values are null where the reanalysis has no data.

type archiveResponse struct {
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Daily     dailyValues `json:"daily"`
}

type dailyValues struct {
	Time          []string   `json:"time"`
	TempMin       []*float64 `json:"temperature_2m_min"`
	TempMax       []*float64 `json:"temperature_2m_max"`
	TempMean      []*float64 `json:"temperature_2m_mean"`
	Precipitation []*float64 `json:"precipitation_sum"`
	Humidity      []*float64 `json:"relative_humidity_2m_mean"`
	WindSpeed     []*float64 `json:"wind_speed_10m_mean"`
	CloudCover    []*float64 `json:"cloud_cover_mean"`
}

// dataset zips the per-variable arrays into daily records. A variable array
// shorter than the time axis leaves the trailing days unset.
func (r archiveResponse) dataset() (domain.Dataset, error) {
	d := r.Daily
	ds := make(domain.Dataset, 0, len(d.Time))
	for i, day := range d.Time {
		date, err := domain.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("daily.time[%d]: %w", i, err)
		}
		ds = append(ds, domain.DailyRecord{
			Date:          date,
			TempMin:       at(d.TempMin, i),
			TempMax:       at(d.TempMax, i),
			TempMean:      at(d.TempMean, i),
			Precipitation: at(d.Precipitation, i),
			Humidity:      at(d.Humidity, i),
			WindSpeed:     at(d.WindSpeed, i),
			CloudCover:    at(d.CloudCover, i),
		})
	}
	return ds, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
