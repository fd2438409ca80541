package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

// writeDataset writes two years of a mild climate with one -8 °C night.
func writeDataset(t *testing.T) string {
	t.Helper()
	var ds domain.Dataset
	for d := domain.NewDate(2023, time.January, 1); d.Year() < 2025; d = (domain.Date{Time: d.AddDate(0, 0, 1)}) {
		tmin := 6.0
		if d.Equal(domain.NewDate(2024, time.January, 15).Time) {
			tmin = -8
		}
		ds = append(ds, domain.DailyRecord{
			Date:          d,
			TempMin:       domain.Float(tmin),
			TempMax:       domain.Float(26),
			Precipitation: domain.Float(2),
		})
	}

	data, err := json.Marshal(ds)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun_FileJSON(t *testing.T) {
	path := writeDataset(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-input", path, "-lat", "51.48"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var report domain.ClimateReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "8b", report.USDAZone)
	assert.Equal(t, -8.0, report.ColdestMinimum)
	assert.Equal(t, 731, report.RecordCount)
	assert.Equal(t, 2, report.YearsCovered)
	assert.Equal(t, "Cfb", report.Koppen.Code)
}

func TestRun_FileYAML(t *testing.T) {
	path := writeDataset(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-input", path, "-format", "yaml"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "8b", out["usda_zone"])
	assert.Contains(t, out, "koppen_class")
	assert.Contains(t, out, "monthly_data")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no location", []string{}, 2},
		{"only lat", []string{"-lat", "10"}, 2},
		{"bad format", []string{"-input", "x.json", "-format", "xml"}, 2},
		{"missing file", []string{"-input", filepath.Join(os.TempDir(), "does-not-exist.json")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(context.Background(), tt.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), "error")
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_LocationNeedsToken(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", "")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-location", "Kew Gardens"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "MAPBOX_TOKEN")
}
