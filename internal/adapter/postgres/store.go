package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS climate_reports (
	location_key  TEXT PRIMARY KEY,
	id            UUID NOT NULL,
	request_id    TEXT NOT NULL DEFAULT '',
	location_name TEXT NOT NULL DEFAULT '',
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	years         INTEGER NOT NULL,
	usda_zone     TEXT NOT NULL,
	koppen_code   TEXT NOT NULL,
	report        JSONB NOT NULL,
	generated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS climate_reports_generated_at_idx ON climate_reports (generated_at);
`

const upsertReport = `
INSERT INTO climate_reports (
	location_key, id, request_id, location_name, latitude, longitude,
	years, usda_zone, koppen_code, report, generated_at
) VALUES (
	:location_key, :id, :request_id, :location_name, :latitude, :longitude,
	:years, :usda_zone, :koppen_code, :report, :generated_at
)
ON CONFLICT (location_key) DO UPDATE SET
	id            = EXCLUDED.id,
	request_id    = EXCLUDED.request_id,
	location_name = EXCLUDED.location_name,
	latitude      = EXCLUDED.latitude,
	longitude     = EXCLUDED.longitude,
	years         = EXCLUDED.years,
	usda_zone     = EXCLUDED.usda_zone,
	koppen_code   = EXCLUDED.koppen_code,
	report        = EXCLUDED.report,
	generated_at  = EXCLUDED.generated_at
WHERE climate_reports.generated_at <= EXCLUDED.generated_at`

const selectColumns = `location_key, id, request_id, location_name, latitude, longitude,
	years, usda_zone, koppen_code, report, generated_at`

// Store persists location reports in PostgreSQL, one row per location key.
// It implements pipeline.ReportStore.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New opens a connection pool for dsn and verifies it with a ping.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("postgres report store connected")
	return &Store{db: db, logger: logger}, nil
}

// Migrate creates the reports table and its index if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate climate_reports: %w", err)
	}
	return nil
}

// Save upserts the report for its location key. An older report never
// replaces a newer one.
func (s *Store) Save(ctx context.Context, report domain.LocationReport) error {
	row, err := toRow(report)
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, upsertReport, row); err != nil {
		return fmt.Errorf("save report %s: %w", report.Key, err)
	}
	return nil
}

// Latest returns the stored report for key.
func (s *Store) Latest(ctx context.Context, key domain.LocationKey) (domain.LocationReport, bool, error) {
	var row reportRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+selectColumns+` FROM climate_reports WHERE location_key = $1`, string(key))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LocationReport{}, false, nil
	}
	if err != nil {
		return domain.LocationReport{}, false, fmt.Errorf("load report %s: %w", key, err)
	}

	report, err := row.toReport()
	if err != nil {
		return domain.LocationReport{}, false, err
	}
	return report, true, nil
}

// ListStale returns up to limit reports generated before cutoff, oldest first.
func (s *Store) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.LocationReport, error) {
	var rows []reportRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+selectColumns+` FROM climate_reports
		WHERE generated_at < $1
		ORDER BY generated_at ASC, location_key ASC
		LIMIT $2`, cutoff.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale reports: %w", err)
	}

	reports := make([]domain.LocationReport, 0, len(rows))
	for _, row := range rows {
		r, err := row.toReport()
		if err != nil {
			s.logger.Warn("skipping unreadable stored report", "location_key", row.LocationKey, "error", err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// reportRow is the climate_reports row layout. The queryable columns duplicate
// fields of the JSON payload, which stays the source of truth on read.
type reportRow struct {
	LocationKey  string          `db:"location_key"`
	ID           string          `db:"id"`
	RequestID    string          `db:"request_id"`
	LocationName string          `db:"location_name"`
	Latitude     float64         `db:"latitude"`
	Longitude    float64         `db:"longitude"`
	Years        int             `db:"years"`
	USDAZone     string          `db:"usda_zone"`
	KoppenCode   string          `db:"koppen_code"`
	Report       json.RawMessage `db:"report"`
	GeneratedAt  time.Time       `db:"generated_at"`
}

func toRow(r domain.LocationReport) (reportRow, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return reportRow{}, fmt.Errorf("encode report %s: %w", r.Key, err)
	}
	return reportRow{
		LocationKey:  string(r.Key),
		ID:           r.ID,
		RequestID:    r.RequestID,
		LocationName: r.Location.Name,
		Latitude:     r.Location.Lat,
		Longitude:    r.Location.Lon,
		Years:        r.Years,
		USDAZone:     r.Report.USDAZone,
		KoppenCode:   r.Report.Koppen.Code,
		Report:       payload,
		GeneratedAt:  r.GeneratedAt.UTC(),
	}, nil
}

func (row reportRow) toReport() (domain.LocationReport, error) {
	var r domain.LocationReport
	if err := json.Unmarshal(row.Report, &r); err != nil {
		return domain.LocationReport{}, fmt.Errorf("decode report %s: %w", row.LocationKey, err)
	}
	// Postgres truncates to microseconds; the column is what staleness is judged on.
	r.GeneratedAt = row.GeneratedAt.UTC()
	r.Key = domain.LocationKey(row.LocationKey)
	return r, nil
}
