package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"airquality-dashboard/internal/modules/airquality/dataset"
	"airquality-dashboard/internal/modules/airquality/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/insert-station.sql
var insertStationSQL string

//go:embed sql/get-station-id-by-name.sql
var getStationIDByNameSQL string

//go:embed sql/delete-measurements.sql
var deleteMeasurementsSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

//go:embed sql/get-measurements.sql
var getMeasurementsSQL string

//go:embed sql/get-measurements-count.sql
var getMeasurementsCountSQL string

//go:embed sql/insert-import.sql
var insertImportSQL string

//go:embed sql/get-latest-import.sql
var getLatestImportSQL string

const datetimeLayout = "2006-01-02 15:04:05"

// ErrEmpty is returned by Load when nothing has been imported yet.
var ErrEmpty = errors.New("no measurements imported")

type MeasurementRepository interface {
	// Import replaces the stored measurements with the rows of ds and records
	// the run under source. It returns the number of rows written.
	Import(ctx context.Context, ds *dataset.Dataset, source string) (int, error)
	Load(ctx context.Context) (*dataset.Dataset, error)
	Stations(ctx context.Context) ([]types.Station, error)
	Count(ctx context.Context) (int, error)
	// LatestImport returns nil when no import has run.
	LatestImport(ctx context.Context) (*types.ImportRun, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) MeasurementRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Import(ctx context.Context, ds *dataset.Dataset, source string) (n int, err error) {
	records, err := dataset.Records(ds.Frame())
	if err != nil {
		return 0, fmt.Errorf("dataset records: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback import", "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteMeasurementsSQL); err != nil {
		return 0, fmt.Errorf("clear measurements: %w", err)
	}

	ids := make(map[string]int64)
	for _, name := range ds.Stations() {
		if _, err = tx.ExecContext(ctx, insertStationSQL, name); err != nil {
			return 0, fmt.Errorf("insert station %q: %w", name, err)
		}
		var id int64
		if err = tx.QueryRowContext(ctx, getStationIDByNameSQL, name).Scan(&id); err != nil {
			return 0, fmt.Errorf("lookup station %q: %w", name, err)
		}
		ids[name] = id
	}

	stmt, err := tx.PrepareContext(ctx, insertMeasurementSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			slog.Error("close insert statement", "error", closeErr)
		}
	}()

	for i, rec := range records {
		if _, err = stmt.ExecContext(ctx,
			ids[rec.Station],
			rec.Datetime.UTC().Format(datetimeLayout),
			rec.Month,
			nullable(rec.PM25),
			nullable(rec.NO2),
			nullable(rec.TEMP),
			nullable(rec.PRES),
			nullable(rec.WSPM),
		); err != nil {
			return 0, fmt.Errorf("insert measurement row %d: %w", i+1, err)
		}
	}

	if _, err = tx.ExecContext(ctx, insertImportSQL, source, len(records)); err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(records), nil
}

func (r *repositoryImpl) Load(ctx context.Context) (*dataset.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, getMeasurementsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close measurement rows", "error", err)
		}
	}()

	var records []types.Record
	for rows.Next() {
		var (
			rec                         types.Record
			ts                          string
			pm25, no2, temp, pres, wspm sql.NullFloat64
		)
		if err := rows.Scan(&rec.Station, &ts, &rec.Month, &pm25, &no2, &temp, &pres, &wspm); err != nil {
			return nil, err
		}
		rec.Datetime, err = time.Parse(datetimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse datetime %q: %w", ts, err)
		}
		rec.PM25 = orNaN(pm25)
		rec.NO2 = orNaN(no2)
		rec.TEMP = orNaN(temp)
		rec.PRES = orNaN(pres)
		rec.WSPM = orNaN(wspm)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	return dataset.New(records)
}

func (r *repositoryImpl) Stations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	var out []types.Station
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, getMeasurementsCountSQL).Scan(&n)
	return n, err
}

func (r *repositoryImpl) LatestImport(ctx context.Context) (*types.ImportRun, error) {
	var (
		run types.ImportRun
		at  string
	)
	err := r.db.QueryRowContext(ctx, getLatestImportSQL).Scan(&run.Source, &run.Rows, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.ImportedAt, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("parse imported_at %q: %w", at, err)
	}
	return &run, nil
}

func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
