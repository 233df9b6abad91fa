package airquality

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"airquality-dashboard/internal/config"
	"airquality-dashboard/internal/modules/airquality/controller"
	"airquality-dashboard/internal/modules/airquality/dashboard"
	"airquality-dashboard/internal/modules/airquality/dataset"
	"airquality-dashboard/internal/modules/airquality/repository"
)

func RegisterFeature(mux *http.ServeMux, ds *dataset.Dataset, cfg config.Config) {
	bounds := controller.Bounds{Min: cfg.DateMin, Max: cfg.DateMax}
	opts := dashboard.Options{PairplotMaxPoints: cfg.PairplotMaxPoints}
	dashboardController := controller.NewDashboardController(ds, bounds, opts)
	dashboardController.RegisterRoutes(mux)
}

// LoadDataset reads the measurements from the configured source. db is only
// used, and must be non-nil, when cfg.DataSource is "sqlite".
func LoadDataset(ctx context.Context, cfg config.Config, db *sql.DB) (*dataset.Dataset, error) {
	switch cfg.DataSource {
	case "sqlite":
		if db == nil {
			return nil, errors.New("sqlite data source without a database connection")
		}
		ds, err := repository.NewRepository(db).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load dataset from sqlite: %w", err)
		}
		return ds, nil
	case "csv", "":
		return dataset.LoadCSV(cfg.DataPath)
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}
