package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airquality-dashboard/internal/config"
	db "airquality-dashboard/internal/db"
	httpapi "airquality-dashboard/internal/httpapi"
	"airquality-dashboard/internal/migrate"
	airquality "airquality-dashboard/internal/modules/airquality"
	airqualityviews "airquality-dashboard/internal/modules/airquality/views"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dataSource", cfg.DataSource,
		"dataPath", cfg.DataPath,
		"sqliteDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"sqliteMaxOpenConns", cfg.MaxOpenConns,
		"sqliteMaxIdleConns", cfg.MaxIdleConns,
		"sqliteConnMaxLifetime", cfg.ConnMaxLifetime,
		"logSQL", cfg.LogSQL,
		"dateMin", cfg.DateMin.Format(time.DateOnly),
		"dateMax", cfg.DateMax.Format(time.DateOnly),
		"pairplotMaxPoints", cfg.PairplotMaxPoints,
	)

	var dbConn *sql.DB
	if cfg.DataSource == "sqlite" {
		var err error
		dbConn, err = db.Open(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(dbConn); closeErr != nil {
				slog.Error("db close", "error", closeErr)
			}
		}()
		if err := migrate.Run(ctx, dbConn); err != nil {
			return err
		}
		slog.Info("database connection successful")
	}

	start := time.Now()
	ds, err := airquality.LoadDataset(ctx, cfg, dbConn)
	if err != nil {
		return err
	}
	first, last := ds.DateRange()
	slog.Info("dataset loaded",
		"rows", ds.Len(),
		"stations", len(ds.Stations()),
		"first", first.Format(time.DateTime),
		"last", last.Format(time.DateTime),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := airqualityviews.LoadTemplates(); err != nil {
		return err
	}
	mux := httpapi.NewMux(dbConn, airqualityviews.Static())
	airquality.RegisterFeature(mux, ds, cfg)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
