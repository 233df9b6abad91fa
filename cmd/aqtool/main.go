// Command aqtool manages the SQLite copy of the air-quality dataset.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"airquality-dashboard/internal/config"
	db "airquality-dashboard/internal/db"
	"airquality-dashboard/internal/logging"
	"airquality-dashboard/internal/migrate"
	"airquality-dashboard/internal/modules/airquality/dataset"
	"airquality-dashboard/internal/modules/airquality/repository"
)

const appName = "aqtool"

var version = "dev"

const usage = `usage: aqtool <command>
  migrate       apply pending schema migrations
  import [csv]  replace the stored measurements with a CSV file (default DATA_PATH)
  summary       print row count, stations and date range of the configured source
`

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New(usage)

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	switch args[0] {
	case "migrate":
		return withDB(cfg, func(conn *sql.DB) error {
			pending, err := migrate.Pending(ctx, conn)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := migrate.Run(ctx, conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(out, "migrations applied: %d\n", len(pending))
			return nil
		})
	case "import":
		path := cfg.DataPath
		if len(args) > 1 {
			path = args[1]
		}
		return withDB(cfg, func(conn *sql.DB) error {
			return runImport(ctx, conn, path, out)
		})
	case "summary":
		if cfg.DataSource == "sqlite" {
			return withDB(cfg, func(conn *sql.DB) error {
				return summarizeStore(ctx, conn, out)
			})
		}
		ds, err := dataset.LoadCSV(cfg.DataPath)
		if err != nil {
			return err
		}
		printDataset(out, cfg.DataPath, ds)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
}

func withDB(cfg config.Config, fn func(conn *sql.DB) error) error {
	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()
	return fn(conn)
}

func runImport(ctx context.Context, conn *sql.DB, path string, out io.Writer) error {
	if err := migrate.Run(ctx, conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	start := time.Now()
	ds, err := dataset.LoadCSV(path)
	if err != nil {
		return err
	}
	n, err := repository.NewRepository(conn).Import(ctx, ds, path)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	slog.Info("import finished", "source", path, "rows", n, "duration_ms", time.Since(start).Milliseconds())
	fmt.Fprintf(out, "imported %s measurements from %s\n", humanize.Comma(int64(n)), path)
	return nil
}

func summarizeStore(ctx context.Context, conn *sql.DB, out io.Writer) error {
	if err := migrate.Run(ctx, conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	repo := repository.NewRepository(conn)
	n, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	stations, err := repo.Stations(ctx)
	if err != nil {
		return fmt.Errorf("stations: %w", err)
	}
	fmt.Fprintf(out, "source:       sqlite\n")
	fmt.Fprintf(out, "measurements: %s\n", humanize.Comma(int64(n)))
	fmt.Fprintf(out, "stations:     %d\n", len(stations))
	for _, s := range stations {
		fmt.Fprintf(out, "  %d %s\n", s.ID, s.Name)
	}

	last, err := repo.LatestImport(ctx)
	if err != nil {
		return fmt.Errorf("latest import: %w", err)
	}
	if last == nil {
		fmt.Fprintln(out, "last import:  never")
		return nil
	}
	fmt.Fprintf(out, "last import:  %s (%s rows from %s)\n",
		humanize.Time(last.ImportedAt), humanize.Comma(int64(last.Rows)), last.Source)
	return nil
}

func printDataset(out io.Writer, path string, ds *dataset.Dataset) {
	first, last := ds.DateRange()
	stations := ds.Stations()
	fmt.Fprintf(out, "source:       %s\n", path)
	fmt.Fprintf(out, "measurements: %s\n", humanize.Comma(int64(ds.Len())))
	fmt.Fprintf(out, "stations:     %d\n", len(stations))
	for _, s := range stations {
		fmt.Fprintf(out, "  %s\n", s)
	}
	fmt.Fprintf(out, "date range:   %s .. %s\n", first.Format(time.DateTime), last.Format(time.DateTime))
}
