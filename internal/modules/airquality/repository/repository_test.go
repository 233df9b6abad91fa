package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"airquality-dashboard/internal/migrate"
	"airquality-dashboard/internal/modules/airquality/dataset"
)

const sampleCSV = `No,year,month,day,hour,PM25,PM10,SO2,NO2,CO,O3,TEMP,PRES,DEWP,RAIN,wd,WSPM,station,datetime
1,2013,3,1,0,4,4,4,7,300,77,-0.7,1023,-18.8,0,NNW,4.4,Aotizhongxin,2013-03-01 00:00:00
2,2013,3,1,1,8,8,4,NA,300,77,-1.1,1023.2,-18.2,0,N,4.7,Aotizhongxin,2013-03-01 01:00:00
3,2013,3,1,0,3,6,13,12,300,85,-2.3,1020.8,-19.7,0,E,0.5,Changping,2013-03-01 00:00:00
4,2013,6,2,0,NA,6,13,12,300,85,20.3,1001.8,-19.7,0,E,1.5,Changping,2013-06-02 00:00:00
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return setupTestDBWith(t, "sqlite3")
}

func setupTestDBWith(t *testing.T, driverName string) *sql.DB {
	t.Helper()
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("close db: %v", closeErr)
		}
	})
	if err := migrate.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return ds
}

func TestLoad_empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.Load(ctx); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Load() err = %v; want ErrEmpty", err)
	}
	n, err := repo.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Count() = %d, %v; want 0, nil", n, err)
	}
	stations, err := repo.Stations(ctx)
	if err != nil || len(stations) != 0 {
		t.Fatalf("Stations() = %v, %v; want none", stations, err)
	}
	run, err := repo.LatestImport(ctx)
	if err != nil || run != nil {
		t.Fatalf("LatestImport() = %v, %v; want nil, nil", run, err)
	}
}

func TestImportLoad_roundTrip(t *testing.T) {
	for _, driverName := range []string{"sqlite3", "sqlite"} {
		t.Run(driverName, func(t *testing.T) {
			testRoundTrip(t, NewRepository(setupTestDBWith(t, driverName)))
		})
	}
}

func testRoundTrip(t *testing.T, repo MeasurementRepository) {
	t.Helper()
	ctx := context.Background()
	src := sample(t)

	n, err := repo.Import(ctx, src, "main_data.csv")
	if err != nil {
		t.Fatalf("Import() err = %v", err)
	}
	if n != 4 {
		t.Errorf("Import() = %d; want 4", n)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	want, _ := dataset.Records(src.Frame())
	have, err := dataset.Records(got.Frame())
	if err != nil {
		t.Fatalf("Records() err = %v", err)
	}
	if len(have) != len(want) {
		t.Fatalf("loaded %d rows; want %d", len(have), len(want))
	}
	for i := range want {
		w, h := want[i], have[i]
		if h.Station != w.Station || !h.Datetime.Equal(w.Datetime) || h.Month != w.Month {
			t.Errorf("row %d = %+v; want %+v", i, h, w)
		}
		for _, pair := range [][2]float64{{h.PM25, w.PM25}, {h.NO2, w.NO2}, {h.TEMP, w.TEMP}, {h.PRES, w.PRES}, {h.WSPM, w.WSPM}} {
			if math.IsNaN(pair[1]) != math.IsNaN(pair[0]) || (!math.IsNaN(pair[1]) && pair[0] != pair[1]) {
				t.Errorf("row %d value = %v; want %v", i, pair[0], pair[1])
			}
		}
	}
	if s := got.Stations(); len(s) != 2 || s[0] != "Aotizhongxin" || s[1] != "Changping" {
		t.Errorf("Stations() = %v", s)
	}

	run, err := repo.LatestImport(ctx)
	if err != nil {
		t.Fatalf("LatestImport() err = %v", err)
	}
	if run == nil || run.Source != "main_data.csv" || run.Rows != 4 || run.ImportedAt.IsZero() {
		t.Errorf("LatestImport() = %+v", run)
	}
}

func TestImport_replaces(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	src := sample(t)

	for i := 0; i < 2; i++ {
		if _, err := repo.Import(ctx, src, "main_data.csv"); err != nil {
			t.Fatalf("Import() #%d err = %v", i+1, err)
		}
	}
	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() err = %v", err)
	}
	if n != 4 {
		t.Errorf("Count() after re-import = %d; want 4", n)
	}
	stations, err := repo.Stations(ctx)
	if err != nil {
		t.Fatalf("Stations() err = %v", err)
	}
	if len(stations) != 2 || stations[0].Name != "Aotizhongxin" || stations[0].ID == 0 {
		t.Errorf("Stations() = %+v", stations)
	}
}

func TestImport_withoutSchema(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := NewRepository(db).Import(context.Background(), sample(t), "x.csv"); err == nil {
		t.Fatal("Import() without schema = nil; want error")
	}
}
