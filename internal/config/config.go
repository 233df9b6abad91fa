package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// DataSource selects where the dataset is loaded from: "csv" or "sqlite".
	DataSource string
	// DataPath is the CSV file read at startup (relative paths resolve against the working directory).
	DataPath string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	// DateMin and DateMax bound the date pickers; requested dates are clamped into this range.
	DateMin time.Time
	DateMax time.Time

	PairplotMaxPoints int
}

// source resolves a key from the environment first and falls back to the
// optional YAML file named by CONFIG_FILE (keys are the lower-cased variable names).
type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(s.file[strings.ToLower(key)])
}

func loadSource() (source, error) {
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return source{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("CONFIG_FILE %q: %w", path, err)
	}
	file := map[string]string{}
	if err := yaml.Unmarshal(b, &file); err != nil {
		return source{}, fmt.Errorf("CONFIG_FILE %q: %w", path, err)
	}
	return source{file: file}, nil
}

func LoadFromEnv() (Config, error) {
	src, err := loadSource()
	if err != nil {
		return Config{}, err
	}

	appEnv := src.get("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := src.get("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := src.get("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	dataSource := strings.ToLower(src.get("DATA_SOURCE"))
	if dataSource == "" {
		dataSource = "csv"
	}
	switch dataSource {
	case "csv", "sqlite":
	default:
		return Config{}, fmt.Errorf("invalid DATA_SOURCE %q (allowed: csv, sqlite)", dataSource)
	}

	dataPath := src.get("DATA_PATH")
	if dataPath == "" {
		dataPath = "dashboard/main_data.csv"
	}
	dataPath, err = filepath.Abs(dataPath)
	if err != nil {
		return Config{}, fmt.Errorf("DATA_PATH %q: %w", dataPath, err)
	}

	driver := src.get("DB_DRIVER")
	if driver == "" {
		driver = "sqlite3"
	}
	switch driver {
	case "sqlite3", "sqlite":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, sqlite)", driver)
	}
	dsn := src.get("DB_DSN")
	path := src.get("SQLITE_PATH")
	if path == "" {
		path = "data/airquality.db"
	}

	maxOpenConnsStr := src.get("DB_MAX_OPEN_CONNS")
	if maxOpenConnsStr == "" {
		maxOpenConnsStr = "1"
	}
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := src.get("DB_MAX_IDLE_CONNS")
	if maxIdleConnsStr == "" {
		maxIdleConnsStr = "1"
	}
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := src.get("DB_CONN_MAX_LIFETIME")
	if connMaxLifetimeStr == "" {
		connMaxLifetimeStr = "0s"
	}
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQL := false
	if s := src.get("DB_LOG_SQL"); s != "" {
		logSQL, err = strconv.ParseBool(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", s, err)
		}
	}

	dateMin, err := parseDate(src.get("DATE_MIN"), "2013-03-01", "DATE_MIN")
	if err != nil {
		return Config{}, err
	}
	dateMax, err := parseDate(src.get("DATE_MAX"), "2017-02-28", "DATE_MAX")
	if err != nil {
		return Config{}, err
	}
	if dateMax.Before(dateMin) {
		return Config{}, fmt.Errorf("DATE_MAX %s is before DATE_MIN %s", dateMax.Format(dateLayout), dateMin.Format(dateLayout))
	}

	maxPointsStr := src.get("PAIRPLOT_MAX_POINTS")
	if maxPointsStr == "" {
		maxPointsStr = "1000"
	}
	maxPoints, err := strconv.Atoi(maxPointsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid PAIRPLOT_MAX_POINTS %q: %w", maxPointsStr, err)
	}
	if maxPoints <= 0 {
		return Config{}, fmt.Errorf("invalid PAIRPLOT_MAX_POINTS %q: must be > 0", maxPointsStr)
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		HTTPAddr:          httpAddr,
		DataSource:        dataSource,
		DataPath:          dataPath,
		Driver:            driver,
		DSN:               dsn,
		Path:              path,
		MaxOpenConns:      maxOpenConns,
		MaxIdleConns:      maxIdleConns,
		ConnMaxLifetime:   connMaxLifetime,
		LogSQL:            logSQL,
		DateMin:           dateMin,
		DateMax:           dateMax,
		PairplotMaxPoints: maxPoints,
	}, nil
}

func parseDate(s, def, key string) (time.Time, error) {
	if s == "" {
		s = def
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q (expected YYYY-MM-DD): %w", key, s, err)
	}
	return t, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
