package httpapi

import (
	"database/sql"
	"io/fs"
	"net/http"
)

// NewMux returns a mux serving /healthz and the static assets in static.
// db may be nil when the dataset is read from CSV.
func NewMux(db *sql.DB, static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return mux
}
