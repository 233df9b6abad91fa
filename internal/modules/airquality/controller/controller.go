package controller

import (
	"net/http"
	"time"

	"airquality-dashboard/internal/modules/airquality/dashboard"
	"airquality-dashboard/internal/modules/airquality/dataset"
)

// Bounds limits the selectable dates; requests outside are clamped.
type Bounds struct {
	Min time.Time
	Max time.Time
}

type DashboardController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type dashboardControllerImpl struct {
	dataset *dataset.Dataset
	bounds  Bounds
	opts    dashboard.Options
}

func NewDashboardController(ds *dataset.Dataset, bounds Bounds, opts dashboard.Options) DashboardController {
	return &dashboardControllerImpl{dataset: ds, bounds: bounds, opts: opts}
}

func (c *dashboardControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/views", c.handleViewsPartial)
	mux.HandleFunc("GET /api/v1/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1/aggregates", c.handleAggregates)
	mux.HandleFunc("GET /api/v1/correlation", c.handleCorrelation)
	mux.HandleFunc("GET /api/v1/export.xlsx", c.handleExport)
}
