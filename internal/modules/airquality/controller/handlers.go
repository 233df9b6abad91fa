package controller

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"airquality-dashboard/internal/modules/airquality/dashboard"
	"airquality-dashboard/internal/modules/airquality/export"
	"airquality-dashboard/internal/modules/airquality/views"
	"airquality-dashboard/internal/utils"
)

func (c *dashboardControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	criteria, err := parseCriteria(r, c.bounds)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	vm, err := dashboard.Render(c.dataset, criteria, c.opts)
	if err != nil {
		slog.Error("dashboard: render view model failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}
	data, err := views.BuildViews(vm, parseTab(r))
	if err != nil {
		slog.Error("dashboard: build charts failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render charts")
		return
	}

	page := &views.Page{
		Title:    vm.Title,
		DateMin:  c.bounds.Min.Format(dateLayout),
		DateMax:  c.bounds.Max.Format(dateLayout),
		Start:    data.Start,
		End:      data.End,
		Station:  data.Station,
		Stations: vm.Stations,
		Total:    c.dataset.Len(),
		Views:    data,
	}
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, page); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, r, buf.Bytes())
}

func (c *dashboardControllerImpl) handleViewsPartial(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r, c.bounds)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	vm, err := dashboard.Render(c.dataset, criteria, c.opts)
	if err != nil {
		slog.Error("views partial: render view model failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}
	data, err := views.BuildViews(vm, parseTab(r))
	if err != nil {
		slog.Error("views partial: build charts failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render charts")
		return
	}

	// The partial URL is not a page; history gets the full-page URL instead.
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Push-Url", "/?"+string(data.Query)+"&tab="+strconv.Itoa(data.Tab))
	}

	var buf bytes.Buffer
	if err := views.RenderViewsPartial(&buf, data); err != nil {
		slog.Error("views partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteHTML(w, r, buf.Bytes())
}

func (c *dashboardControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.dataset.Stations())
}

func (c *dashboardControllerImpl) handleAggregates(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r, c.bounds)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := knownStation(criteria.Station, c.dataset.Stations()); err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	agg, err := dashboard.AggregatesFor(c.dataset, criteria)
	if err != nil {
		slog.Error("aggregates failed", "criteria", criteria, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to aggregate")
		return
	}
	utils.WriteJSON(w, http.StatusOK, newAggregatesResponse(criteria, agg))
}

func (c *dashboardControllerImpl) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r, c.bounds)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := knownStation(criteria.Station, c.dataset.Stations()); err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	m, empty, err := dashboard.CorrelationFor(c.dataset, criteria)
	if err != nil {
		slog.Error("correlation failed", "criteria", criteria, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to correlate")
		return
	}
	utils.WriteJSON(w, http.StatusOK, newCorrelationResponse(criteria, m, empty))
}

func (c *dashboardControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r, c.bounds)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := knownStation(criteria.Station, c.dataset.Stations()); err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	agg, err := dashboard.AggregatesFor(c.dataset, criteria)
	if err != nil {
		slog.Error("export: aggregates failed", "criteria", criteria, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to aggregate")
		return
	}
	m, empty, err := dashboard.CorrelationFor(c.dataset, criteria)
	if err != nil {
		slog.Error("export: correlation failed", "criteria", criteria, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to correlate")
		return
	}

	var buf bytes.Buffer
	wb := export.Workbook{Criteria: criteria, Aggregates: agg, Matrix: m, Empty: empty}
	if err := export.Write(&buf, wb); err != nil {
		slog.Error("export: write workbook failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	name := fmt.Sprintf("airquality_%s_%s.xlsx", criteria.Start.Format(dateLayout), criteria.End.Format(dateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("export: write response failed", "error", err)
	}
}
