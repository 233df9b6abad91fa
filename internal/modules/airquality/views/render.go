package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"airquality-dashboard/internal/modules/airquality/charts"
	"airquality-dashboard/internal/modules/airquality/dashboard"
)

const (
	TabQuarterly    = 1
	TabRelationship = 2

	dateLayout = "2006-01-02"
)

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"num": func(v float64) string {
		if math.IsNaN(v) {
			return "-"
		}
		return fmt.Sprintf("%.2f", v)
	},
	"join": strings.Join,
}

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// Static returns the embedded stylesheet directory for the /static/ route.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Page is the view model for the full dashboard page.
type Page struct {
	Title    string
	DateMin  string
	DateMax  string
	Start    string
	End      string
	Station  string
	Stations []string
	// Total is the number of measurements in the loaded dataset.
	Total int
	Views *ViewsData
}

type QuarterlyData struct {
	dashboard.QuarterlyView
	Chart  template.HTML
	Legend []charts.Swatch
}

type RelationshipData struct {
	dashboard.RelationshipView
	Periodic bool
	Columns  []string
	Heatmap  [][]charts.HeatCell
	Panels   [][]template.HTML
}

// ViewsData is the view model of the tab area; it is also the HTMX partial.
type ViewsData struct {
	Tab             int
	Query           template.URL
	Start           string
	End             string
	Station         string
	TabQuarterly    string
	TabRelationship string
	Quarterly       QuarterlyData
	Relationship    RelationshipData
}

// BuildViews renders the charts of the selected tab from vm.
func BuildViews(vm dashboard.ViewModel, tab int) (*ViewsData, error) {
	if tab != TabRelationship {
		tab = TabQuarterly
	}
	start := vm.Criteria.Start.Format(dateLayout)
	end := vm.Criteria.End.Format(dateLayout)
	station := vm.Criteria.Station
	if vm.Criteria.AllStations() {
		station = vm.Stations[0]
	}

	q := url.Values{}
	q.Set("start", start)
	q.Set("end", end)
	q.Set("station", station)

	data := &ViewsData{
		Tab:             tab,
		Query:           template.URL(q.Encode()),
		Start:           start,
		End:             end,
		Station:         station,
		TabQuarterly:    dashboard.TabQuarterly,
		TabRelationship: dashboard.TabRelationship,
		Quarterly:       QuarterlyData{QuarterlyView: vm.Quarterly},
		Relationship: RelationshipData{
			RelationshipView: vm.Relationship,
			Periodic:         vm.Quarterly.Periodic,
		},
	}

	if tab == TabQuarterly {
		var err error
		if vm.Quarterly.Periodic {
			data.Quarterly.Chart, err = charts.PeriodLines(vm.Quarterly.Title, vm.Quarterly.Rows, vm.Quarterly.Periods)
		} else {
			data.Quarterly.Chart, err = charts.QuarterlyBars(vm.Quarterly.Title, vm.Quarterly.Rows)
		}
		if err != nil {
			return nil, err
		}
		data.Quarterly.Legend = charts.Legend(vm.Quarterly.Rows)
		return data, nil
	}

	if vm.Relationship.Empty {
		return data, nil
	}
	panels, err := charts.PairplotPanels(vm.Relationship.Pairplot)
	if err != nil {
		return nil, err
	}
	data.Relationship.Columns = vm.Relationship.Matrix.Columns
	data.Relationship.Heatmap = charts.Heatmap(vm.Relationship.Matrix)
	data.Relationship.Panels = panels
	return data, nil
}

func RenderDashboard(w io.Writer, data *Page) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderViewsPartial executes only the tab area into w.
// Use for HTMX fragment refresh.
func RenderViewsPartial(w io.Writer, data *ViewsData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/views.html", data)
}
