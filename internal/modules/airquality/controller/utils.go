package controller

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	lev "github.com/agnivade/levenshtein"

	"airquality-dashboard/internal/modules/airquality/types"
	"airquality-dashboard/internal/modules/airquality/views"
)

const dateLayout = "2006-01-02"

// parseCriteria reads start, end and station from the query. Missing dates
// default to the bounds and dates outside the bounds are clamped to them.
func parseCriteria(r *http.Request, b Bounds) (types.Criteria, error) {
	q := r.URL.Query()

	start, err := parseDate(q.Get("start"), b.Min, "start")
	if err != nil {
		return types.Criteria{}, err
	}
	end, err := parseDate(q.Get("end"), b.Max, "end")
	if err != nil {
		return types.Criteria{}, err
	}

	station := strings.TrimSpace(q.Get("station"))
	if station == "" {
		station = types.AllStations
	}

	return types.Criteria{
		Start:   clamp(start, b),
		End:     clamp(end, b),
		Station: station,
	}, nil
}

func parseDate(s string, def time.Time, name string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid '%s' (expected YYYY-MM-DD)", name)
	}
	return t, nil
}

func clamp(t time.Time, b Bounds) time.Time {
	if t.Before(b.Min) {
		return b.Min
	}
	if t.After(b.Max) {
		return b.Max
	}
	return t
}

// parseTab selects the relationship tab for tab=2 and the quarterly tab otherwise.
func parseTab(r *http.Request) int {
	if r.URL.Query().Get("tab") == "2" {
		return views.TabRelationship
	}
	return views.TabQuarterly
}

// unknownStationError is returned by knownStation; its message names the
// closest station when one is within editing distance.
type unknownStationError struct {
	station    string
	suggestion string
}

func (e unknownStationError) Error() string {
	if e.suggestion == "" {
		return fmt.Sprintf("unknown station %q", e.station)
	}
	return fmt.Sprintf("unknown station %q, did you mean %q?", e.station, e.suggestion)
}

// knownStation accepts AllStations and any station in stations. Other
// names fail with the closest candidate, compared case-insensitively.
func knownStation(station string, stations []string) error {
	if station == types.AllStations {
		return nil
	}
	best, bestDist := "", -1
	for _, s := range stations {
		if s == station {
			return nil
		}
		d := lev.ComputeDistance(strings.ToLower(station), strings.ToLower(s))
		if bestDist < 0 || d < bestDist {
			best, bestDist = s, d
		}
	}
	if bestDist < 0 || bestDist > maxSuggestDistance(station) {
		best = ""
	}
	return unknownStationError{station: station, suggestion: best}
}

func maxSuggestDistance(station string) int {
	if n := len(station) / 3; n > 2 {
		return n
	}
	return 2
}
