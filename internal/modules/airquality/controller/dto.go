package controller

import (
	"math"

	"airquality-dashboard/internal/modules/airquality/analysis"
	"airquality-dashboard/internal/modules/airquality/dashboard"
	"airquality-dashboard/internal/modules/airquality/types"
)

type criteriaDTO struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Station string `json:"station"`
}

type aggregateRowDTO struct {
	Station string   `json:"station"`
	Label   string   `json:"label"`
	Mean    *float64 `json:"mean"`
	Max     *float64 `json:"max"`
	Min     *float64 `json:"min"`
}

type aggregatesResponse struct {
	Criteria criteriaDTO       `json:"criteria"`
	Policy   string            `json:"policy"`
	Periods  []string          `json:"periods"`
	Rows     []aggregateRowDTO `json:"rows"`
}

type correlationResponse struct {
	Criteria criteriaDTO  `json:"criteria"`
	Empty    bool         `json:"empty"`
	Columns  []string     `json:"columns"`
	Values   [][]*float64 `json:"values"`
}

func newCriteriaDTO(c types.Criteria) criteriaDTO {
	return criteriaDTO{
		Start:   c.Start.Format(dateLayout),
		End:     c.End.Format(dateLayout),
		Station: c.Station,
	}
}

func newAggregatesResponse(c types.Criteria, a dashboard.Aggregates) aggregatesResponse {
	rows := make([]aggregateRowDTO, len(a.Rows))
	for i, r := range a.Rows {
		rows[i] = aggregateRowDTO{
			Station: r.Station,
			Label:   r.Label,
			Mean:    finite(r.Mean),
			Max:     finite(r.Max),
			Min:     finite(r.Min),
		}
	}
	periods := a.Periods
	if periods == nil {
		periods = []string{}
	}
	return aggregatesResponse{
		Criteria: newCriteriaDTO(c),
		Policy:   a.Policy,
		Periods:  periods,
		Rows:     rows,
	}
}

func newCorrelationResponse(c types.Criteria, m analysis.Matrix, empty bool) correlationResponse {
	resp := correlationResponse{
		Criteria: newCriteriaDTO(c),
		Empty:    empty,
		Columns:  []string{},
		Values:   [][]*float64{},
	}
	if empty {
		return resp
	}
	resp.Columns = m.Columns
	resp.Values = make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		resp.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			resp.Values[i][j] = finite(v)
		}
	}
	return resp
}

// finite maps NaN and infinities to nil so they encode as JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
