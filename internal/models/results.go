package models

// Status tells the presentation layer how to render a shaped result.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNoData      Status = "no_data"
	StatusNoSelection Status = "no_selection"
	StatusError       Status = "error"
)

// Outcome is embedded in every shaped result.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (o Outcome) OK() bool { return o.Status == StatusOK }

func Failed(reason string) Outcome {
	return Outcome{Status: StatusError, Reason: reason}
}

type StateAmount struct {
	State    string  `json:"state"`
	Amount   float64 `json:"amount"`
	Selected bool    `json:"selected"`
}

type SummaryEntry struct {
	Label      string  `json:"label"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	Selected   bool    `json:"selected,omitempty"`
	Others     bool    `json:"others,omitempty"`
}

// StateSummary feeds both the choropleth (Map) and the per-state bar chart (Top).
type StateSummary struct {
	Outcome
	Map []StateAmount  `json:"map"`
	Top []SummaryEntry `json:"top"`
}

type CategorySummary struct {
	Outcome
	Entries []SummaryEntry `json:"entries"`
}

type SeriesPoint struct {
	Period string  `json:"period"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type TimeSeries struct {
	Outcome
	Field  string        `json:"field"`
	Points []SeriesPoint `json:"points"`
}

// Growth is a percentage that may be not applicable, e.g. a compound rate
// measured from a zero starting value.
type Growth struct {
	Value      float64 `json:"value"`
	Applicable bool    `json:"applicable"`
}

type MetricCard struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Period string  `json:"period"`
	PoP    float64 `json:"pop"`
	CAGR   *Growth `json:"cagr,omitempty"`
}

type Metrics struct {
	Outcome
	Revenue    MetricCard `json:"revenue"`
	Quantity   MetricCard `json:"quantity"`
	Completion MetricCard `json:"completion"`
}
