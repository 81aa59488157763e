package models

import "encoding/json"

// FactRow is one pre-aggregated order summary keyed by month, week, status,
// fulfillment, category, state and promotion flag.
type FactRow struct {
	YearMonth   string  `json:"year_month"`
	YearWeek    string  `json:"year_week"`
	Status      string  `json:"status"`
	Fulfillment string  `json:"fulfillment"`
	Category    string  `json:"category"`
	State       string  `json:"state"`
	IsPromotion bool    `json:"is_promotion"`
	OrderCount  int64   `json:"order_count"`
	Qty         float64 `json:"qty"`
	Amount      float64 `json:"amount"`
}

// Boundary is one state or territory shape from the geographic layer.
type Boundary struct {
	State    string          `json:"state"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

const (
	FulfillmentAmazon   = "Amazon"
	FulfillmentMerchant = "Merchant"
	FulfillmentBoth     = "Both"
)

// Granularity selects which period control and field drive a selection.
type Granularity string

const (
	Monthly Granularity = "Monthly"
	Weekly  Granularity = "Weekly"
)

const (
	FieldYearMonth = "year_month"
	FieldYearWeek  = "year_week"
)

// Field returns the fact row column the granularity filters and groups on.
func (g Granularity) Field() string {
	if g == Weekly {
		return FieldYearWeek
	}
	return FieldYearMonth
}

// PeriodsPerYear is used to annualize growth across a selected range.
func (g Granularity) PeriodsPerYear() float64 {
	if g == Weekly {
		return 52
	}
	return 12
}

func (g Granularity) Valid() bool {
	return g == Monthly || g == Weekly
}
