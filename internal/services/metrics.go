package services

import (
	"math"
	"strings"

	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
)

// completedStatuses count toward the completion rate.
var completedStatuses = map[string]struct{}{
	"Shipped":                      {},
	"Shipped - Delivered to Buyer": {},
	"Shipped - Picked Up":          {},
	"Shipped - Out for Delivery":   {},
}

func IsCompleted(status string) bool {
	_, ok := completedStatuses[status]
	return ok
}

// Slice narrows an aggregation to specific periods of one period field.
type Slice struct {
	Field   filter.Field
	Periods []string
}

func SlicePeriod(field filter.Field, label string) *Slice {
	return &Slice{Field: field, Periods: []string{label}}
}

type Totals struct {
	Revenue   float64 `json:"revenue"`
	Quantity  float64 `json:"quantity"`
	Orders    int64   `json:"orders"`
	Rows      int     `json:"rows"`
	Completed int     `json:"completed"`
}

// Aggregate totals the rows matching pred. A non-nil slice replaces the
// predicate's period clause with the slice's periods.
func Aggregate(rows []models.FactRow, pred filter.Predicate, slice *Slice) Totals {
	if slice != nil {
		pred = pred.Replace(filter.InSet(slice.Field, slice.Periods))
	}
	match := pred.Matcher()

	var t Totals
	for i := range rows {
		r := &rows[i]
		if !match(r) {
			continue
		}
		t.Revenue += r.Amount
		t.Quantity += r.Qty
		t.Orders += r.OrderCount
		t.Rows++
		if IsCompleted(r.Status) {
			t.Completed++
		}
	}
	return t
}

// CompletionRate is the share of fact rows with a completed status, as a
// percentage. Empty scope yields 0.
func CompletionRate(t Totals) float64 {
	if t.Rows == 0 {
		return 0
	}
	return float64(t.Completed) / float64(t.Rows) * 100
}

// PeriodOverPeriod is the relative change from previous to current in
// percent. A zero or negative previous value yields 0.
func PeriodOverPeriod(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	v := (current - previous) / previous * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// CompoundGrowth annualizes the change from begin to end over a number of
// periods of the given granularity. It is not applicable when begin is
// zero or the result is not finite.
func CompoundGrowth(begin, end float64, periods int, g models.Granularity) models.Growth {
	if begin == 0 || periods <= 0 {
		return models.Growth{}
	}
	years := float64(periods) / float64(g.PeriodsPerYear())
	v := (math.Pow(end/begin, 1/years) - 1) * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Growth{}
	}
	return models.Growth{Value: v, Applicable: true}
}

// Metrics computes the three headline cards for the last period of the
// predicate's range, trended against the preceding index position, with a
// compound growth rate when the range covers more than one period.
func (d *Dataset) Metrics(pred filter.Predicate) models.Metrics {
	if pred.IsNoSelection() {
		return models.Metrics{Outcome: models.Outcome{Status: models.StatusNoSelection}}
	}

	g := pred.Granularity()
	field, periods := d.scope(pred)
	if len(periods) == 0 {
		return models.Metrics{Outcome: models.Outcome{Status: models.StatusNoData}}
	}

	current := periods[len(periods)-1]
	cur := Aggregate(d.Facts, pred, SlicePeriod(field, current))

	var prev Totals
	if pos, ok := d.Index.Position(g, current); ok {
		if label, ok := d.Index.Label(g, pos-1); ok {
			prev = Aggregate(d.Facts, pred, SlicePeriod(field, label))
		}
	}

	caption := periodCaption(current)
	m := models.Metrics{
		Outcome: models.Outcome{Status: models.StatusOK},
		Revenue: models.MetricCard{
			Name:   "Revenue",
			Value:  cur.Revenue,
			Period: caption,
			PoP:    PeriodOverPeriod(cur.Revenue, prev.Revenue),
		},
		Quantity: models.MetricCard{
			Name:   "Quantity",
			Value:  cur.Quantity,
			Period: caption,
			PoP:    PeriodOverPeriod(cur.Quantity, prev.Quantity),
		},
		Completion: models.MetricCard{
			Name:   "Completion Rate",
			Value:  CompletionRate(cur),
			Period: caption,
			PoP:    PeriodOverPeriod(CompletionRate(cur), CompletionRate(prev)),
		},
	}

	if len(periods) > 1 {
		begin := Aggregate(d.Facts, pred, SlicePeriod(field, periods[0]))
		n := len(periods)
		revenue := CompoundGrowth(begin.Revenue, cur.Revenue, n, g)
		quantity := CompoundGrowth(begin.Quantity, cur.Quantity, n, g)
		completion := CompoundGrowth(CompletionRate(begin), CompletionRate(cur), n, g)
		m.Revenue.CAGR = &revenue
		m.Quantity.CAGR = &quantity
		m.Completion.CAGR = &completion
	}

	if total := Aggregate(d.Facts, pred, nil); total.Rows == 0 {
		m.Status = models.StatusNoData
	}
	return m
}

// Headline is the landing summary: latest month over the whole table,
// trended against the month before.
func (d *Dataset) Headline() models.Metrics {
	n := d.Index.Len(models.Monthly)
	if n == 0 {
		return models.Metrics{Outcome: models.Outcome{Status: models.StatusNoData}}
	}
	labels, _ := d.Index.Range(models.Monthly, n-1, n-1)
	pred := filter.New(models.Monthly, filter.PeriodRange(filter.FieldYearMonth, n-1, n-1, labels))
	return d.Metrics(pred)
}

// scope returns the predicate's period field and selected periods, falling
// back to every indexed period of its granularity.
func (d *Dataset) scope(pred filter.Predicate) (filter.Field, []string) {
	g := pred.Granularity()
	if field, ok := pred.PeriodField(); ok {
		return field, pred.Periods()
	}
	return filter.Field(g.Field()), d.Index.Labels(g)
}

func periodCaption(label string) string {
	return strings.Replace(label, "/", " to ", 1)
}
