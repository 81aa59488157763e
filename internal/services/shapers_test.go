package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
)

func labelsOf(entries []models.SummaryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

func TestStateSummaryJoinsKnownStates(t *testing.T) {
	ds := fixtureDataset()
	pred := monthly(t, ds, 0, 2, filter.Equals(filter.FieldState, "Karnataka"))

	s := ds.StateSummary(pred, []string{"Karnataka"})
	require.Equal(t, models.StatusOK, s.Status)

	want := []models.StateAmount{
		{State: "Delhi", Amount: 150},
		{State: "Goa", Amount: 0},
		{State: "Karnataka", Amount: 300, Selected: true},
		{State: "Maharashtra", Amount: 300},
	}
	assert.Equal(t, want, s.Map, "map ignores the state clause and zero-fills boundary-only states")
}

func TestStateSummaryStatuses(t *testing.T) {
	ds := fixtureDataset()

	s := ds.StateSummary(filter.NoSelection(models.Monthly), nil)
	assert.Equal(t, models.StatusNoSelection, s.Status)
	assert.Len(t, s.Map, 4)
	for _, m := range s.Map {
		assert.Zero(t, m.Amount)
	}

	empty := monthly(t, ds, 0, 2, filter.Equals(filter.FieldCategory, "Saree"))
	s = ds.StateSummary(empty, nil)
	assert.Equal(t, models.StatusNoData, s.Status)
	assert.Empty(t, s.Top)
}

func tenStates(selected ...string) []models.StateAmount {
	sel := make(map[string]bool)
	for _, s := range selected {
		sel[s] = true
	}
	out := make([]models.StateAmount, 0, 10)
	for i := range 10 {
		name := fmt.Sprintf("S%02d", i)
		out = append(out, models.StateAmount{State: name, Amount: float64(100 - i*10), Selected: sel[name]})
	}
	return out
}

func TestTopStatesPreservesSelection(t *testing.T) {
	top := TopStates(tenStates("S07", "S08", "S09"), MaxTopStates)

	require.Len(t, top, 8)
	assert.Equal(t, []string{"S00", "S01", "S02", "S03", "S07", "S08", "S09", OthersLabel}, labelsOf(top))

	others := top[len(top)-1]
	assert.True(t, others.Others)
	assert.InDelta(t, 60.0+50.0+40.0, others.Amount, 1e-9)
	for _, e := range top[4:7] {
		assert.True(t, e.Selected, e.Label)
	}
}

func TestTopStatesManySelected(t *testing.T) {
	top := TopStates(tenStates("S01", "S02", "S03", "S04", "S05", "S06", "S07", "S08", "S09"), MaxTopStates)

	assert.Equal(t, []string{"S01", "S02", "S03", "S04", "S05", "S06", "S07", OthersLabel}, labelsOf(top))
	assert.InDelta(t, 100.0+20.0+10.0, top[len(top)-1].Amount, 1e-9)
}

func TestTopStatesNoRemainder(t *testing.T) {
	states := tenStates()[:5]
	top := TopStates(states, MaxTopStates)

	assert.Len(t, top, 5)
	for _, e := range top {
		assert.False(t, e.Others)
	}
}

func TestTopStatesTiesBreakByName(t *testing.T) {
	states := []models.StateAmount{
		{State: "Goa", Amount: 10},
		{State: "Assam", Amount: 10},
		{State: "Bihar", Amount: 20},
	}
	assert.Equal(t, []string{"Bihar", "Assam", "Goa"}, labelsOf(TopStates(states, MaxTopStates)))
}

func TestTopNCategories(t *testing.T) {
	sums := make(map[string]float64)
	var total float64
	for i := range 12 {
		v := float64((i + 1) * 10)
		sums[fmt.Sprintf("C%02d", i)] = v
		total += v
	}

	entries := TopN(sums, MaxTopCategories)
	require.Len(t, entries, MaxTopCategories+1)
	assert.Equal(t, []string{"C11", "C10", "C09", "C08", "C07", OthersLabel}, labelsOf(entries))

	var sum, pct float64
	for _, e := range entries {
		sum += e.Amount
		pct += e.Percentage
	}
	assert.InDelta(t, total, sum, 1e-9)
	assert.InDelta(t, 100.0, pct, 1e-9)
	assert.True(t, entries[len(entries)-1].Others)
}

func TestCategorySummary(t *testing.T) {
	ds := fixtureDataset()

	c := ds.CategorySummary(monthly(t, ds, 0, 2))
	require.Equal(t, models.StatusOK, c.Status)
	assert.Equal(t, []string{"Kurta", "Western Dress", "Set"}, labelsOf(c.Entries))

	promo := monthly(t, ds, 0, 0, filter.Equals(filter.FieldPromotion, "true"))
	assert.Equal(t, models.StatusNoData, ds.CategorySummary(promo).Status)
	assert.Equal(t, models.StatusNoSelection, ds.CategorySummary(filter.NoSelection(models.Monthly)).Status)
}

func TestCategorySummaryAllZeroIsOK(t *testing.T) {
	ds := fixtureDataset()
	pred := monthly(t, ds, 1, 1, filter.Equals(filter.FieldStatus, "Cancelled"))

	c := ds.CategorySummary(pred)
	assert.Equal(t, models.StatusOK, c.Status)
	require.Len(t, c.Entries, 1)
	assert.Zero(t, c.Entries[0].Amount)
	assert.Zero(t, c.Entries[0].Percentage)
}

func TestTimeSeriesMonthly(t *testing.T) {
	ds := fixtureDataset()
	ts := ds.TimeSeries(monthly(t, ds, 0, 2))

	require.Equal(t, models.StatusOK, ts.Status)
	assert.Equal(t, "year_month", ts.Field)
	assert.Equal(t, []models.SeriesPoint{
		{Period: "2022-03", Date: "2022-03-01", Amount: 100},
		{Period: "2022-04", Date: "2022-04-01", Amount: 200},
		{Period: "2022-05", Date: "2022-05-01", Amount: 450},
	}, ts.Points)
}

func TestTimeSeriesWeekly(t *testing.T) {
	ds := fixtureDataset()
	labels, ok := ds.Index.Range(models.Weekly, 0, 4)
	require.True(t, ok)
	pred := filter.New(models.Weekly, filter.PeriodRange(filter.FieldYearWeek, 0, 4, labels))

	ts := ds.TimeSeries(pred)
	require.Equal(t, models.StatusOK, ts.Status)
	require.Len(t, ts.Points, 5)
	assert.Equal(t, "2022-03-28", ts.Points[0].Date)
	assert.Equal(t, "2022-05-09", ts.Points[4].Date)
	for i := 1; i < len(ts.Points); i++ {
		assert.Less(t, ts.Points[i-1].Date, ts.Points[i].Date)
	}
}

func TestTimeSeriesStatuses(t *testing.T) {
	ds := fixtureDataset()
	assert.Equal(t, models.StatusNoSelection, ds.TimeSeries(filter.NoSelection(models.Weekly)).Status)

	empty := monthly(t, ds, 0, 2, filter.Equals(filter.FieldFulfillment, "Easy Ship"))
	assert.Equal(t, models.StatusNoData, ds.TimeSeries(empty).Status)
}
