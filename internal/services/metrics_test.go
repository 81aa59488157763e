package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
)

func monthly(t *testing.T, ds *Dataset, start, end int, extra ...filter.Clause) filter.Predicate {
	t.Helper()
	labels, ok := ds.Index.Range(models.Monthly, start, end)
	require.True(t, ok, "range [%d,%d]", start, end)
	clauses := append([]filter.Clause{filter.PeriodRange(filter.FieldYearMonth, start, end, labels)}, extra...)
	return filter.New(models.Monthly, clauses...)
}

func TestCompletionRate(t *testing.T) {
	rows := []models.FactRow{
		fact("2022-04", "w", "Shipped", "Amazon", "Set", "Goa", false, 1, 1, 10),
		fact("2022-04", "w", "Shipped - Delivered to Buyer", "Amazon", "Set", "Goa", false, 1, 1, 10),
		fact("2022-04", "w", "Shipped - Picked Up", "Amazon", "Set", "Goa", false, 1, 1, 10),
		fact("2022-04", "w", "Cancelled", "Amazon", "Set", "Goa", false, 1, 1, 10),
	}
	totals := Aggregate(rows, filter.New(models.Monthly), nil)

	assert.Equal(t, 4, totals.Rows)
	assert.Equal(t, 3, totals.Completed)
	assert.InDelta(t, 75.0, CompletionRate(totals), 1e-9)
	assert.Equal(t, 0.0, CompletionRate(Totals{}))
}

func TestCompletionRateBounds(t *testing.T) {
	ds := fixtureDataset()
	for _, pred := range []filter.Predicate{
		filter.New(models.Monthly),
		monthly(t, ds, 0, 0),
		monthly(t, ds, 1, 2),
		filter.NoSelection(models.Monthly),
	} {
		rate := CompletionRate(Aggregate(ds.Facts, pred, nil))
		if rate < 0 || rate > 100 {
			t.Errorf("CompletionRate(%s) = %v, want within [0,100]", pred.Key(), rate)
		}
	}
}

func TestPeriodOverPeriod(t *testing.T) {
	tests := []struct {
		name              string
		current, previous float64
		want              float64
	}{
		{"growth", 110, 100, 10},
		{"decline", 50, 100, -50},
		{"zero previous", 5, 0, 0},
		{"both zero", 0, 0, 0},
		{"negative previous", 5, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeriodOverPeriod(tt.current, tt.previous)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestCompoundGrowth(t *testing.T) {
	t.Run("zero begin is not applicable", func(t *testing.T) {
		g := CompoundGrowth(0, 500, 12, models.Monthly)
		assert.False(t, g.Applicable)
	})

	t.Run("two years monthly", func(t *testing.T) {
		g := CompoundGrowth(100, 121, 24, models.Monthly)
		require.True(t, g.Applicable)
		assert.InDelta(t, 10.0, g.Value, 1e-9)
	})

	t.Run("one year weekly", func(t *testing.T) {
		g := CompoundGrowth(100, 200, 52, models.Weekly)
		require.True(t, g.Applicable)
		assert.InDelta(t, 100.0, g.Value, 1e-9)
	})

	t.Run("end zero is total loss", func(t *testing.T) {
		g := CompoundGrowth(100, 0, 12, models.Monthly)
		require.True(t, g.Applicable)
		assert.InDelta(t, -100.0, g.Value, 1e-9)
	})

	t.Run("no periods", func(t *testing.T) {
		assert.False(t, CompoundGrowth(100, 200, 0, models.Monthly).Applicable)
	})
}

func TestAggregateSliceReplacesPeriod(t *testing.T) {
	ds := fixtureDataset()
	pred := monthly(t, ds, 0, 2, filter.Equals(filter.FieldFulfillment, "Amazon"))

	all := Aggregate(ds.Facts, pred, nil)
	assert.InDelta(t, 600.0, all.Revenue, 1e-9)

	may := Aggregate(ds.Facts, pred, SlicePeriod(filter.FieldYearMonth, "2022-05"))
	assert.InDelta(t, 300.0, may.Revenue, 1e-9)
	assert.Equal(t, int64(3), may.Orders)
}

func TestMetrics(t *testing.T) {
	ds := fixtureDataset()
	m := ds.Metrics(monthly(t, ds, 1, 2))

	require.Equal(t, models.StatusOK, m.Status)
	assert.InDelta(t, 450.0, m.Revenue.Value, 1e-9)
	assert.InDelta(t, 125.0, m.Revenue.PoP, 1e-9)
	assert.InDelta(t, 5.0, m.Quantity.Value, 1e-9)
	assert.InDelta(t, 150.0, m.Quantity.PoP, 1e-9)
	assert.InDelta(t, 50.0, m.Completion.Value, 1e-9)
	assert.InDelta(t, 0.0, m.Completion.PoP, 1e-9)
	assert.Equal(t, "2022-05", m.Revenue.Period)

	require.NotNil(t, m.Revenue.CAGR)
	require.True(t, m.Revenue.CAGR.Applicable)
	assert.InDelta(t, (math.Pow(450.0/200.0, 6)-1)*100, m.Revenue.CAGR.Value, 1e-6)
}

func TestMetricsWithoutPreviousPeriod(t *testing.T) {
	ds := fixtureDataset()
	m := ds.Metrics(monthly(t, ds, 0, 0))

	require.Equal(t, models.StatusOK, m.Status)
	assert.InDelta(t, 100.0, m.Revenue.Value, 1e-9)
	assert.Equal(t, 0.0, m.Revenue.PoP)
	assert.Nil(t, m.Revenue.CAGR, "single-period range has no compound growth")
}

func TestMetricsZeroBeginIsNotApplicable(t *testing.T) {
	ds := fixtureDataset()
	m := ds.Metrics(monthly(t, ds, 0, 2, filter.Equals(filter.FieldState, "Karnataka")))

	require.NotNil(t, m.Revenue.CAGR)
	assert.False(t, m.Revenue.CAGR.Applicable)
}

func TestMetricsWeeklyPreviousIsIndexNeighbour(t *testing.T) {
	ds := fixtureDataset()
	labels, ok := ds.Index.Range(models.Weekly, 3, 3)
	require.True(t, ok)
	pred := filter.New(models.Weekly, filter.PeriodRange(filter.FieldYearWeek, 3, 3, labels))

	m := ds.Metrics(pred)
	assert.InDelta(t, 300.0, m.Revenue.Value, 1e-9)
	// Week 2 is the cancelled zero-amount week.
	assert.Equal(t, 0.0, m.Revenue.PoP)
	assert.Equal(t, "2022-05-02 to 2022-05-08", m.Revenue.Period)
}

func TestMetricsStatuses(t *testing.T) {
	ds := fixtureDataset()

	assert.Equal(t, models.StatusNoSelection, ds.Metrics(filter.NoSelection(models.Monthly)).Status)

	empty := monthly(t, ds, 0, 2, filter.Equals(filter.FieldCategory, "Saree"))
	assert.Equal(t, models.StatusNoData, ds.Metrics(empty).Status)
}

func TestHeadline(t *testing.T) {
	ds := fixtureDataset()
	h := ds.Headline()

	require.Equal(t, models.StatusOK, h.Status)
	assert.InDelta(t, 450.0, h.Revenue.Value, 1e-9)
	assert.InDelta(t, 125.0, h.Revenue.PoP, 1e-9)
	assert.Nil(t, h.Revenue.CAGR)
}
