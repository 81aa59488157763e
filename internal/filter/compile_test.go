package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/models"
)

type stubIndex map[models.Granularity][]string

func (s stubIndex) Range(g models.Granularity, start, end int) ([]string, bool) {
	l := s[g]
	if start < 0 || end < start || end >= len(l) {
		return nil, false
	}
	return l[start : end+1], true
}

var testIndex = stubIndex{
	models.Monthly: {"2022-03", "2022-04", "2022-05", "2022-06"},
	models.Weekly: {
		"2022-03-28/2022-04-03",
		"2022-04-04/2022-04-10",
		"2022-04-11/2022-04-17",
	},
}

func TestCompilePeriodRange(t *testing.T) {
	tests := []struct {
		name     string
		controls Controls
		field    Field
		want     []string
	}{
		{
			name:     "monthly closed range",
			controls: Controls{Granularity: models.Monthly, MonthRange: []int{1, 3}, WeekRange: []int{0, 0}},
			field:    FieldYearMonth,
			want:     []string{"2022-04", "2022-05", "2022-06"},
		},
		{
			name:     "single month",
			controls: Controls{Granularity: models.Monthly, MonthRange: []int{2, 2}},
			field:    FieldYearMonth,
			want:     []string{"2022-05"},
		},
		{
			name:     "single element range",
			controls: Controls{Granularity: models.Monthly, MonthRange: []int{0}},
			field:    FieldYearMonth,
			want:     []string{"2022-03"},
		},
		{
			name:     "weekly ignores month range",
			controls: Controls{Granularity: models.Weekly, MonthRange: []int{0, 3}, WeekRange: []int{1, 2}},
			field:    FieldYearWeek,
			want:     []string{"2022-04-04/2022-04-10", "2022-04-11/2022-04-17"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compile(tt.controls, testIndex)
			require.False(t, p.IsNoSelection())

			field, ok := p.PeriodField()
			require.True(t, ok)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.want, p.Periods())
		})
	}
}

func TestCompileUnresolvableRangeIsNoSelection(t *testing.T) {
	ranges := map[string][]int{
		"nil":          nil,
		"inverted":     {3, 1},
		"negative":     {-1, 2},
		"out of range": {2, 9},
		"too long":     {0, 1, 2},
	}
	for name, rng := range ranges {
		t.Run(name, func(t *testing.T) {
			p := Compile(Controls{Granularity: models.Monthly, MonthRange: rng, WeekRange: []int{0, 1}}, testIndex)
			assert.True(t, p.IsNoSelection())
			assert.Equal(t, models.Monthly, p.Granularity())
		})
	}
}

func TestCompileClauses(t *testing.T) {
	c := Controls{
		Granularity:    models.Monthly,
		MonthRange:     []int{0, 1},
		PromotionOnly:  true,
		Fulfillment:    "Merchant",
		StatusGroups:   []string{"Pending", "Cancelled"},
		SelectedStates: []string{"Goa", "Assam", "Goa"},
	}
	p := Compile(c, testIndex)

	clauses := p.Clauses()
	require.Len(t, clauses, 5)
	assert.Equal(t, []Field{FieldYearMonth, FieldPromotion, FieldFulfillment, FieldStatus, FieldState},
		[]Field{clauses[0].Field, clauses[1].Field, clauses[2].Field, clauses[3].Field, clauses[4].Field})

	assert.Equal(t, Equals(FieldPromotion, "true"), clauses[1])
	assert.Equal(t, Equals(FieldFulfillment, "Merchant"), clauses[2])
	assert.Equal(t, KindInSet, clauses[3].Kind)
	assert.Equal(t, []string{"Cancelled", "Pending", "Pending - Waiting for Pick Up", "Shipping"}, clauses[3].Values)
	assert.Equal(t, InSet(FieldState, []string{"Assam", "Goa"}), clauses[4])
}

func TestCompileDefaultsAddNoClauses(t *testing.T) {
	p := Compile(Controls{Granularity: models.Monthly, MonthRange: []int{0, 3}, Fulfillment: "Both"}, testIndex)
	assert.Len(t, p.Clauses(), 1, "empty status groups, Both and no promotion filter leave only the period")

	single := Compile(Controls{Granularity: models.Monthly, MonthRange: []int{0, 3}, SelectedStates: []string{"Goa"}}, testIndex)
	c, ok := single.Clause(FieldState)
	require.True(t, ok)
	assert.Equal(t, KindEquals, c.Kind)
}

func TestCompileIsDeterministic(t *testing.T) {
	c := Controls{
		Granularity:    models.Weekly,
		WeekRange:      []int{0, 2},
		StatusGroups:   []string{"Shipped"},
		SelectedStates: []string{"Kerala", "Bihar"},
	}
	reordered := c
	reordered.SelectedStates = []string{"Bihar", "Kerala"}

	a, b := Compile(c, testIndex), Compile(reordered, testIndex)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
}

func TestCompileGranularitySwitch(t *testing.T) {
	c := Controls{Granularity: models.Monthly, MonthRange: []int{0, 1}, WeekRange: []int{9, 9}}
	assert.False(t, Compile(c, testIndex).IsNoSelection(), "inactive weekly range must be ignored")

	c.Granularity = models.Weekly
	assert.True(t, Compile(c, testIndex).IsNoSelection())
}

func TestPeriodLabel(t *testing.T) {
	month := Compile(Controls{Granularity: models.Monthly, MonthRange: []int{1, 1}}, testIndex)
	assert.Equal(t, "2022-04", PeriodLabel(month))

	months := Compile(Controls{Granularity: models.Monthly, MonthRange: []int{0, 2}}, testIndex)
	assert.Equal(t, "2022-03 to 2022-05", PeriodLabel(months))

	weeks := Compile(Controls{Granularity: models.Weekly, WeekRange: []int{0, 1}}, testIndex)
	assert.Equal(t, "2022-03-28 to 2022-04-10", PeriodLabel(weeks))

	assert.Empty(t, PeriodLabel(NoSelection(models.Monthly)))
}

func TestDescribe(t *testing.T) {
	rows := []models.FactRow{
		{YearMonth: "2022-04", OrderCount: 1200},
		{YearMonth: "2022-04", OrderCount: 34},
		{YearMonth: "2022-05", OrderCount: 7},
	}
	p := Compile(Controls{Granularity: models.Monthly, MonthRange: []int{1, 1}}, testIndex)
	assert.Equal(t, "Showing 1,234 records for 2022-04.", Describe(p, rows))
	assert.Equal(t, "No period selected.", Describe(NoSelection(models.Monthly), rows))
}
