package dataset

import (
	"slices"
	"strings"
	"time"

	"ecommerce-dashboard/internal/models"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// PeriodIndex holds the chronologically ordered distinct months and weeks of
// the loaded table. Slider positions address these lists.
type PeriodIndex struct {
	months   []string
	weeks    []string
	monthPos map[string]int
	weekPos  map[string]int
}

func BuildIndex(rows []models.FactRow) *PeriodIndex {
	monthSet := make(map[string]struct{})
	weekSet := make(map[string]struct{})
	for _, r := range rows {
		if r.YearMonth != "" {
			monthSet[r.YearMonth] = struct{}{}
		}
		if r.YearWeek != "" {
			weekSet[r.YearWeek] = struct{}{}
		}
	}

	months := keys(monthSet)
	slices.SortFunc(months, func(a, b string) int {
		return compareDated(a, b, MonthStart)
	})
	weeks := keys(weekSet)
	slices.SortFunc(weeks, func(a, b string) int {
		return compareDated(a, b, WeekStart)
	})

	return &PeriodIndex{
		months:   months,
		weeks:    weeks,
		monthPos: positions(months),
		weekPos:  positions(weeks),
	}
}

func (ix *PeriodIndex) list(g models.Granularity) []string {
	if g == models.Weekly {
		return ix.weeks
	}
	return ix.months
}

// Labels returns a copy of the ordered labels for a granularity.
func (ix *PeriodIndex) Labels(g models.Granularity) []string {
	return slices.Clone(ix.list(g))
}

func (ix *PeriodIndex) Len(g models.Granularity) int {
	return len(ix.list(g))
}

func (ix *PeriodIndex) Label(g models.Granularity, i int) (string, bool) {
	l := ix.list(g)
	if i < 0 || i >= len(l) {
		return "", false
	}
	return l[i], true
}

func (ix *PeriodIndex) Position(g models.Granularity, label string) (int, bool) {
	pos := ix.monthPos
	if g == models.Weekly {
		pos = ix.weekPos
	}
	i, ok := pos[label]
	return i, ok
}

// Range returns the labels in the closed range [start, end]. It reports
// false when the range is inverted or falls outside the index.
func (ix *PeriodIndex) Range(g models.Granularity, start, end int) ([]string, bool) {
	l := ix.list(g)
	if start < 0 || end < start || end >= len(l) {
		return nil, false
	}
	return slices.Clone(l[start : end+1]), true
}

// MonthStart parses a "YYYY-MM" label to the first day of that month.
func MonthStart(label string) (time.Time, error) {
	return time.Parse(monthLayout, strings.TrimSpace(label))
}

// WeekStart parses the start date of a "YYYY-MM-DD/YYYY-MM-DD" week token.
func WeekStart(token string) (time.Time, error) {
	start, _, _ := strings.Cut(token, "/")
	return time.Parse(dayLayout, strings.TrimSpace(start))
}

// PeriodDate returns the plottable date ("YYYY-MM-DD") for a period label.
func PeriodDate(g models.Granularity, label string) string {
	parse := MonthStart
	if g == models.Weekly {
		parse = WeekStart
	}
	t, err := parse(label)
	if err != nil {
		return label
	}
	return t.Format(dayLayout)
}

func compareDated(a, b string, parse func(string) (time.Time, error)) int {
	ta, errA := parse(a)
	tb, errB := parse(b)
	switch {
	case errA == nil && errB == nil:
		if c := ta.Compare(tb); c != 0 {
			return c
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func positions(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}
