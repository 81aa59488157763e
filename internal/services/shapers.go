package services

import (
	"cmp"
	"slices"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
)

const (
	MaxTopStates     = 7
	MaxTopCategories = 5
	OthersLabel      = "Others"
)

// StateSummary sums revenue by state for the predicate without its state
// clause, so the map keeps every state visible while the selection is
// highlighted. Map is zero-filled over the known states.
func (d *Dataset) StateSummary(pred filter.Predicate, selected []string) models.StateSummary {
	selSet := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		selSet[s] = struct{}{}
	}

	sums := make(map[string]float64, len(d.KnownStates))
	matched := 0
	if !pred.IsNoSelection() {
		match := pred.Without(filter.FieldState).Matcher()
		for i := range d.Facts {
			r := &d.Facts[i]
			if match(r) {
				sums[r.State] += r.Amount
				matched++
			}
		}
	}

	out := models.StateSummary{Map: make([]models.StateAmount, 0, len(d.KnownStates))}
	for _, s := range d.KnownStates {
		_, isSel := selSet[s]
		out.Map = append(out.Map, models.StateAmount{State: s, Amount: sums[s], Selected: isSel})
	}

	switch {
	case pred.IsNoSelection():
		out.Status = models.StatusNoSelection
	case matched == 0:
		out.Status = models.StatusNoData
	default:
		out.Status = models.StatusOK
		out.Top = TopStates(out.Map, MaxTopStates)
	}
	return out
}

// TopStates ranks states by amount and keeps limit entries, never dropping a
// selected state unless more than limit are selected, in which case the
// largest selected states win. The rest is folded into a trailing Others
// entry when non-empty.
func TopStates(states []models.StateAmount, limit int) []models.SummaryEntry {
	ranked := slices.Clone(states)
	slices.SortFunc(ranked, func(a, b models.StateAmount) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.State, b.State)
	})

	nSelected := 0
	for _, s := range ranked {
		if s.Selected {
			nSelected++
		}
	}
	room := limit - nSelected

	var total float64
	keep := make([]bool, len(ranked))
	kept := 0
	for i, s := range ranked {
		total += s.Amount
		switch {
		case kept >= limit:
		case s.Selected:
			keep[i] = true
			kept++
		case room > 0:
			keep[i] = true
			kept++
			room--
		}
	}

	out := make([]models.SummaryEntry, 0, kept+1)
	var rest float64
	restCount := 0
	for i, s := range ranked {
		if !keep[i] {
			rest += s.Amount
			restCount++
			continue
		}
		out = append(out, models.SummaryEntry{
			Label:      s.State,
			Amount:     s.Amount,
			Percentage: percentage(s.Amount, total),
			Selected:   s.Selected,
		})
	}
	if restCount > 0 {
		out = append(out, models.SummaryEntry{
			Label:      OthersLabel,
			Amount:     rest,
			Percentage: percentage(rest, total),
			Others:     true,
		})
	}
	return out
}

// CategorySummary is the top categories by revenue plus Others.
func (d *Dataset) CategorySummary(pred filter.Predicate) models.CategorySummary {
	if pred.IsNoSelection() {
		return models.CategorySummary{Outcome: models.Outcome{Status: models.StatusNoSelection}}
	}

	match := pred.Matcher()
	sums := make(map[string]float64)
	matched := 0
	for i := range d.Facts {
		r := &d.Facts[i]
		if match(r) {
			sums[r.Category] += r.Amount
			matched++
		}
	}
	if matched == 0 {
		return models.CategorySummary{Outcome: models.Outcome{Status: models.StatusNoData}}
	}

	return models.CategorySummary{
		Outcome: models.Outcome{Status: models.StatusOK},
		Entries: TopN(sums, MaxTopCategories),
	}
}

// TopN keeps the n largest groups, ties broken by label, and folds the
// remainder into Others.
func TopN(sums map[string]float64, n int) []models.SummaryEntry {
	labels := make([]string, 0, len(sums))
	var total float64
	for label, v := range sums {
		labels = append(labels, label)
		total += v
	}
	slices.SortFunc(labels, func(a, b string) int {
		if c := cmp.Compare(sums[b], sums[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	head := labels
	if len(head) > n {
		head = labels[:n]
	}
	out := make([]models.SummaryEntry, 0, len(head)+1)
	for _, label := range head {
		out = append(out, models.SummaryEntry{
			Label:      label,
			Amount:     sums[label],
			Percentage: percentage(sums[label], total),
		})
	}
	if len(labels) > n {
		var rest float64
		for _, label := range labels[n:] {
			rest += sums[label]
		}
		out = append(out, models.SummaryEntry{
			Label:      OthersLabel,
			Amount:     rest,
			Percentage: percentage(rest, total),
			Others:     true,
		})
	}
	return out
}

// TimeSeries sums revenue per period of the predicate's period field in
// chronological order. Weekly points are dated by the week's start.
func (d *Dataset) TimeSeries(pred filter.Predicate) models.TimeSeries {
	g := pred.Granularity()
	field, _ := d.scope(pred)
	out := models.TimeSeries{Field: string(field)}

	if pred.IsNoSelection() {
		out.Status = models.StatusNoSelection
		return out
	}

	match := pred.Matcher()
	sums := make(map[string]float64)
	for i := range d.Facts {
		r := &d.Facts[i]
		if match(r) {
			sums[field.Value(r)] += r.Amount
		}
	}
	if len(sums) == 0 {
		out.Status = models.StatusNoData
		return out
	}

	periods := make([]string, 0, len(sums))
	for p := range sums {
		periods = append(periods, p)
	}
	slices.SortFunc(periods, func(a, b string) int {
		pa, okA := d.Index.Position(g, a)
		pb, okB := d.Index.Position(g, b)
		if okA && okB {
			return cmp.Compare(pa, pb)
		}
		return cmp.Compare(a, b)
	})

	out.Status = models.StatusOK
	out.Points = make([]models.SeriesPoint, 0, len(periods))
	for _, p := range periods {
		out.Points = append(out.Points, models.SeriesPoint{
			Period: p,
			Date:   dataset.PeriodDate(g, p),
			Amount: sums[p],
		})
	}
	return out
}

func percentage(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}
