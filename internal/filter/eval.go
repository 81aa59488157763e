package filter

import "ecommerce-dashboard/internal/models"

type compiledClause struct {
	field Field
	set   map[string]struct{}
}

// Matcher builds the lookup sets once and returns a function testing a row
// against every clause.
func (p Predicate) Matcher() func(*models.FactRow) bool {
	if p.noSelection {
		return func(*models.FactRow) bool { return false }
	}

	compiled := make([]compiledClause, 0, len(p.clauses))
	for _, c := range p.clauses {
		values := c.Values
		if c.Kind == KindEquals && len(values) > 1 {
			values = values[:1]
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		compiled = append(compiled, compiledClause{field: c.Field, set: set})
	}

	return func(r *models.FactRow) bool {
		for _, c := range compiled {
			if _, ok := c.set[c.field.Value(r)]; !ok {
				return false
			}
		}
		return true
	}
}

// Apply returns the matching rows as a new slice. The input is not modified.
func (p Predicate) Apply(rows []models.FactRow) []models.FactRow {
	match := p.Matcher()
	out := make([]models.FactRow, 0)
	for i := range rows {
		if match(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// Count returns how many rows match and the sum of their order counts.
func (p Predicate) Count(rows []models.FactRow) (matched int, orders int64) {
	match := p.Matcher()
	for i := range rows {
		if match(&rows[i]) {
			matched++
			orders += rows[i].OrderCount
		}
	}
	return matched, orders
}
