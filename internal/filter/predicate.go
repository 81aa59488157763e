// Package filter compiles dashboard control values into a typed predicate
// over fact rows and evaluates it.
package filter

import (
	"encoding/json"
	"slices"
	"strconv"

	"ecommerce-dashboard/internal/models"
)

type Field string

const (
	FieldYearMonth   Field = models.FieldYearMonth
	FieldYearWeek    Field = models.FieldYearWeek
	FieldStatus      Field = "status"
	FieldFulfillment Field = "fulfillment"
	FieldCategory    Field = "category"
	FieldState       Field = "state"
	FieldPromotion   Field = "is_promotion"
)

// Value reads the field from a row in its comparable string form.
func (f Field) Value(r *models.FactRow) string {
	switch f {
	case FieldYearMonth:
		return r.YearMonth
	case FieldYearWeek:
		return r.YearWeek
	case FieldStatus:
		return r.Status
	case FieldFulfillment:
		return r.Fulfillment
	case FieldCategory:
		return r.Category
	case FieldState:
		return r.State
	case FieldPromotion:
		return strconv.FormatBool(r.IsPromotion)
	}
	return ""
}

func (f Field) IsPeriod() bool {
	return f == FieldYearMonth || f == FieldYearWeek
}

type ClauseKind string

const (
	KindPeriodRange ClauseKind = "period_range"
	KindEquals      ClauseKind = "equals"
	KindInSet       ClauseKind = "in_set"
)

// IndexRange is the closed slider range a period clause was built from.
type IndexRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Clause is one atomic test. PeriodRange and InSet match membership in
// Values; Equals matches Values[0].
type Clause struct {
	Kind   ClauseKind  `json:"kind"`
	Field  Field       `json:"field"`
	Values []string    `json:"values"`
	Range  *IndexRange `json:"range,omitempty"`
}

func PeriodRange(field Field, start, end int, labels []string) Clause {
	return Clause{
		Kind:   KindPeriodRange,
		Field:  field,
		Values: slices.Clone(labels),
		Range:  &IndexRange{Start: start, End: end},
	}
}

func Equals(field Field, value string) Clause {
	return Clause{Kind: KindEquals, Field: field, Values: []string{value}}
}

func InSet(field Field, values []string) Clause {
	return Clause{Kind: KindInSet, Field: field, Values: slices.Clone(values)}
}

func (c Clause) clone() Clause {
	out := Clause{Kind: c.Kind, Field: c.Field, Values: slices.Clone(c.Values)}
	if c.Range != nil {
		r := *c.Range
		out.Range = &r
	}
	return out
}

// Predicate is an immutable conjunction of clauses. The zero clause list
// matches every row; a no-selection predicate matches none.
type Predicate struct {
	granularity models.Granularity
	clauses     []Clause
	noSelection bool
}

// NoSelection is the sentinel for control states that cannot be resolved,
// such as an out-of-range slider.
func NoSelection(g models.Granularity) Predicate {
	return Predicate{granularity: g, noSelection: true}
}

func New(g models.Granularity, clauses ...Clause) Predicate {
	p := Predicate{granularity: g, clauses: make([]Clause, len(clauses))}
	for i, c := range clauses {
		p.clauses[i] = c.clone()
	}
	return p
}

func (p Predicate) IsNoSelection() bool { return p.noSelection }

func (p Predicate) Granularity() models.Granularity { return p.granularity }

func (p Predicate) Clauses() []Clause {
	out := make([]Clause, len(p.clauses))
	for i, c := range p.clauses {
		out[i] = c.clone()
	}
	return out
}

// Clause returns the first clause on field.
func (p Predicate) Clause(field Field) (Clause, bool) {
	for _, c := range p.clauses {
		if c.Field == field {
			return c.clone(), true
		}
	}
	return Clause{}, false
}

// PeriodField reports which period column the predicate filters on.
func (p Predicate) PeriodField() (Field, bool) {
	for _, c := range p.clauses {
		if c.Field.IsPeriod() {
			return c.Field, true
		}
	}
	return "", false
}

// Periods returns the period labels selected by the predicate, in order.
func (p Predicate) Periods() []string {
	for _, c := range p.clauses {
		if c.Kind == KindPeriodRange {
			return slices.Clone(c.Values)
		}
	}
	return nil
}

// Without returns a copy with every clause on field removed.
func (p Predicate) Without(field Field) Predicate {
	out := Predicate{granularity: p.granularity, noSelection: p.noSelection}
	for _, c := range p.clauses {
		if c.Field != field {
			out.clauses = append(out.clauses, c.clone())
		}
	}
	return out
}

// Replace returns a copy where clauses on c.Field are swapped for c, placed
// where the first of them was, or appended.
func (p Predicate) Replace(c Clause) Predicate {
	out := Predicate{granularity: p.granularity, noSelection: p.noSelection}
	placed := false
	for _, existing := range p.clauses {
		if existing.Field != c.Field {
			out.clauses = append(out.clauses, existing.clone())
			continue
		}
		if !placed {
			out.clauses = append(out.clauses, c.clone())
			placed = true
		}
	}
	if !placed {
		out.clauses = append(out.clauses, c.clone())
	}
	return out
}

func (p Predicate) Equal(other Predicate) bool {
	return p.Key() == other.Key()
}

type predicateJSON struct {
	Granularity models.Granularity `json:"granularity"`
	NoSelection bool               `json:"no_selection"`
	Clauses     []Clause           `json:"clauses"`
}

func (p Predicate) MarshalJSON() ([]byte, error) {
	clauses := p.clauses
	if clauses == nil {
		clauses = []Clause{}
	}
	return json.Marshal(predicateJSON{
		Granularity: p.granularity,
		NoSelection: p.noSelection,
		Clauses:     clauses,
	})
}

func (p *Predicate) UnmarshalJSON(data []byte) error {
	var v predicateJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.NoSelection {
		*p = NoSelection(v.Granularity)
		return nil
	}
	*p = New(v.Granularity, v.Clauses...)
	return nil
}

// Key is the canonical serialized form, used for cache keys and for
// discarding results computed for a superseded predicate.
func (p Predicate) Key() string {
	b, err := p.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

func (p Predicate) String() string { return p.Key() }
