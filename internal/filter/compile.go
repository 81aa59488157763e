package filter

import (
	"fmt"
	"slices"
	"strings"

	"ecommerce-dashboard/internal/models"
)

// StatusGroup is a human-facing status category and the raw statuses it
// expands to.
type StatusGroup struct {
	Name     string
	Statuses []string
}

// StatusGroups is the fixed many-to-one status mapping, in display order.
var StatusGroups = []StatusGroup{
	{Name: "Cancelled", Statuses: []string{"Cancelled"}},
	{Name: "Pending", Statuses: []string{"Pending", "Pending - Waiting for Pick Up", "Shipping"}},
	{Name: "Shipped", Statuses: []string{
		"Shipped",
		"Shipped - Damaged",
		"Shipped - Delivered to Buyer",
		"Shipped - Lost in Transit",
		"Shipped - Out for Delivery",
		"Shipped - Picked Up",
		"Shipped - Rejected by Buyer",
		"Shipped - Returned to Seller",
		"Shipped - Returning to Seller",
	}},
}

// Controls is the full set of dashboard control values.
type Controls struct {
	Granularity    models.Granularity `json:"granularity" validate:"required,oneof=Monthly Weekly"`
	MonthRange     []int              `json:"monthRange" validate:"max=2"`
	WeekRange      []int              `json:"weekRange" validate:"max=2"`
	PromotionOnly  bool               `json:"promotionOnly"`
	Fulfillment    string             `json:"fulfillment" validate:"omitempty,oneof=Amazon Merchant Both"`
	StatusGroups   []string           `json:"statusGroups" validate:"dive,oneof=Cancelled Pending Shipped"`
	SelectedStates []string           `json:"selectedStates" validate:"max=64,dive,max=128"`
}

// PeriodLookup resolves slider positions to period labels.
type PeriodLookup interface {
	Range(g models.Granularity, start, end int) ([]string, bool)
}

// Compile maps control values to one predicate. Clauses are emitted in a
// fixed order so identical controls yield identical predicates. Controls
// whose active period range cannot be resolved yield NoSelection.
func Compile(c Controls, index PeriodLookup) Predicate {
	g := c.Granularity
	if !g.Valid() {
		g = models.Monthly
	}

	rng := c.MonthRange
	if g == models.Weekly {
		rng = c.WeekRange
	}
	start, end, ok := bounds(rng)
	if !ok {
		return NoSelection(g)
	}
	labels, ok := index.Range(g, start, end)
	if !ok {
		return NoSelection(g)
	}

	clauses := []Clause{PeriodRange(Field(g.Field()), start, end, labels)}

	if c.PromotionOnly {
		clauses = append(clauses, Equals(FieldPromotion, "true"))
	}

	switch c.Fulfillment {
	case models.FulfillmentAmazon, models.FulfillmentMerchant:
		clauses = append(clauses, Equals(FieldFulfillment, c.Fulfillment))
	}

	// An empty status selection adds no clause: every status is included.
	if statuses := ExpandStatusGroups(c.StatusGroups); len(statuses) > 0 {
		clauses = append(clauses, InSet(FieldStatus, statuses))
	}

	if states := SelectedStates(c.SelectedStates); len(states) == 1 {
		clauses = append(clauses, Equals(FieldState, states[0]))
	} else if len(states) > 1 {
		clauses = append(clauses, InSet(FieldState, states))
	}

	return New(g, clauses...)
}

// ExpandStatusGroups returns the raw statuses for the selected groups in
// mapping order. Unknown group names are ignored.
func ExpandStatusGroups(groups []string) []string {
	var out []string
	for _, g := range StatusGroups {
		if slices.Contains(groups, g.Name) {
			out = append(out, g.Statuses...)
		}
	}
	return out
}

// SelectedStates returns the non-empty, de-duplicated, sorted selection.
func SelectedStates(states []string) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

// bounds accepts [i] as the single period i and [start, end] as a closed range.
func bounds(rng []int) (int, int, bool) {
	switch len(rng) {
	case 1:
		return rng[0], rng[0], rng[0] >= 0
	case 2:
		return rng[0], rng[1], rng[0] >= 0 && rng[0] <= rng[1]
	}
	return 0, 0, false
}

// PeriodLabel renders the selected period for status lines and card
// captions.
func PeriodLabel(p Predicate) string {
	periods := p.Periods()
	if p.IsNoSelection() || len(periods) == 0 {
		return ""
	}
	first, last := periods[0], periods[len(periods)-1]
	if p.Granularity() == models.Weekly {
		first = weekStartLabel(first)
		last = weekEndLabel(last)
	}
	if len(periods) == 1 && p.Granularity() == models.Monthly {
		return first
	}
	return fmt.Sprintf("%s to %s", first, last)
}

func weekStartLabel(token string) string {
	start, _, _ := strings.Cut(token, "/")
	return start
}

func weekEndLabel(token string) string {
	if _, end, ok := strings.Cut(token, "/"); ok {
		return end
	}
	return token
}
