package filter

import (
	"fmt"

	"ecommerce-dashboard/internal/format"
	"ecommerce-dashboard/internal/models"
)

// Describe renders the status line shown above the charts, counting orders
// rather than fact rows.
func Describe(p Predicate, rows []models.FactRow) string {
	if p.IsNoSelection() {
		return "No period selected."
	}
	_, orders := p.Count(rows)
	label := PeriodLabel(p)
	if label == "" {
		return fmt.Sprintf("Showing %s records.", format.Int(orders))
	}
	return fmt.Sprintf("Showing %s records for %s.", format.Int(orders), label)
}
