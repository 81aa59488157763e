// Package templates holds the dashboard page and the fragments the SSE
// handlers patch into it. Components live in the .templ files; run
// templ generate after editing them.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.943 generate

import (
	"fmt"
	"strings"

	"ecommerce-dashboard/internal/dashboard"
	"ecommerce-dashboard/internal/models"
)

type PageData struct {
	Title    string
	Signals  dashboard.PageSignals
	View     dashboard.View
	Headline models.Metrics
	Months   []string
	Weeks    []string
}

// pageSignals is the initial data-signals object. The underscore prefix
// keeps the chart payload client-side so it is never sent back.
type pageSignals struct {
	dashboard.PageSignals
	View dashboard.View `json:"_view"`
}

func (p PageData) signals() pageSignals {
	return pageSignals{PageSignals: p.Signals, View: p.View}
}

var (
	granularities = []models.Granularity{models.Monthly, models.Weekly}
	fulfillments  = []string{models.FulfillmentBoth, models.FulfillmentAmazon, models.FulfillmentMerchant}
)

// Notice is a chart placeholder message for a result that did not render.
type Notice struct {
	Chart   string
	Outcome models.Outcome
}

// NoticesFor collects the chart outcomes of a view in page order.
func NoticesFor(v dashboard.View) []Notice {
	return []Notice{
		{Chart: "state map", Outcome: v.States.Outcome},
		{Chart: "sales over time", Outcome: v.Sales.Outcome},
		{Chart: "category breakdown", Outcome: v.Categories.Outcome},
	}
}

func outcomeMessage(o models.Outcome, what string) string {
	switch o.Status {
	case models.StatusNoSelection:
		return "No period selected."
	case models.StatusNoData:
		return fmt.Sprintf("No data for the current filters (%s).", what)
	case models.StatusError:
		if o.Reason != "" {
			return fmt.Sprintf("Could not compute %s: %s", what, o.Reason)
		}
		return fmt.Sprintf("Could not compute %s.", what)
	}
	return ""
}

func monthLabel(label string) string { return label }

func weekStart(label string) string {
	start, _, _ := strings.Cut(label, "/")
	return start
}

func weekEnd(label string) string {
	start, end, ok := strings.Cut(label, "/")
	if !ok {
		return start
	}
	return end
}
