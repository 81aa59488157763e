package dashboard

import (
	"slices"

	"github.com/go-playground/validator/v10"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
)

// Signals is the client-side state sent with every Datastar request: the
// control values plus the id of the browser session that owns them.
type Signals struct {
	SessionID string `json:"sessionId" validate:"omitempty,uuid"`
	filter.Controls
}

// DefaultControls matches the initial page: the latest month, every week
// available for the weekly view, shipped orders, both fulfillment channels.
func DefaultControls(ix *dataset.PeriodIndex) filter.Controls {
	c := filter.Controls{
		Granularity:  models.Monthly,
		Fulfillment:  models.FulfillmentBoth,
		StatusGroups: []string{"Shipped"},
	}
	if n := ix.Len(models.Monthly); n > 0 {
		c.MonthRange = []int{n - 1, n - 1}
	}
	if n := ix.Len(models.Weekly); n > 0 {
		c.WeekRange = []int{0, n - 1}
	}
	return c
}

// ToggleState adds state to the selection or removes it when already
// selected, like clicking a region on the map.
func ToggleState(c filter.Controls, state string) filter.Controls {
	out := c
	out.SelectedStates = slices.Clone(c.SelectedStates)
	if i := slices.Index(out.SelectedStates, state); i >= 0 {
		out.SelectedStates = slices.Delete(out.SelectedStates, i, i+1)
		return out
	}
	if state != "" {
		out.SelectedStates = append(out.SelectedStates, state)
	}
	return out
}

// Visibility says which period control the page shows for a granularity.
type Visibility struct {
	ShowMonth  bool   `json:"showMonth"`
	ShowWeek   bool   `json:"showWeek"`
	RangeLabel string `json:"rangeLabel"`
}

func VisibilityFor(g models.Granularity) Visibility {
	if g == models.Weekly {
		return Visibility{ShowWeek: true, RangeLabel: "Select Week Range:"}
	}
	return Visibility{ShowMonth: true, RangeLabel: "Select Month Range:"}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enum and size constraints on the controls. Range bounds
// are not checked here; the compiler maps bad ranges to no selection.
func Validate(s Signals) error {
	return validate.Struct(s)
}

// PageSignals is the flat signal set the page binds its inputs to. Both
// period controls are start/end pairs of index positions.
type PageSignals struct {
	SessionID      string             `json:"sessionId"`
	Granularity    models.Granularity `json:"granularity"`
	MonthStart     int                `json:"monthStart"`
	MonthEnd       int                `json:"monthEnd"`
	WeekStart      int                `json:"weekStart"`
	WeekEnd        int                `json:"weekEnd"`
	PromotionOnly  bool               `json:"promotionOnly"`
	Fulfillment    string             `json:"fulfillment"`
	StatusGroups   []string           `json:"statusGroups"`
	SelectedStates []string           `json:"selectedStates"`
	ShowMonth      bool               `json:"showMonth"`
	ShowWeek       bool               `json:"showWeek"`
	RangeLabel     string             `json:"rangeLabel"`
}

// NewPageSignals is the initial signal set for a fresh page.
func NewPageSignals(sessionID string, c filter.Controls) PageSignals {
	p := PageSignals{
		SessionID:      sessionID,
		Granularity:    c.Granularity,
		PromotionOnly:  c.PromotionOnly,
		Fulfillment:    c.Fulfillment,
		StatusGroups:   slices.Clone(c.StatusGroups),
		SelectedStates: slices.Clone(c.SelectedStates),
	}
	if len(c.MonthRange) > 0 {
		p.MonthStart, p.MonthEnd = c.MonthRange[0], c.MonthRange[len(c.MonthRange)-1]
	}
	if len(c.WeekRange) == 2 {
		p.WeekStart, p.WeekEnd = c.WeekRange[0], c.WeekRange[1]
	}
	if p.StatusGroups == nil {
		p.StatusGroups = []string{}
	}
	if p.SelectedStates == nil {
		p.SelectedStates = []string{}
	}
	p.SetVisibility(VisibilityFor(c.Granularity))
	return p
}

func (p *PageSignals) SetVisibility(v Visibility) {
	p.ShowMonth, p.ShowWeek, p.RangeLabel = v.ShowMonth, v.ShowWeek, v.RangeLabel
}

// Signals converts the page form into controls.
func (p PageSignals) Signals() Signals {
	return Signals{
		SessionID: p.SessionID,
		Controls: filter.Controls{
			Granularity:    p.Granularity,
			MonthRange:     []int{p.MonthStart, p.MonthEnd},
			WeekRange:      []int{p.WeekStart, p.WeekEnd},
			PromotionOnly:  p.PromotionOnly,
			Fulfillment:    p.Fulfillment,
			StatusGroups:   p.StatusGroups,
			SelectedStates: p.SelectedStates,
		},
	}
}
