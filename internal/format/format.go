// Package format renders metric values for cards, hover labels and status
// lines.
package format

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ecommerce-dashboard/internal/models"
)

const CurrencySymbol = "₹"

var suffixes = []string{"", "K", "M", "B", "T"}

// LargeNumber rounds to three significant digits and appends a magnitude
// suffix: 1234 -> "1.23K", 5600000 -> "5.6M".
func LargeNumber(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	v, _ = strconv.ParseFloat(strconv.FormatFloat(v, 'g', 3, 64), 64)
	magnitude := 0
	for math.Abs(v) >= 1000 && magnitude < len(suffixes)-1 {
		magnitude++
		v /= 1000
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s + suffixes[magnitude]
}

// Currency formats an amount with the rupee symbol, thousands separators
// and two decimals.
func Currency(v float64) string {
	return CurrencySymbol + Decimal(v, 2)
}

// Decimal formats v with thousands separators and a fixed number of places.
// Rounding is half away from zero, before the printer sees the value.
func Decimal(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	rounded := decimal.NewFromFloat(v).Round(places).InexactFloat64()
	verb := "%." + strconv.Itoa(int(places)) + "f"
	return message.NewPrinter(language.English).Sprintf(verb, rounded)
}

func Int(n int64) string {
	return Decimal(float64(n), 0)
}

// Percent renders a completion rate such as "87.25%".
func Percent(v float64) string {
	return Decimal(v, 2) + "%"
}

// HoverAmount is the compact map tooltip amount: "₹1.2M", "₹3.4K", "₹950".
func HoverAmount(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%s%.1fM", CurrencySymbol, v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%s%.1fK", CurrencySymbol, v/1e3)
	}
	return fmt.Sprintf("%s%.0f", CurrencySymbol, v)
}

// Direction classifies a trend for styling.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

func DirectionOf(v float64) Direction {
	switch {
	case v > 0:
		return Up
	case v < 0:
		return Down
	}
	return Flat
}

// Trend renders a period-over-period change: "▲ +4.2%", "▼ -1.0%", "▪ +0.0%".
func Trend(v float64) string {
	arrow := "▪"
	switch DirectionOf(v) {
	case Up:
		arrow = "▲"
	case Down:
		arrow = "▼"
	}
	return fmt.Sprintf("%s %+.1f%%", arrow, v)
}

// Growth renders a compound growth rate, or "N/A" when it does not apply.
func Growth(g *models.Growth) string {
	if g == nil || !g.Applicable {
		return "N/A"
	}
	return fmt.Sprintf("%+.1f%%", g.Value)
}
