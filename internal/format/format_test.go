package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"ecommerce-dashboard/internal/models"
)

func TestLargeNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1.23K"},
		{5600000, "5.6M"},
		{1e9, "1B"},
		{2.5e12, "2.5T"},
		{-45600, "-45.6K"},
		{math.NaN(), "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LargeNumber(tt.in), "LargeNumber(%v)", tt.in)
	}
}

func TestCurrencyAndDecimal(t *testing.T) {
	assert.Equal(t, "₹1,234,567.89", Currency(1234567.891))
	assert.Equal(t, "₹0.00", Currency(0))
	assert.Equal(t, "-1,000.5", Decimal(-1000.5, 1))
	assert.Equal(t, "12,345", Int(12345))
	assert.Equal(t, "87.50%", Percent(87.5))
}

func TestDecimalGrouping(t *testing.T) {
	tests := []struct {
		in     float64
		places int32
		want   string
	}{
		{999.994, 2, "999.99"},
		{1000, 0, "1,000"},
		{1234567890.125, 2, "1,234,567,890.13"},
		{-0.004, 2, "0.00"},
		{-98765.4, 0, "-98,765"},
		{math.Inf(1), 1, "0.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decimal(tt.in, tt.places), "Decimal(%v, %d)", tt.in, tt.places)
	}
}

func TestHoverAmount(t *testing.T) {
	assert.Equal(t, "₹1.2M", HoverAmount(1234567))
	assert.Equal(t, "₹3.4K", HoverAmount(3400))
	assert.Equal(t, "₹950", HoverAmount(950))
}

func TestTrend(t *testing.T) {
	tests := []struct {
		in   float64
		want string
		dir  Direction
	}{
		{4.21, "▲ +4.2%", Up},
		{-1, "▼ -1.0%", Down},
		{0, "▪ +0.0%", Flat},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Trend(tt.in))
		assert.Equal(t, tt.dir, DirectionOf(tt.in))
	}
}

func TestGrowth(t *testing.T) {
	assert.Equal(t, "N/A", Growth(nil))
	assert.Equal(t, "N/A", Growth(&models.Growth{Value: 12}))
	assert.Equal(t, "+12.0%", Growth(&models.Growth{Value: 12, Applicable: true}))
	assert.Equal(t, "-3.5%", Growth(&models.Growth{Value: -3.5, Applicable: true}))
}
