package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseLooseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1200", "1200"},
		{"₹1,200.50", "1200.5"},
		{"-300", "-300"},
		{"Rs 45.25", "45.25"},
		{"Rs. 45", "0.45"},
		{"", "0"},
		{"n/a", "0"},
		{"-", "0"},
		{"12.", "12"},
		{"1.2.3", "1.2"},
		{"5-3", "5"},
	}
	for _, tt := range tests {
		got := ParseLooseNumber(tt.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "input %q: got %s want %s", tt.in, got, tt.want)
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₹5,000.00", FormatMoney(decimal.NewFromInt(5000), "INR"))
	assert.Equal(t, "₹200.00", FormatMoney(decimal.NewFromInt(200), ""))
	assert.Equal(t, "$12.35", FormatMoney(decimal.RequireFromString("12.345"), "USD"))
}
