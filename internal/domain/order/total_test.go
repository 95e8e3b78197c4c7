package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(price string, qty int) Item {
	return Item{UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  string
	}{
		{"empty", nil, "0"},
		{"single line", []Item{item("95.00", 2)}, "190"},
		{"multiple lines", []Item{item("95.00", 2), item("35.00", 3)}, "295"},
		{"no per-line rounding drift", []Item{item("0.10", 3), item("0.20", 3)}, "0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtotal(tt.items)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestFinalTotal(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		discount string
		want     string
	}{
		{"no discount", "295.00", "0", "295"},
		{"partial discount", "295.00", "29.50", "265.5"},
		{"discount equals subtotal", "100.00", "100.00", "0"},
		{"discount exceeds subtotal floors at zero", "50.00", "80.00", "0"},
		{"rounds to cents", "100.00", "33.333", "66.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FinalTotal(decimal.RequireFromString(tt.subtotal), decimal.RequireFromString(tt.discount))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}
