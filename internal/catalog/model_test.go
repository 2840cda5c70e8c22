package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    float64
	}{
		{
			name:    "no discount",
			product: Product{Price: 119.9},
			want:    119.9,
		},
		{
			name:    "percent discount rounds to kopecks",
			product: Product{Price: 99.99, DiscountPercent: 15},
			want:    84.99,
		},
		{
			name:    "loose item uses price per kg",
			product: Product{Price: 250, PricePerKG: 250, WeightMode: WeightModeLoose, DiscountPercent: 10},
			want:    225,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.product.DiscountedPrice(), 1e-9)
		})
	}
}

func TestAddStep(t *testing.T) {
	piece := Product{WeightMode: WeightModePiece}
	assert.Equal(t, 1.0, piece.AddStep())

	heavy := Product{WeightMode: WeightModeLoose, WeightPerPieceKG: 1.2}
	assert.Equal(t, 1.0, heavy.AddStep())

	light := Product{WeightMode: WeightModeLoose, WeightPerPieceKG: 0.03}
	assert.Equal(t, 0.1, light.AddStep())

	medium := Product{WeightMode: WeightModeLoose, WeightPerPieceKG: 0.3}
	assert.Equal(t, 0.5, medium.AddStep())

	unknown := Product{WeightMode: WeightModeLoose}
	assert.Equal(t, 0.5, unknown.AddStep())
}

func TestWeightOf(t *testing.T) {
	loose := Product{WeightMode: WeightModeLoose}
	assert.InDelta(t, 1.5, loose.WeightOf(1.5), 1e-9)

	piece := Product{WeightMode: WeightModePiece, WeightPerPieceKG: 0.2}
	assert.InDelta(t, 0.6, piece.WeightOf(3), 1e-9)

	// Unknown piece weight falls back to half a kilo.
	bare := Product{WeightMode: WeightModePiece}
	assert.InDelta(t, 1.0, bare.WeightOf(2), 1e-9)
}

func TestStockUnit(t *testing.T) {
	assert.Equal(t, "кг", Product{WeightMode: WeightModeLoose}.StockUnit())
	assert.Equal(t, "шт", Product{WeightMode: WeightModePiece}.StockUnit())
}
