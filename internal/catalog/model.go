// Package catalog serves the product catalog backed by the remote
// tabular store, with an in-memory cache that downstream consumers
// (cart reconciliation, checkout) subscribe to.
package catalog

import "github.com/shopspring/decimal"

// Weight modes as stored in the base.
const (
	WeightModeLoose = "на развес"
	WeightModePiece = "поштучно"
)

// Loose add-to-cart steps in kilograms.
const (
	looseStepHeavy   = 1.0
	looseStepLight   = 0.1
	looseStepDefault = 0.5
)

// Piece items without a known unit weight are estimated at half a kilo
// for the cart weight cap.
const defaultPieceWeightKG = 0.5

// Product is one sellable catalog position.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Barcode     string  `json:"barcode,omitempty"`
	Rating      float64 `json:"rating"`

	// Price is per piece, or per kilogram for loose items.
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount,omitempty"`

	// AvailableStock is pieces, or kilograms for loose items.
	AvailableStock float64 `json:"availableStock"`

	// Weight is the display range, e.g. "500-700 г".
	Weight           string  `json:"weight,omitempty"`
	WeightMode       string  `json:"weightStatus"`
	WeightPerPieceKG float64 `json:"weightPerPiece,omitempty"`
	PricePerKG       float64 `json:"pricePerKg,omitempty"`
}

// IsLoose reports whether the product is sold by weight.
func (p Product) IsLoose() bool {
	return p.WeightMode == WeightModeLoose
}

// InStock reports whether anything is left to sell.
func (p Product) InStock() bool {
	return p.AvailableStock > 0
}

// EffectivePrice is the undiscounted price per unit of quantity.
func (p Product) EffectivePrice() float64 {
	if p.IsLoose() && p.PricePerKG > 0 {
		return p.PricePerKG
	}
	return p.Price
}

// DiscountedPrice applies the discount percentage, rounded to kopecks.
func (p Product) DiscountedPrice() float64 {
	price := decimal.NewFromFloat(p.EffectivePrice())
	if p.DiscountPercent > 0 {
		factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(p.DiscountPercent).Div(decimal.NewFromInt(100)))
		price = price.Mul(factor)
	}
	result, _ := price.Round(2).Float64()
	return result
}

// AddStep is the quantity one tap of "add" contributes. Loose items
// step in kilograms scaled to the typical piece weight.
func (p Product) AddStep() float64 {
	if !p.IsLoose() {
		return 1
	}
	switch {
	case p.WeightPerPieceKG >= 1:
		return looseStepHeavy
	case p.WeightPerPieceKG > 0 && p.WeightPerPieceKG < 0.04:
		return looseStepLight
	default:
		return looseStepDefault
	}
}

// WeightOf converts a cart quantity of this product to kilograms.
func (p Product) WeightOf(quantity float64) float64 {
	if p.IsLoose() {
		return quantity
	}
	perPiece := p.WeightPerPieceKG
	if perPiece == 0 {
		perPiece = defaultPieceWeightKG
	}
	return perPiece * quantity
}

// StockUnit is the label used in stock messages.
func (p Product) StockUnit() string {
	if p.IsLoose() {
		return "кг"
	}
	return "шт"
}
