package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edostavka/backend/internal/catalog"
)

func TestEncodeQuantities(t *testing.T) {
	items := []Item{
		{Product: catalog.Product{Name: "Молоко", WeightMode: catalog.WeightModePiece}, Quantity: 2},
		{Product: catalog.Product{Name: "Сыр Гауда", WeightMode: catalog.WeightModeLoose}, Quantity: 0.5},
	}
	assert.Equal(t, "Молоко - 2 шт, Сыр Гауда - 0.5 кг", EncodeQuantities(items))
	assert.Equal(t, "", EncodeQuantities(nil))
}

func TestDecodeQuantities(t *testing.T) {
	entries := DecodeQuantities("Молоко - 2 шт, Сыр Гауда - 0.5 кг")
	assert.Equal(t, []QuantityEntry{
		{Name: "Молоко", Quantity: 2},
		{Name: "Сыр Гауда", Quantity: 0.5},
	}, entries)
}

func TestDecodeQuantitiesNameWithSeparator(t *testing.T) {
	// Product names may contain " - "; only the last segment is the quantity.
	entries := DecodeQuantities("Чай - зеленый - 1 шт")
	assert.Equal(t, []QuantityEntry{{Name: "Чай - зеленый", Quantity: 1}}, entries)
}

func TestDecodeQuantitiesSkipsMalformed(t *testing.T) {
	entries := DecodeQuantities("без количества, Хлеб - abc шт, Молоко - 2 шт")
	assert.Equal(t, []QuantityEntry{{Name: "Молоко", Quantity: 2}}, entries)
	assert.Nil(t, DecodeQuantities("   "))
}
