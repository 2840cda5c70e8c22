package cart

import (
	"fmt"
	"strconv"
	"strings"
)

// The base stores cart and order contents as one human-readable text
// column next to the linked product IDs: "Молоко - 2 шт, Сыр - 0.5 кг".
// Quantities are keyed by product name on the way back in.

const (
	entrySeparator = ", "
	nameSeparator  = " - "
)

// QuantityEntry is one decoded line of the quantities column.
type QuantityEntry struct {
	Name     string
	Quantity float64
}

// EncodeQuantities renders cart items into the quantities column format.
func EncodeQuantities(items []Item) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s%s%s %s",
			item.Product.Name,
			nameSeparator,
			formatQuantity(item.Quantity),
			item.Product.StockUnit(),
		))
	}
	return strings.Join(parts, entrySeparator)
}

// DecodeQuantities parses the quantities column. Malformed entries are
// skipped; product names may themselves contain " - ", so only the
// last segment is treated as the quantity.
func DecodeQuantities(encoded string) []QuantityEntry {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	var entries []QuantityEntry
	for _, raw := range strings.Split(encoded, entrySeparator) {
		parts := strings.Split(raw, nameSeparator)
		if len(parts) < 2 {
			continue
		}
		qtyWithUnit := parts[len(parts)-1]
		name := strings.Join(parts[:len(parts)-1], nameSeparator)
		qtyStr, _, _ := strings.Cut(strings.TrimSpace(qtyWithUnit), " ")
		quantity, err := strconv.ParseFloat(qtyStr, 64)
		if err != nil || quantity <= 0 {
			continue
		}
		entries = append(entries, QuantityEntry{Name: name, Quantity: quantity})
	}
	return entries
}

func formatQuantity(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', -1, 64)
}
