package catalog

import "github.com/edostavka/backend/internal/airtable"

const placeholderImageURL = "https://via.placeholder.com/300x200.png?text=No+Image"

// Column names of the catalog table.
const (
	fieldName        = "Название товара"
	fieldDescription = "Описание товара"
	fieldPrice       = "цена"
	fieldCategory    = "Категория"
	fieldRating      = "оценка товара"
	fieldPhoto       = "Фото"
	fieldDiscount    = "скидка"
	fieldBarcode     = "штрихкод"
	fieldStock       = "кол-во"
	fieldWeight      = "вес"
	fieldWeightMode  = "статус по весу"
	fieldPieceWeight = "вес на шт"
)

// productFromRecord maps a raw record to a Product. Records without a
// name or price are skipped: the base always has a few half-filled
// draft rows.
func productFromRecord(record airtable.Record) (Product, bool) {
	fields := record.Fields
	name := fields.String(fieldName)
	if name == "" || !fields.Has(fieldPrice) {
		return Product{}, false
	}

	weightMode := fields.String(fieldWeightMode)
	if weightMode == "" {
		weightMode = WeightModePiece
	}

	price := fields.Float(fieldPrice)
	product := Product{
		ID:              record.ID,
		Name:            name,
		Category:        firstOr(fields, fieldCategory, "Uncategorized"),
		Description:     firstOr(fields, fieldDescription, "No description available."),
		ImageURL:        photoURL(fields),
		Barcode:         fields.String(fieldBarcode),
		Rating:          fields.Float(fieldRating),
		Price:           price,
		DiscountPercent: fields.Float(fieldDiscount) * 100,
		AvailableStock:  fields.Float(fieldStock),
		Weight:          fields.String(fieldWeight),
		WeightMode:      weightMode,
	}

	// Piece weight is stored in grams.
	if grams := fields.Float(fieldPieceWeight); grams > 0 {
		product.WeightPerPieceKG = grams / 1000
	}
	if product.IsLoose() {
		product.PricePerKG = price
	}
	return product, true
}

func firstOr(fields airtable.Fields, key, fallback string) string {
	if value := fields.String(key); value != "" {
		return value
	}
	if values := fields.StringSlice(key); len(values) > 0 {
		return values[0]
	}
	return fallback
}

// photoURL prefers the large thumbnail over the original upload.
func photoURL(fields airtable.Fields) string {
	items, ok := fields[fieldPhoto].([]any)
	if !ok || len(items) == 0 {
		return placeholderImageURL
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return placeholderImageURL
	}
	if thumbs, ok := first["thumbnails"].(map[string]any); ok {
		if large, ok := thumbs["large"].(map[string]any); ok {
			if url, ok := large["url"].(string); ok && url != "" {
				return url
			}
		}
	}
	if url, ok := first["url"].(string); ok && url != "" {
		return url
	}
	return placeholderImageURL
}
