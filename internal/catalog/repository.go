package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/edostavka/backend/internal/airtable"
)

type recordTable interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error)
	BatchUpdate(ctx context.Context, updates []airtable.RecordUpdate) error
}

// Repository reads and writes the catalog table.
type Repository struct {
	table recordTable
}

// NewRepository constructs a catalog repository.
func NewRepository(table recordTable) (*Repository, error) {
	if table == nil {
		return nil, fmt.Errorf("catalog table required")
	}
	return &Repository{table: table}, nil
}

// ListAll fetches every sellable product.
func (r *Repository) ListAll(ctx context.Context) ([]Product, error) {
	records, err := r.table.List(ctx, airtable.ListOptions{})
	if err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(records))
	for _, record := range records {
		if product, ok := productFromRecord(record); ok {
			products = append(products, product)
		}
	}
	return products, nil
}

// ByIDs fetches the given products by record ID. Unknown IDs are
// silently absent from the result.
func (r *Repository) ByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	exprs := make([]string, 0, len(ids))
	for _, id := range ids {
		exprs = append(exprs, airtable.RecordIDEq(id))
	}
	records, err := r.table.List(ctx, airtable.ListOptions{Filter: airtable.Or(exprs...)})
	if err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(records))
	for _, record := range records {
		if product, ok := productFromRecord(record); ok {
			products = append(products, product)
		}
	}
	return products, nil
}

// StockDecrement lowers one product's stock by the purchased quantity.
type StockDecrement struct {
	ProductID string
	Quantity  float64
	// CurrentStock is the stock the caller based the sale on.
	CurrentStock float64
}

// DecrementStock writes the post-checkout stock levels in one batch.
// Quantities are decimal-subtracted so loose weights do not accumulate
// float noise in the base.
func (r *Repository) DecrementStock(ctx context.Context, decrements []StockDecrement) error {
	if len(decrements) == 0 {
		return nil
	}
	updates := make([]airtable.RecordUpdate, 0, len(decrements))
	for _, dec := range decrements {
		remaining, _ := decimal.NewFromFloat(dec.CurrentStock).
			Sub(decimal.NewFromFloat(dec.Quantity)).
			Round(2).Float64()
		if remaining < 0 {
			remaining = 0
		}
		updates = append(updates, airtable.RecordUpdate{
			ID:     dec.ProductID,
			Fields: airtable.Fields{fieldStock: remaining},
		})
	}
	return r.table.BatchUpdate(ctx, updates)
}

// UpdateRating stores a recomputed product rating.
func (r *Repository) UpdateRating(ctx context.Context, productID string, rating float64) error {
	_, err := r.table.Update(ctx, productID, airtable.Fields{fieldRating: rating})
	return err
}
