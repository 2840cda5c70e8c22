package cart

import (
	"context"
	"fmt"

	"github.com/edostavka/backend/internal/airtable"
)

// Column names on the users table holding the persisted cart.
const (
	fieldCartLinks      = "корзина"
	fieldCartQuantities = "колво товаров"
	fieldCartTotal      = "итоговая цена"
)

type userTable interface {
	Get(ctx context.Context, id string) (*airtable.Record, error)
	Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error)
}

// Store persists carts onto the owning user record.
type Store struct {
	users userTable
}

// NewStore constructs a cart store.
func NewStore(users userTable) (*Store, error) {
	if users == nil {
		return nil, fmt.Errorf("users table required")
	}
	return &Store{users: users}, nil
}

// StoredCart is the raw persisted form: linked product IDs plus the
// encoded quantities column.
type StoredCart struct {
	ProductIDs []string
	Quantities []QuantityEntry
}

// Load reads the persisted cart off the user record.
func (s *Store) Load(ctx context.Context, userID string) (StoredCart, error) {
	record, err := s.users.Get(ctx, userID)
	if err != nil {
		return StoredCart{}, err
	}
	return StoredCart{
		ProductIDs: record.Fields.StringSlice(fieldCartLinks),
		Quantities: DecodeQuantities(record.Fields.String(fieldCartQuantities)),
	}, nil
}

// Save writes the cart contents and running total onto the user record.
func (s *Store) Save(ctx context.Context, userID string, items []Item, total float64) error {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Product.ID)
	}
	_, err := s.users.Update(ctx, userID, airtable.Fields{
		fieldCartLinks:      ids,
		fieldCartQuantities: EncodeQuantities(items),
		fieldCartTotal:      total,
	})
	return err
}
