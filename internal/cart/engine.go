// Package cart holds the per-user cart engine: weight-capped adds,
// stock clamping against catalog refreshes, and debounced persistence
// to the remote store.
package cart

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edostavka/backend/internal/catalog"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

// Item is one cart position. Product is a snapshot from the moment it
// was added; reconciliation keeps its stock current.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity float64         `json:"quantity"`
}

// InStock reports whether the position still counts toward totals.
func (i Item) InStock() bool {
	return i.Product.AvailableStock > 0
}

// Adjustment records a stock clamp the user should be told about.
type Adjustment struct {
	ProductID string    `json:"productId"`
	Removed   float64   `json:"removed"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Totals is the cart summary. Out-of-stock positions are excluded.
type Totals struct {
	Total float64 `json:"total"`
	// WeightKG includes loose quantities as-is and estimates pieces.
	WeightKG float64 `json:"weightKg"`
	// Count is the badge number: pieces plus one per loose position.
	Count int `json:"count"`
}

type persistFunc func(ctx context.Context, userID string, items []Item, total float64) error

// Engine holds one user's cart.
type Engine struct {
	userID        string
	maxWeightKG   float64
	debounce      time.Duration
	adjustmentTTL time.Duration
	persist       persistFunc
	logger        *logger.Logger
	now           func() time.Time

	mu          sync.Mutex
	items       []Item
	adjustments map[string]Adjustment
	loaded      bool
	timer       *time.Timer
}

func newEngine(userID string, maxWeightKG float64, debounce, adjustmentTTL time.Duration, persist persistFunc, logg *logger.Logger) *Engine {
	return &Engine{
		userID:        userID,
		maxWeightKG:   maxWeightKG,
		debounce:      debounce,
		adjustmentTTL: adjustmentTTL,
		persist:       persist,
		logger:        logg,
		now:           time.Now,
		adjustments:   make(map[string]Adjustment),
	}
}

// Hydrate installs the persisted cart. Persistence stays off until the
// first hydration so a slow initial load cannot overwrite the stored
// cart with an empty one.
func (e *Engine) Hydrate(items []Item) {
	e.mu.Lock()
	e.items = items
	e.loaded = true
	e.mu.Unlock()
}

// Add puts one step of the product into the cart.
func (e *Engine) Add(product catalog.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	step := product.AddStep()
	if e.weightLocked()+product.WeightOf(step) > e.maxWeightKG {
		return e.weightCapError()
	}

	idx := e.indexOf(product.ID)
	if idx >= 0 {
		if e.items[idx].Quantity+step > product.AvailableStock {
			return stockLimitError(product)
		}
		e.items[idx].Quantity = round2(e.items[idx].Quantity + step)
		e.schedulePersistLocked()
		return nil
	}

	if step > product.AvailableStock {
		return pkgerrors.New(pkgerrors.CodeConflict, "Товара нет в наличии.")
	}
	e.items = append(e.items, Item{Product: product, Quantity: step})
	e.schedulePersistLocked()
	return nil
}

// SetQuantity sets an absolute quantity. Requests above the available
// stock are clamped and reported back via notice; zero or less removes
// the position.
func (e *Engine) SetQuantity(productID string, quantity float64) (notice string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(productID)
	if idx < 0 {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	item := e.items[idx]

	// The cap only guards increases; shrinking an overweight cart must
	// always be possible.
	if quantity > item.Quantity {
		diff := item.Product.WeightOf(quantity - item.Quantity)
		if e.weightLocked()+diff > e.maxWeightKG {
			return "", e.weightCapError()
		}
	}

	if quantity > item.Product.AvailableStock {
		notice = stockLimitError(item.Product).Message()
		quantity = item.Product.AvailableStock
	}

	if quantity <= 0 {
		e.items = append(e.items[:idx], e.items[idx+1:]...)
	} else {
		e.items[idx].Quantity = round2(quantity)
	}
	e.schedulePersistLocked()
	return notice, nil
}

// Remove drops the position entirely.
func (e *Engine) Remove(productID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.indexOf(productID)
	if idx < 0 {
		return
	}
	e.items = append(e.items[:idx], e.items[idx+1:]...)
	e.schedulePersistLocked()
}

// Clear empties the cart, e.g. after checkout.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = nil
	e.schedulePersistLocked()
}

// Items returns all positions, including out-of-stock ones.
func (e *Engine) Items() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Item(nil), e.items...)
}

// InStockItems returns the positions that count toward checkout.
func (e *Engine) InStockItems() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]Item, 0, len(e.items))
	for _, item := range e.items {
		if item.InStock() {
			items = append(items, item)
		}
	}
	return items
}

// Totals computes the cart summary.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalsLocked()
}

// Adjustments returns the stock clamps that have not expired yet.
func (e *Engine) Adjustments() []Adjustment {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	var active []Adjustment
	for id, adj := range e.adjustments {
		if adj.ExpiresAt.Before(now) {
			delete(e.adjustments, id)
			continue
		}
		active = append(active, adj)
	}
	return active
}

// Reconcile folds a fresh catalog snapshot into the cart: stock levels
// are updated in place and quantities above the new stock are clamped
// with a short-lived adjustment note. Sold-out positions stay in the
// cart so the user sees them flagged rather than silently gone.
func (e *Engine) Reconcile(products []catalog.Product) {
	byID := make(map[string]catalog.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for i := range e.items {
		item := &e.items[i]
		newStock := 0.0
		if fresh, ok := byID[item.Product.ID]; ok {
			newStock = fresh.AvailableStock
		}
		if item.Quantity > newStock && newStock > 0 {
			e.adjustments[item.Product.ID] = Adjustment{
				ProductID: item.Product.ID,
				Removed:   round2(item.Quantity - newStock),
				ExpiresAt: e.now().Add(e.adjustmentTTL),
			}
			item.Quantity = newStock
			changed = true
		}
		if item.Product.AvailableStock != newStock {
			item.Product.AvailableStock = newStock
			changed = true
		}
	}
	if changed {
		e.schedulePersistLocked()
	}
}

// Flush writes the cart out immediately, cancelling any pending timer.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	// Out-of-stock positions are persisted too; only the total skips them.
	items := append([]Item(nil), e.items...)
	total := e.totalsLocked().Total
	loaded := e.loaded
	e.mu.Unlock()

	if !loaded {
		return nil
	}
	return e.persist(ctx, e.userID, items, total)
}

func (e *Engine) indexOf(productID string) int {
	for i, item := range e.items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (e *Engine) totalsLocked() Totals {
	total := decimal.Zero
	weight := 0.0
	count := 0
	for _, item := range e.items {
		if !item.InStock() {
			continue
		}
		sellable := math.Min(item.Quantity, item.Product.AvailableStock)
		price := decimal.NewFromFloat(item.Product.DiscountedPrice())
		total = total.Add(price.Mul(decimal.NewFromFloat(sellable)))
		weight += item.Product.WeightOf(item.Quantity)
		if item.Product.IsLoose() {
			if sellable > 0 {
				count++
			}
		} else {
			count += int(math.Round(sellable))
		}
	}
	totalValue, _ := total.Round(2).Float64()
	return Totals{Total: totalValue, WeightKG: round2(weight), Count: count}
}

func (e *Engine) weightLocked() float64 {
	weight := 0.0
	for _, item := range e.items {
		if item.InStock() {
			weight += item.Product.WeightOf(item.Quantity)
		}
	}
	return weight
}

func (e *Engine) weightCapError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("Максимальный вес заказа %g кг. Курьеру будет тяжело.", e.maxWeightKG))
}

func stockLimitError(product catalog.Product) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict,
		fmt.Sprintf("Извините, в наличии только %g %s.", product.AvailableStock, product.StockUnit()))
}

func (e *Engine) schedulePersistLocked() {
	if !e.loaded || e.persist == nil {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, func() {
		ctx := context.Background()
		if err := e.Flush(ctx); err != nil && e.logger != nil {
			e.logger.Error(e.logger.WithUserID(ctx, e.userID), "persisting cart", err)
		}
	})
}

func round2(value float64) float64 {
	result, _ := decimal.NewFromFloat(value).Round(2).Float64()
	return result
}
