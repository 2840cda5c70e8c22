package orders

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edostavka/backend/internal/cart"
	"github.com/edostavka/backend/internal/catalog"
	"github.com/edostavka/backend/pkg/config"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

const orderNumberPrefix = "ED-"

// Outcome tells the storefront how checkout ended. The order exists
// either way; queued just means no courier was free to take it.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeQueued    Outcome = "queued"
)

// CheckoutInput carries a validated checkout request.
type CheckoutInput struct {
	UserID  string
	Address string
	// Items is the full cart; the service picks the purchasable subset.
	Items []cart.Item
	// CartTotal is the cart's own in-stock total, before delivery fee.
	CartTotal float64
}

// CheckoutResult is the created order plus the outcome for the UI.
type CheckoutResult struct {
	Order   Order   `json:"order"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
}

type courierFinder interface {
	FindAvailable(ctx context.Context) (string, bool, error)
}

type deliveredNotifier interface {
	NotifyDelivered(ctx context.Context, customerID string, total float64, createdAt time.Time) error
}

type catalogReader interface {
	ProductsByIDs(ctx context.Context, ids []string) ([]catalog.Product, error)
	DecrementStock(ctx context.Context, decrements []catalog.StockDecrement) error
}

// Service drives the order lifecycle.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	// ActiveOrderForUser returns the user's current order: the newest
	// non-terminal one, or failing that the newest delivered one so
	// the review prompt can hang off it. Nil when neither exists.
	ActiveOrderForUser(ctx context.Context, userID string) (*Order, error)
	FullDetails(ctx context.Context, orderID string) (*FullDetails, error)
	UpdateStatus(ctx context.Context, orderID string, to Status) error
	// Delay pushes the delivery estimate out without changing status.
	Delay(ctx context.Context, orderID string) error
	// ClaimQueuedOrder assigns the oldest unassigned accepted order to
	// the employee. Nil result when the queue is empty.
	ClaimQueuedOrder(ctx context.Context, employeeID string) (*FullDetails, error)
	ListByIDs(ctx context.Context, ids []string) ([]Order, error)
	// ListForUser is the order history, newest first.
	ListForUser(ctx context.Context, userID string) ([]Order, error)
}

type service struct {
	repo     *Repository
	catalog  catalogReader
	couriers courierFinder
	notifier deliveredNotifier
	cfg      config.CheckoutConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewService constructs the orders service. The notifier is optional;
// without it delivered orders simply skip the notification.
func NewService(repo *Repository, catalogSvc catalogReader, couriers courierFinder, notifier deliveredNotifier, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if couriers == nil {
		return nil, fmt.Errorf("courier finder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("orders logger required")
	}
	return &service{
		repo:     repo,
		catalog:  catalogSvc,
		couriers: couriers,
		notifier: notifier,
		cfg:      cfg,
		logger:   logg,
		now:      time.Now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	active, err := s.ActiveOrderForUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if active != nil && !active.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "У вас уже есть активный заказ. Дождитесь его завершения.")
	}

	// Positions whose remaining stock no longer covers the requested
	// quantity are left in the cart rather than partially bought.
	purchasable := make([]cart.Item, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Product.AvailableStock > 0 && item.Product.AvailableStock >= item.Quantity {
			purchasable = append(purchasable, item)
		}
	}
	if len(purchasable) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Все товары в вашей корзине закончились.")
	}

	// A courier lookup failure must not lose the sale; the order just
	// joins the queue unassigned.
	var employeeIDs []string
	outcome := OutcomeQueued
	courierID, found, err := s.couriers.FindAvailable(ctx)
	if err != nil {
		s.logger.Error(s.logger.WithUserID(ctx, input.UserID), "finding available courier", err)
	} else if found {
		employeeIDs = []string{courierID}
		outcome = OutcomeConfirmed
	}

	productIDs := make([]string, 0, len(purchasable))
	for _, item := range purchasable {
		productIDs = append(productIDs, item.Product.ID)
	}

	total, _ := decimal.NewFromFloat(input.CartTotal).
		Add(decimal.NewFromFloat(s.cfg.DeliveryFee)).
		Round(2).Float64()

	order, err := s.repo.Create(ctx, CreateInput{
		Number:      s.nextOrderNumber(),
		CustomerID:  input.UserID,
		ProductIDs:  productIDs,
		Quantities:  cart.EncodeQuantities(purchasable),
		TotalAmount: total,
		ETAMinutes:  s.cfg.DefaultETAMinutes,
		Address:     input.Address,
		EmployeeIDs: employeeIDs,
	})
	if err != nil {
		return nil, err
	}

	decrements := make([]catalog.StockDecrement, 0, len(purchasable))
	for _, item := range purchasable {
		decrements = append(decrements, catalog.StockDecrement{
			ProductID:    item.Product.ID,
			Quantity:     item.Quantity,
			CurrentStock: item.Product.AvailableStock,
		})
	}
	if err := s.catalog.DecrementStock(ctx, decrements); err != nil {
		// The order stands; stock self-corrects on the next manual edit.
		s.logger.Error(s.logger.WithOrderID(ctx, order.ID), "decrementing stock after checkout", err)
	}

	result := &CheckoutResult{Order: order, Outcome: outcome, Message: "Заказ принят!"}
	if outcome == OutcomeQueued {
		result.Message = "Все курьеры заняты. Ваш заказ в очереди!"
	}
	return result, nil
}

func (s *service) nextOrderNumber() string {
	millis := strconv.FormatInt(s.now().UnixMilli(), 10)
	return orderNumberPrefix + millis[len(millis)-6:]
}

func (s *service) ActiveOrderForUser(ctx context.Context, userID string) (*Order, error) {
	orders, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if !orders[i].Status.IsTerminal() {
			return &orders[i], nil
		}
	}
	for i := range orders {
		if orders[i].Status == StatusDelivered {
			return &orders[i], nil
		}
	}
	return nil, nil
}

func (s *service) FullDetails(ctx context.Context, orderID string) (*FullDetails, error) {
	record, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order := orderFromRecord(*record)

	productIDs := record.Fields.StringSlice(fieldProducts)
	products, err := s.catalog.ProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	quantityByID := make(map[string]float64)
	for _, entry := range cart.DecodeQuantities(order.ProductsText) {
		for _, product := range products {
			if product.Name == entry.Name {
				quantityByID[product.ID] = entry.Quantity
				break
			}
		}
	}

	infos := make([]ProductInfo, 0, len(products))
	for _, product := range products {
		barcode := product.Barcode
		if barcode == "" {
			barcode = "N/A"
		}
		infos = append(infos, ProductInfo{
			ID:               product.ID,
			Name:             product.Name,
			ImageURL:         product.ImageURL,
			Barcode:          barcode,
			Quantity:         quantityByID[product.ID],
			WeightMode:       product.WeightMode,
			WeightPerPieceKG: product.WeightPerPieceKG,
			Weight:           product.Weight,
		})
	}

	customerID := ""
	if ids := record.Fields.StringSlice(fieldCustomer); len(ids) > 0 {
		customerID = ids[0]
	}
	return &FullDetails{Order: order, Products: infos, CustomerID: customerID}, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID string, to Status) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}

	record, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	from := Status(record.Fields.String(fieldStatus))
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %q to %q", from, to))
	}

	// Details are captured before the patch clears the customer links.
	var details *FullDetails
	if to == StatusDelivered && s.notifier != nil {
		details, err = s.FullDetails(ctx, orderID)
		if err != nil {
			s.logger.Error(s.logger.WithOrderID(ctx, orderID), "fetching details before delivery", err)
			details = nil
		}
	}

	if err := s.repo.UpdateStatus(ctx, orderID, to, 0); err != nil {
		return err
	}

	if details != nil && details.CustomerID != "" {
		if err := s.notifier.NotifyDelivered(ctx, details.CustomerID, details.TotalAmount, details.CreatedAt); err != nil {
			s.logger.Error(s.logger.WithOrderID(ctx, orderID), "creating delivered notification", err)
		}
	}
	return nil
}

func (s *service) Delay(ctx context.Context, orderID string) error {
	record, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	order := orderFromRecord(*record)
	if order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "finished orders cannot be delayed")
	}
	return s.repo.UpdateETA(ctx, orderID, order.ETAMinutes+s.cfg.DelayMinutes)
}

func (s *service) ClaimQueuedOrder(ctx context.Context, employeeID string) (*FullDetails, error) {
	queued, err := s.repo.OldestQueued(ctx)
	if err != nil {
		return nil, err
	}
	if queued == nil {
		return nil, nil
	}
	// Optimistic claim: two couriers polling at once can both see the
	// same order, and the later patch wins. The base is the arbiter.
	if err := s.repo.AssignEmployee(ctx, queued.ID, employeeID); err != nil {
		return nil, err
	}
	return s.FullDetails(ctx, queued.ID)
}

func (s *service) ListByIDs(ctx context.Context, ids []string) ([]Order, error) {
	return s.repo.ListByIDs(ctx, ids)
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListForUser(ctx, userID)
}
