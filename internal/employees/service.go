package employees

import (
	"context"
	"fmt"

	"github.com/edostavka/backend/internal/orders"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

type orderReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]orders.Order, error)
	FullDetails(ctx context.Context, orderID string) (*orders.FullDetails, error)
}

type busyLister interface {
	BusyEmployeeIDs(ctx context.Context) (map[string]struct{}, error)
}

// Service exposes courier operations.
type Service interface {
	FindByPassword(ctx context.Context, password string) (*Employee, error)
	Get(ctx context.Context, employeeID string) (*Employee, error)
	SetStatus(ctx context.Context, employeeID, status string) error
	// AssignedOrder returns the courier's current active order with
	// product lines, or nil when none is linked.
	AssignedOrder(ctx context.Context, employeeID string) (*orders.FullDetails, error)
	// FindAvailable picks the first on-shift courier not tied to an
	// active order. The bool reports whether one was found.
	FindAvailable(ctx context.Context) (string, bool, error)
}

type service struct {
	repo   *Repository
	orders orderReader
	busy   busyLister
	logger *logger.Logger
}

// NewService constructs the employees service.
func NewService(repo *Repository, orderSvc orderReader, busy busyLister, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("employees repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if busy == nil {
		return nil, fmt.Errorf("busy lister required")
	}
	if logg == nil {
		return nil, fmt.Errorf("employees logger required")
	}
	return &service{repo: repo, orders: orderSvc, busy: busy, logger: logg}, nil
}

func (s *service) FindByPassword(ctx context.Context, password string) (*Employee, error) {
	return s.repo.FindByPassword(ctx, password)
}

func (s *service) Get(ctx context.Context, employeeID string) (*Employee, error) {
	return s.repo.Get(ctx, employeeID)
}

func (s *service) SetStatus(ctx context.Context, employeeID, status string) error {
	if status != StatusOnline && status != StatusOffline {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown employee status %q", status))
	}
	return s.repo.SetStatus(ctx, employeeID, status)
}

func (s *service) AssignedOrder(ctx context.Context, employeeID string) (*orders.FullDetails, error) {
	employee, err := s.repo.Get(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if len(employee.OrderIDs) == 0 {
		return nil, nil
	}

	linked, err := s.orders.ListByIDs(ctx, employee.OrderIDs)
	if err != nil {
		return nil, err
	}
	// A courier carries at most one active order at a time.
	for _, order := range linked {
		if !order.Status.IsTerminal() {
			return s.orders.FullDetails(ctx, order.ID)
		}
	}
	return nil, nil
}

func (s *service) FindAvailable(ctx context.Context) (string, bool, error) {
	busy, err := s.busy.BusyEmployeeIDs(ctx)
	if err != nil {
		return "", false, err
	}
	online, err := s.repo.ListOnline(ctx)
	if err != nil {
		return "", false, err
	}
	for _, employee := range online {
		if _, taken := busy[employee.ID]; !taken {
			return employee.ID, true, nil
		}
	}
	return "", false, nil
}
