package sync

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/edostavka/backend/internal/employees"
	"github.com/edostavka/backend/internal/orders"
	"github.com/edostavka/backend/pkg/logger"
)

type assignmentReader interface {
	Get(ctx context.Context, employeeID string) (*employees.Employee, error)
	AssignedOrder(ctx context.Context, employeeID string) (*orders.FullDetails, error)
}

type queueClaimer interface {
	ClaimQueuedOrder(ctx context.Context, employeeID string) (*orders.FullDetails, error)
}

// EmployeeTracker follows one courier's shift: while they are on the
// line and idle it claims queued orders, while they are delivering it
// refreshes the assigned order.
type EmployeeTracker struct {
	employeeID string
	couriers   assignmentReader
	queue      queueClaimer
	logg       *logger.Logger

	mu      stdsync.Mutex
	current *orders.FullDetails
}

func NewEmployeeTracker(employeeID string, couriers assignmentReader, queue queueClaimer, logg *logger.Logger) (*EmployeeTracker, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee tracker employee id required")
	}
	if couriers == nil {
		return nil, fmt.Errorf("employee tracker courier service required")
	}
	if queue == nil {
		return nil, fmt.Errorf("employee tracker queue claimer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("employee tracker logger required")
	}
	return &EmployeeTracker{employeeID: employeeID, couriers: couriers, queue: queue, logg: logg}, nil
}

// Poll runs one cycle: refresh the assigned order, or try to claim one.
func (t *EmployeeTracker) Poll(ctx context.Context) error {
	assigned, err := t.couriers.AssignedOrder(ctx, t.employeeID)
	if err != nil {
		return err
	}
	if assigned != nil {
		t.setCurrent(assigned)
		return nil
	}

	courier, err := t.couriers.Get(ctx, t.employeeID)
	if err != nil {
		return err
	}
	if !courier.Online() {
		t.setCurrent(nil)
		return nil
	}

	claimed, err := t.queue.ClaimQueuedOrder(ctx, t.employeeID)
	if err != nil {
		return err
	}
	t.setCurrent(claimed)
	return nil
}

// Current returns the order the courier is working, or nil.
func (t *EmployeeTracker) Current() *orders.FullDetails {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Delivering reports whether the courier has an order in hand.
func (t *EmployeeTracker) Delivering() bool {
	return t.Current() != nil
}

// Clear drops the cached order, e.g. after handing it off.
func (t *EmployeeTracker) Clear() {
	t.setCurrent(nil)
}

func (t *EmployeeTracker) setCurrent(details *orders.FullDetails) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = details
}
