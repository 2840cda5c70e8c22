package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/edostavka/backend/pkg/config"
	"github.com/edostavka/backend/pkg/logger"
	"github.com/edostavka/backend/pkg/metrics"
)

// catalogKickDelay folds bursts of invalidations, e.g. the stock
// decrements of a multi-line checkout, into one reload.
const catalogKickDelay = 500 * time.Millisecond

type catalogRefresher interface {
	Refresh(ctx context.Context) error
}

// Manager owns the background loops: one catalog poller for the process
// and a pair of pollers per signed-in session, torn down on logout.
type Manager struct {
	catalog catalogRefresher
	cfg     config.SyncConfig
	session config.SessionConfig
	logg    *logger.Logger
	metrics *metrics.PollerMetrics

	orders        orderTracker
	reviews       reviewChecker
	feed          notificationFeed
	state         customerState
	couriers      assignmentReader
	queue         queueClaimer
	catalogKicker *Debouncer

	mu        stdsync.Mutex
	customers map[string]*customerSession
	employees map[string]*employeeSession
	cancel    context.CancelFunc
	wg        stdsync.WaitGroup
}

type customerSession struct {
	tracker *CustomerTracker
	cancel  context.CancelFunc
}

type employeeSession struct {
	tracker *EmployeeTracker
	cancel  context.CancelFunc
}

// ManagerParams configure the sync manager.
type ManagerParams struct {
	Catalog       catalogRefresher
	Orders        orderTracker
	Reviews       reviewChecker
	Notifications notificationFeed
	State         customerState
	Couriers      assignmentReader
	Queue         queueClaimer
	Sync          config.SyncConfig
	Session       config.SessionConfig
	Logger        *logger.Logger
	Metrics       *metrics.PollerMetrics
}

func NewManager(params ManagerParams) (*Manager, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("sync manager catalog service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("sync manager order service required")
	}
	if params.Reviews == nil {
		return nil, fmt.Errorf("sync manager review service required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("sync manager notification service required")
	}
	if params.State == nil {
		return nil, fmt.Errorf("sync manager state store required")
	}
	if params.Couriers == nil {
		return nil, fmt.Errorf("sync manager courier service required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("sync manager queue claimer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("sync manager logger required")
	}

	m := &Manager{
		catalog:   params.Catalog,
		cfg:       params.Sync,
		session:   params.Session,
		logg:      params.Logger,
		metrics:   params.Metrics,
		orders:    params.Orders,
		reviews:   params.Reviews,
		feed:      params.Notifications,
		state:     params.State,
		couriers:  params.Couriers,
		queue:     params.Queue,
		customers: make(map[string]*customerSession),
		employees: make(map[string]*employeeSession),
	}
	m.catalogKicker = NewDebouncer(catalogKickDelay, func() {
		if err := m.catalog.Refresh(context.Background()); err != nil {
			m.logg.Error(context.Background(), "debounced catalog refresh failed", err)
		}
	})
	return m, nil
}

// Start launches the process-wide catalog poller.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return fmt.Errorf("sync manager already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	poller, err := NewPoller("catalog", m.cfg.Catalog, m.catalog.Refresh, m.logg, m.metrics)
	if err != nil {
		cancel()
		m.cancel = nil
		return err
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = poller.Run(ctx)
	}()
	return nil
}

// Stop tears down every loop and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	for token, sess := range m.customers {
		sess.cancel()
		delete(m.customers, token)
	}
	for token, sess := range m.employees {
		sess.cancel()
		delete(m.employees, token)
	}
	m.mu.Unlock()
	m.catalogKicker.Stop()
	m.wg.Wait()
}

// KickCatalog schedules a debounced catalog reload, used after writes
// that invalidate cached stock.
func (m *Manager) KickCatalog() {
	m.catalogKicker.Trigger()
}

// StartCustomer begins order and notification polling for a session.
// Starting an already-tracked token is a no-op.
func (m *Manager) StartCustomer(token, userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[token]; ok {
		return nil
	}

	tracker, err := NewCustomerTracker(userID, email, m.orders, m.reviews, m.feed, m.state, m.session, m.logg, m.metrics)
	if err != nil {
		return err
	}
	orderPoller, err := NewPoller("customer_order", m.cfg.Order, tracker.PollOrder, m.logg, m.metrics)
	if err != nil {
		return err
	}
	feedPoller, err := NewPoller("notifications", m.cfg.Notifications, tracker.PollNotifications, m.logg, m.metrics)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx = m.logg.WithUserID(ctx, userID)
	m.customers[token] = &customerSession{tracker: tracker, cancel: cancel}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		_ = orderPoller.Run(ctx)
	}()
	go func() {
		defer m.wg.Done()
		_ = feedPoller.Run(ctx)
	}()
	return nil
}

// StartEmployee begins the claim/delivery loop for a courier session.
func (m *Manager) StartEmployee(token, employeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[token]; ok {
		return nil
	}

	tracker, err := NewEmployeeTracker(employeeID, m.couriers, m.queue, m.logg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx = m.logg.WithUserID(ctx, employeeID)
	m.employees[token] = &employeeSession{tracker: tracker, cancel: cancel}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runEmployeeLoop(ctx, tracker)
	}()
	return nil
}

// runEmployeeLoop polls on the claim cadence while idle and slows to the
// delivery cadence once an order is in hand.
func (m *Manager) runEmployeeLoop(ctx context.Context, tracker *EmployeeTracker) {
	ctx = m.logg.WithPoller(ctx, "employee")
	for {
		start := time.Now()
		err := tracker.Poll(ctx)
		if m.metrics != nil {
			m.metrics.ObserveDuration("employee", time.Since(start))
		}
		if err != nil {
			m.logg.Error(ctx, "employee poll cycle failed", err)
			if m.metrics != nil {
				m.metrics.IncFailure("employee")
			}
		} else if m.metrics != nil {
			m.metrics.IncSuccess("employee")
		}

		interval := m.cfg.Claim
		if tracker.Delivering() {
			interval = m.cfg.Delivering
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Customer returns the tracker behind a session token.
func (m *Manager) Customer(token string) (*CustomerTracker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.customers[token]
	if !ok {
		return nil, false
	}
	return sess.tracker, true
}

// Employee returns the tracker behind a courier session token.
func (m *Manager) Employee(token string) (*EmployeeTracker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.employees[token]
	if !ok {
		return nil, false
	}
	return sess.tracker, true
}

// StopSession tears down the loops of one session, e.g. on logout.
func (m *Manager) StopSession(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.customers[token]; ok {
		sess.cancel()
		delete(m.customers, token)
	}
	if sess, ok := m.employees[token]; ok {
		sess.cancel()
		delete(m.employees, token)
	}
}
