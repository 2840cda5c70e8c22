package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/edostavka/backend/internal/notifications"
	"github.com/edostavka/backend/internal/orders"
	"github.com/edostavka/backend/pkg/config"
	"github.com/edostavka/backend/pkg/localstate"
	"github.com/edostavka/backend/pkg/logger"
	"github.com/edostavka/backend/pkg/metrics"
)

type orderTracker interface {
	ActiveOrderForUser(ctx context.Context, userID string) (*orders.Order, error)
	FullDetails(ctx context.Context, orderID string) (*orders.FullDetails, error)
}

type reviewChecker interface {
	ReviewedProductIDs(ctx context.Context, email string) ([]string, error)
}

type notificationFeed interface {
	ListForUser(ctx context.Context, userID string) ([]notifications.Notification, error)
}

type customerState interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Del(ctx context.Context, keys ...string) error
	AddMember(ctx context.Context, key string, members ...any) error
	HasMember(ctx context.Context, key string, member any) (bool, error)
	ActiveOrderKey(userID string) string
	ThankYouKey(userID string) string
	DismissedReviewsKey(userID string) string
	ReviewPromptKey(userID string) string
	NotificationsCacheKey(userID string) string
}

// thankYouSnapshot marks a delivered order whose products were all
// reviewed already; the app shows a short-lived thank-you banner.
type thankYouSnapshot struct {
	OrderID string `json:"order_id"`
}

// CustomerView is what the storefront renders on each poll: at most one
// of the three is set.
type CustomerView struct {
	ActiveOrder  *orders.Order       `json:"active_order,omitempty"`
	ReviewPrompt *orders.FullDetails `json:"review_prompt,omitempty"`
	ThankYouID   string              `json:"thank_you_order_id,omitempty"`
}

// CustomerTracker follows one customer's order between polls. The
// snapshot in the state store is the source of truth; the remote base is
// only consulted to advance it, so a failed read never loses the order.
type CustomerTracker struct {
	userID string
	email  string

	orders  orderTracker
	reviews reviewChecker
	feed    notificationFeed
	state   customerState
	cfg     config.SessionConfig
	logg    *logger.Logger
	metrics *metrics.PollerMetrics

	guard SeqGuard
}

func NewCustomerTracker(userID, email string, orderSvc orderTracker, reviewSvc reviewChecker, feed notificationFeed, state customerState, cfg config.SessionConfig, logg *logger.Logger, m *metrics.PollerMetrics) (*CustomerTracker, error) {
	if userID == "" {
		return nil, fmt.Errorf("customer tracker user id required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("customer tracker order service required")
	}
	if reviewSvc == nil {
		return nil, fmt.Errorf("customer tracker review service required")
	}
	if feed == nil {
		return nil, fmt.Errorf("customer tracker notification feed required")
	}
	if state == nil {
		return nil, fmt.Errorf("customer tracker state store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("customer tracker logger required")
	}
	return &CustomerTracker{
		userID:  userID,
		email:   email,
		orders:  orderSvc,
		reviews: reviewSvc,
		feed:    feed,
		state:   state,
		cfg:     cfg,
		logg:    logg,
		metrics: m,
	}, nil
}

// PollOrder advances the tracked order by one step.
func (t *CustomerTracker) PollOrder(ctx context.Context) error {
	seq := t.guard.Begin()

	var snapshot orders.Order
	err := t.state.GetJSON(ctx, t.state.ActiveOrderKey(t.userID), &snapshot)
	if err == localstate.ErrNotFound {
		return t.adoptServerOrder(ctx, seq)
	}
	if err != nil {
		return err
	}

	details, err := t.orders.FullDetails(ctx, snapshot.ID)
	if err != nil {
		// Keep showing the last good snapshot through a blip.
		return err
	}

	if details.Status.IsTerminal() {
		if !t.commit(seq) {
			return nil
		}
		if err := t.state.Del(ctx, t.state.ActiveOrderKey(t.userID)); err != nil {
			return err
		}
		if details.Status == orders.StatusDelivered {
			return t.handleDelivered(ctx, details)
		}
		return nil
	}

	if !t.commit(seq) {
		return nil
	}
	if err := t.state.SetJSON(ctx, t.state.ActiveOrderKey(t.userID), details.Order, 0); err != nil {
		return err
	}
	return t.state.Del(ctx, t.state.ReviewPromptKey(t.userID))
}

// adoptServerOrder covers a fresh session with no local snapshot, e.g.
// logging in on a new device mid-delivery.
func (t *CustomerTracker) adoptServerOrder(ctx context.Context, seq uint64) error {
	order, err := t.orders.ActiveOrderForUser(ctx, t.userID)
	if err != nil {
		return err
	}
	if order == nil || order.Status.IsTerminal() {
		return nil
	}
	if !t.commit(seq) {
		return nil
	}
	if err := t.state.SetJSON(ctx, t.state.ActiveOrderKey(t.userID), order, 0); err != nil {
		return err
	}
	return t.state.Del(ctx, t.state.ThankYouKey(t.userID))
}

// handleDelivered decides between the review prompt and the thank-you
// banner once an order lands.
func (t *CustomerTracker) handleDelivered(ctx context.Context, details *orders.FullDetails) error {
	dismissed, err := t.state.HasMember(ctx, t.state.DismissedReviewsKey(t.userID), details.ID)
	if err != nil {
		return err
	}
	if dismissed {
		return nil
	}

	reviewedIDs, err := t.reviews.ReviewedProductIDs(ctx, t.email)
	if err != nil {
		return err
	}
	reviewed := make(map[string]struct{}, len(reviewedIDs))
	for _, id := range reviewedIDs {
		reviewed[id] = struct{}{}
	}

	pending := make([]orders.ProductInfo, 0, len(details.Products))
	for _, product := range details.Products {
		if _, ok := reviewed[product.ID]; !ok {
			pending = append(pending, product)
		}
	}

	if len(pending) > 0 {
		prompt := *details
		prompt.Products = pending
		return t.state.SetJSON(ctx, t.state.ReviewPromptKey(t.userID), prompt, 0)
	}
	return t.state.SetJSON(ctx, t.state.ThankYouKey(t.userID), thankYouSnapshot{OrderID: details.ID}, t.cfg.ThankYouTTL)
}

// PollNotifications refreshes the cached feed so the panel opens without
// a remote round-trip.
func (t *CustomerTracker) PollNotifications(ctx context.Context) error {
	items, err := t.feed.ListForUser(ctx, t.userID)
	if err != nil {
		return err
	}
	return t.state.SetJSON(ctx, t.state.NotificationsCacheKey(t.userID), items, 0)
}

// View assembles what the app should currently show.
func (t *CustomerTracker) View(ctx context.Context) (CustomerView, error) {
	var view CustomerView

	var active orders.Order
	err := t.state.GetJSON(ctx, t.state.ActiveOrderKey(t.userID), &active)
	if err == nil {
		view.ActiveOrder = &active
		return view, nil
	}
	if err != localstate.ErrNotFound {
		return view, err
	}

	var prompt orders.FullDetails
	err = t.state.GetJSON(ctx, t.state.ReviewPromptKey(t.userID), &prompt)
	if err == nil {
		view.ReviewPrompt = &prompt
		return view, nil
	}
	if err != localstate.ErrNotFound {
		return view, err
	}

	var thanks thankYouSnapshot
	err = t.state.GetJSON(ctx, t.state.ThankYouKey(t.userID), &thanks)
	if err == nil {
		view.ThankYouID = thanks.OrderID
		return view, nil
	}
	if err != localstate.ErrNotFound {
		return view, err
	}
	return view, nil
}

// DismissReview hides the review prompt for good.
func (t *CustomerTracker) DismissReview(ctx context.Context) error {
	var prompt orders.FullDetails
	err := t.state.GetJSON(ctx, t.state.ReviewPromptKey(t.userID), &prompt)
	if err == localstate.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := t.state.AddMember(ctx, t.state.DismissedReviewsKey(t.userID), prompt.ID); err != nil {
		return err
	}
	return t.state.Del(ctx, t.state.ReviewPromptKey(t.userID))
}

// DismissThankYou hides the thank-you banner and prevents the order from
// resurfacing as a review prompt.
func (t *CustomerTracker) DismissThankYou(ctx context.Context) error {
	var thanks thankYouSnapshot
	err := t.state.GetJSON(ctx, t.state.ThankYouKey(t.userID), &thanks)
	if err == localstate.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if thanks.OrderID != "" {
		if err := t.state.AddMember(ctx, t.state.DismissedReviewsKey(t.userID), thanks.OrderID); err != nil {
			return err
		}
	}
	return t.state.Del(ctx, t.state.ThankYouKey(t.userID))
}

// TrackOrder replaces the snapshot right after checkout so the banner
// appears without waiting for the next poll.
func (t *CustomerTracker) TrackOrder(ctx context.Context, order orders.Order) error {
	seq := t.guard.Begin()
	if !t.commit(seq) {
		return nil
	}
	if err := t.state.SetJSON(ctx, t.state.ActiveOrderKey(t.userID), order, 0); err != nil {
		return err
	}
	return t.state.Del(ctx, t.state.ThankYouKey(t.userID), t.state.ReviewPromptKey(t.userID))
}

func (t *CustomerTracker) commit(seq uint64) bool {
	if t.guard.Commit(seq) {
		return true
	}
	if t.metrics != nil {
		t.metrics.IncStale("customer_order")
	}
	return false
}
