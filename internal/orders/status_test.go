package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	assert.True(t, CanTransition(StatusAccepted, StatusPicking))
	assert.True(t, CanTransition(StatusPicking, StatusPacking))
	assert.True(t, CanTransition(StatusPacking, StatusAwaitingCourier))
	assert.True(t, CanTransition(StatusAwaitingCourier, StatusDelivering))
	assert.True(t, CanTransition(StatusDelivering, StatusDelivered))

	// No going back.
	assert.False(t, CanTransition(StatusPicking, StatusAccepted))
	assert.False(t, CanTransition(StatusDelivering, StatusPacking))
	// No skipping ahead.
	assert.False(t, CanTransition(StatusAccepted, StatusDelivering))
	assert.False(t, CanTransition(StatusAccepted, StatusDelivered))
}

func TestCancellableFromAnyActiveState(t *testing.T) {
	for _, from := range []Status{StatusAccepted, StatusPicking, StatusPacking, StatusAwaitingCourier, StatusDelivering} {
		assert.True(t, CanTransition(from, StatusCancelled), "from %s", from)
	}
	assert.False(t, CanTransition(StatusDelivered, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusAccepted))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusDelivering.IsTerminal())

	assert.True(t, StatusAccepted.IsActive())
	assert.True(t, StatusPostponed.IsActive())
	assert.False(t, StatusDelivered.IsActive())
	assert.False(t, Status("что-то").IsActive())

	assert.True(t, StatusAccepted.IsValid())
	assert.False(t, Status("").IsValid())
}
