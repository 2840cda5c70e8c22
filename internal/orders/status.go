package orders

// Status is an order lifecycle state, stored verbatim in the base.
type Status string

const (
	StatusAccepted        Status = "принят"
	StatusPicking         Status = "сборка"
	StatusPacking         Status = "фасовка"
	StatusAwaitingCourier Status = "ожидает курьера"
	StatusDelivering      Status = "доставляется"
	StatusDelivered       Status = "доставлен"
	StatusCancelled       Status = "отменен"
	// StatusPostponed still exists on old rows but is never set anymore;
	// delays extend the delivery estimate instead.
	StatusPostponed Status = "перенесен"
)

// Transitions move strictly forward; cancellation is allowed from any
// non-terminal state.
var validNext = map[Status]map[Status]bool{
	StatusAccepted:        {StatusPicking: true, StatusCancelled: true},
	StatusPicking:         {StatusPacking: true, StatusCancelled: true},
	StatusPacking:         {StatusAwaitingCourier: true, StatusCancelled: true},
	StatusAwaitingCourier: {StatusDelivering: true, StatusCancelled: true},
	StatusDelivering:      {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:       {},
	StatusCancelled:       {},
	StatusPostponed:       {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// IsValid reports whether the value is a known status.
func (s Status) IsValid() bool {
	_, ok := validNext[s]
	return ok
}

// IsTerminal reports whether the order is finished.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsActive reports whether the order still occupies a courier slot.
func (s Status) IsActive() bool {
	return s.IsValid() && !s.IsTerminal()
}
