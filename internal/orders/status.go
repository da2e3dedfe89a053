package orders

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// ordinal ranks the forward progression. CANCELLED has no rank: it is not
// part of the progression, it is the escape hatch out of it.
var ordinal = map[Status]int{
	StatusPending:   1,
	StatusConfirmed: 2,
	StatusShipped:   3,
	StatusDelivered: 4,
}

func (s Status) Valid() bool {
	_, ok := ordinal[s]
	return ok || s == StatusCancelled
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Transition validates moving an order from current to next. The progression
// is monotonic by ordinal; cancellation is allowed from any non-terminal
// state; terminal orders never change again.
func Transition(current, next Status) error {
	if current.Terminal() {
		return fmt.Errorf("order is %s: %w", current, ErrInvalidTransition)
	}
	if next == StatusCancelled {
		return nil
	}
	nr, ok := ordinal[next]
	if !ok {
		return fmt.Errorf("unknown status %q: %w", next, ErrInvalidTransition)
	}
	if nr < ordinal[current] {
		return fmt.Errorf("%s -> %s: %w", current, next, ErrInvalidTransition)
	}
	return nil
}
