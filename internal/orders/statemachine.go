package orders

import (
	"github.com/templeobijnr/payjaro-backend/internal/types"
)

// legalTransitions is the full order lifecycle. Anything not listed is
// rejected. cancelled, returned and delivered are terminal, except that
// delivered may still move to returned.
var legalTransitions = map[string][]string{
	types.OrderStatusPending:    {types.OrderStatusPaid, types.OrderStatusCancelled},
	types.OrderStatusPaid:       {types.OrderStatusProcessing, types.OrderStatusCancelled},
	types.OrderStatusProcessing: {types.OrderStatusShipped, types.OrderStatusCancelled},
	types.OrderStatusShipped:    {types.OrderStatusDelivered, types.OrderStatusReturned},
	types.OrderStatusDelivered:  {types.OrderStatusReturned},
	types.OrderStatusCancelled:  {},
	types.OrderStatusReturned:   {},
}

// CanTransition reports whether moving from one status to another is
// legal.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition returns the typed error naming both ends when the
// move is illegal.
func checkTransition(from, to string) error {
	if !CanTransition(from, to) {
		return &types.InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// IsKnownStatus reports whether the status value exists in the
// lifecycle at all.
func IsKnownStatus(status string) bool {
	_, ok := legalTransitions[status]
	return ok
}
