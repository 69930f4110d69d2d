package principal

import (
	"errors"

	"github.com/prontoa/order/internal/service/models/order"
)

// Kind is the principal kind resolved once at authentication time and
// carried explicitly through the request, never inferred per call site.
type Kind string

const (
	// KindOwner is the business owner; it may trigger any transition.
	KindOwner Kind = "owner"
	// KindKitchenWorker ("planta") prepares orders.
	KindKitchenWorker Kind = "planta"
	// KindCourierWorker ("repartidor") delivers orders.
	KindCourierWorker Kind = "repartidor"
	// KindSystem is the service itself, e.g. the conversational intake.
	KindSystem Kind = "system"
)

var ErrInvalidKind = errors.New("invalid principal kind")

// Principal identifies who is acting on an order.
type Principal struct {
	Kind       Kind
	WorkerID   int64
	BusinessID int64
}

// kitchen and courier worker types own two disjoint transition sets; the
// owner and the system are unrestricted.
var allowedTargets = map[Kind]map[order.Status]bool{
	KindKitchenWorker: {
		order.StatusPreparing: true,
		order.StatusReady:     true,
	},
	KindCourierWorker: {
		order.StatusSent: true,
		order.StatusPaid: true,
	},
}

// MayTransitionTo reports whether this principal kind is allowed to request
// a transition into the given status.
func (k Kind) MayTransitionTo(to order.Status) bool {
	if k == KindOwner || k == KindSystem {
		return true
	}

	return allowedTargets[k][to]
}

// MayCancel reports whether the principal kind may apply the terminal
// cancelled status. Only owners cancel; workers revert instead.
func (k Kind) MayCancel() bool {
	return k == KindOwner || k == KindSystem
}

// MayRevert reports whether the principal kind may undo the last transition.
func (k Kind) MayRevert() bool {
	return k == KindOwner || k == KindKitchenWorker || k == KindCourierWorker
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOwner, KindKitchenWorker, KindCourierWorker, KindSystem:
		return Kind(s), nil
	default:
		return "", ErrInvalidKind
	}
}
