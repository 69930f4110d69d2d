package order

import "fmt"

// InvalidTransitionError reports a status change the lifecycle graph does not
// permit. It always carries both the current and the attempted status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: current=%s attempted=%s", e.From, e.To)
}

// UnauthorizedError reports an actor whose role does not permit the requested
// transition. It is distinct from InvalidTransitionError: the transition may
// well be valid, just not for this actor.
type UnauthorizedError struct {
	Actor string
	From  Status
	To    Status
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("actor %s is not allowed to transition %s -> %s", e.Actor, e.From, e.To)
}
