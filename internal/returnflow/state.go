package returnflow

// State is a step of the return flow.
type State string

const (
	StateNotStarted      State = "not_started"
	StateSelectingItems  State = "selecting_items"
	StateSelectingMethod State = "selecting_method"
	StateSubmitting      State = "submitting"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

// editable reports whether item and method selections may change in s.
func (s State) editable() bool {
	switch s {
	case StateSelectingItems, StateSelectingMethod:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted
}
