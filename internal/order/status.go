package order

// Flow is the forward path an order walks; cancelled and returned sit
// outside it.
var Flow = []Status{
	StatusPending,
	StatusPaid,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusReturned:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// FlowIndex is -1 for statuses outside Flow.
func FlowIndex(s Status) int {
	for i, f := range Flow {
		if f == s {
			return i
		}
	}
	return -1
}

// Reached reports whether an order in current has got to step. Off-flow
// statuses reach nothing.
func Reached(current, step Status) bool {
	ci, si := FlowIndex(current), FlowIndex(step)
	if ci < 0 || si < 0 {
		return false
	}
	return ci >= si
}

// CanTransition allows one step forward along Flow, or a move to cancelled
// or returned from any non-terminal status.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from == to || from.Terminal() {
		return false
	}
	if to == StatusCancelled || to == StatusReturned {
		return true
	}
	return FlowIndex(to) == FlowIndex(from)+1
}

type TrackingStep struct {
	Status  Status `json:"status"`
	Reached bool   `json:"reached"`
	Current bool   `json:"current"`
}

func Tracking(current Status) []TrackingStep {
	steps := make([]TrackingStep, 0, len(Flow))
	for _, s := range Flow {
		steps = append(steps, TrackingStep{
			Status:  s,
			Reached: Reached(current, s),
			Current: s == current,
		})
	}
	return steps
}
