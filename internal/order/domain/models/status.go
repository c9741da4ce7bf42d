package models

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusDone      Status = "done"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// transitions lists the legal targets of every status.
// paid and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusDone, StatusPaid, StatusCancelled},
	StatusPreparing: {StatusDone, StatusPaid, StatusCancelled},
	StatusDone:      {StatusPaid, StatusCancelled},
	StatusPaid:      nil,
	StatusCancelled: nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is a legal step.
// Staying in the same status is not a transition.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OpenStatuses are the non-terminal statuses.
func OpenStatuses() []Status {
	return []Status{StatusPending, StatusPreparing, StatusDone}
}
