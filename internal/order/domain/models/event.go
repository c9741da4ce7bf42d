package models

type EventKind string

const (
	EventNew       EventKind = "new"
	EventUpdate    EventKind = "update"
	EventCancelled EventKind = "cancelled"
)

// Name is the wire name clients listen for, e.g. "order:update".
func (k EventKind) Name() string {
	return "order:" + string(k)
}

// Event carries the full order record so a client can apply it without prior state.
type Event struct {
	Kind  EventKind `json:"kind"`
	Order Order     `json:"order"`
}
