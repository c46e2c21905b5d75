package domain

// EventName identifies a store notification.
type EventName string

// Store events. All fire on success only unless stated.
const (
	EventConnected    EventName = "connected"
	EventDisconnected EventName = "disconnected"
	EventCreate       EventName = "create"
	EventUpdate       EventName = "update"
	EventSet          EventName = "set"
	EventGet          EventName = "get"
	EventTouch        EventName = "touch"
	EventDestroy      EventName = "destroy"
	EventAll          EventName = "all"

	// EventSweep fires after each interval eviction pass, including failed ones.
	EventSweep EventName = "sweep"
)

// Event is delivered to store listeners.
type Event struct {
	Name EventName

	// SessionID is the application session id (not the storage id).
	SessionID string

	// Session is set for touch events.
	Session Session

	// Sessions is set for all events.
	Sessions []Session

	// Count is the number of records removed by a sweep.
	Count int64

	// Err is set for disconnected events caused by a connection failure
	// and for failed sweeps.
	Err error
}
