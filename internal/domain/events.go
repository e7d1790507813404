package domain

// EventType side effect triggered by an appointment or package operation
type EventType string

const (
	EventAppointmentCreated     EventType = "appointment_created"
	EventStatusChanged          EventType = "status_changed"
	EventPackageAttached        EventType = "package_attached"
	EventPackageCreated         EventType = "package_created"
	EventPackageDeducted        EventType = "package_deducted"
	EventPackageRestored        EventType = "package_restored"
	EventPackageBalanceNegative EventType = "package_balance_negative"
	EventPackageExhausted       EventType = "package_exhausted"
)

// Event describes a side effect an operation performed, so callers can observe it
// without re-reading state.
type Event struct {
	Type          EventType
	AppointmentID int64
	PackageID     *int64
	Payload       map[string]interface{}
}

// TransitionResult updated appointment plus the side effects its transition triggered
type TransitionResult struct {
	Appointment *Appointment
	Events      []Event
}

// HasEvent reports whether an event of type t was emitted
func (r *TransitionResult) HasEvent(t EventType) bool {
	for _, e := range r.Events {
		if e.Type == t {
			return true
		}
	}
	return false
}
