package domain

import "time"

// LogAction kind of an appointment audit entry
type LogAction string

const (
	ActionCreated         LogAction = "created"
	ActionStatusChanged   LogAction = "status_changed"
	ActionAssigned        LogAction = "assigned"
	ActionReassigned      LogAction = "reassigned"
	ActionPackageAttached LogAction = "package_attached"
	ActionPackageDetached LogAction = "package_detached"
	ActionPackageDeducted LogAction = "package_deducted"
	ActionNotesUpdated    LogAction = "notes_updated"
	ActionRescheduled     LogAction = "rescheduled"
	ActionDeleted         LogAction = "deleted"
)

// AppointmentLog append-only audit entry
type AppointmentLog struct {
	ID            int64
	AppointmentID int64
	Action        LogAction
	Meta          map[string]interface{}
	UserID        *int64 // acting user
	CreatedAt     time.Time
}

// AppointmentLogFilter paging and filtering for the audit trail
type AppointmentLogFilter struct {
	AppointmentID int64
	Action        *LogAction
	Since         *time.Time
	Until         *time.Time
	Limit         int
	Offset        int
}
