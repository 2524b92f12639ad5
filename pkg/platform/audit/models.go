package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers changes to stored personal data.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// auth failures and lockouts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine admin activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out. Events never carry lead PII;
// Subject is a record id, a username or a client IP.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	Subject   string        `json:"subject,omitempty"`
	// ActorID is the admin username for back-office actions.
	ActorID   string `json:"actor_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	IP        string `json:"ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventLeadRegistered       AuditEvent = "lead_registered"
	EventLeadDeleted          AuditEvent = "lead_deleted"
	EventAdminLoginSucceeded  AuditEvent = "admin_login_succeeded"
	EventAdminLogout          AuditEvent = "admin_logout"
	EventAuthFailed           AuditEvent = "auth_failed"
	EventAuthLockoutTriggered AuditEvent = "auth_lockout_triggered"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventLeadRegistered: CategoryCompliance,
	EventLeadDeleted:    CategoryCompliance,

	EventAuthFailed:           CategorySecurity,
	EventAuthLockoutTriggered: CategorySecurity,

	EventAdminLoginSucceeded: CategoryOperations,
	EventAdminLogout:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// NewEvent builds an event for action with its category and timestamp filled.
func NewEvent(action AuditEvent, now time.Time) Event {
	return Event{
		Category:  action.Category(),
		Timestamp: now,
		Action:    string(action),
	}
}

// Publisher delivers audit events to a sink. Delivery is best effort: callers
// log a returned error and carry on.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
