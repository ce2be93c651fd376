package events

import (
	"time"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventMaterialsRequested   EventType = "materials_requested"
)

// Actor encapsulates who triggered an event.
type Actor struct {
	Role    domain.Role `json:"role"`
	StaffID *string     `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by the workflow engine after a
// transition commits.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	RequestID  string      `json:"request_id"`
	RequestKey string      `json:"request_key"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	WorkflowType domain.WorkflowType    `json:"workflow_type"`
	Priority     domain.RequestPriority `json:"priority"`
	InitialRole  domain.Role            `json:"initial_role"`
	Contact      domain.ContactInfo     `json:"contact"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	Note      string               `json:"note,omitempty"`
	Contact   domain.ContactInfo   `json:"contact"`
}

// AssignedPayload payload for role handoffs (assign, transfer, warehouse
// routing). AssigneeID is nil when the request is queued for a role pool.
type AssignedPayload struct {
	OldRole    domain.Role        `json:"old_role"`
	NewRole    domain.Role        `json:"new_role"`
	AssigneeID *string            `json:"assignee_id,omitempty"`
	Contact    domain.ContactInfo `json:"contact"`
}

// MaterialsRequestedPayload payload.
type MaterialsRequestedPayload struct {
	TechnicianID string   `json:"technician_id"`
	Items        []string `json:"items"`
}
