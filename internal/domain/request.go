package domain

import "time"

// WorkflowType distinguishes how a service request entered the system.
type WorkflowType string

const (
	WorkflowConnectionRequest WorkflowType = "CONNECTION_REQUEST"
	WorkflowTechnicalService  WorkflowType = "TECHNICAL_SERVICE"
	WorkflowCallCenterDirect  WorkflowType = "CALL_CENTER_DIRECT"
)

// Valid reports whether the workflow type is a known one.
func (w WorkflowType) Valid() bool {
	switch w {
	case WorkflowConnectionRequest, WorkflowTechnicalService, WorkflowCallCenterDirect:
		return true
	}
	return false
}

// RequestStatus enumerates lifecycle states for service requests.
type RequestStatus string

const (
	StatusCreated    RequestStatus = "CREATED"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusCompleted  RequestStatus = "COMPLETED"
	StatusCancelled  RequestStatus = "CANCELLED"
)

// Terminal reports whether the status freezes the record.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RequestPriority enumerates SLA urgency.
type RequestPriority string

const (
	PriorityLow    RequestPriority = "LOW"
	PriorityNormal RequestPriority = "NORMAL"
	PriorityHigh   RequestPriority = "HIGH"
	PriorityUrgent RequestPriority = "URGENT"
)

// Valid reports whether the priority is a known one.
func (p RequestPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ContactInfo identifies the subscriber behind a request. Immutable once set.
type ContactInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RoleEntry is one time-boxed interval of a request being held by a role.
// LeftAt is nil while the entry is open.
type RoleEntry struct {
	ID        string     `json:"id,omitempty"`
	Role      Role       `json:"role"`
	ActorID   *string    `json:"actor_id,omitempty"`
	EnteredAt time.Time  `json:"entered_at"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
}

// Open reports whether the entry is still held.
func (e RoleEntry) Open() bool {
	return e.LeftAt == nil
}

// ServiceRequest is the aggregate for a tracked customer-service request.
// The workflow engine exclusively owns its mutation; Version backs
// optimistic concurrency on writes.
type ServiceRequest struct {
	ID                string          `json:"id"`
	ExternalKey       string          `json:"external_key"`
	WorkflowType      WorkflowType    `json:"workflow_type"`
	Status            RequestStatus   `json:"status"`
	Priority          RequestPriority `json:"priority"`
	Contact           ContactInfo     `json:"contact_info"`
	Location          string          `json:"location"`
	Description       string          `json:"description"`
	Diagnosis         *string         `json:"diagnosis,omitempty"`
	MaterialItems     []string        `json:"material_items,omitempty"`
	ReturnedToID      *string         `json:"returned_to_id,omitempty"`
	CompletionNotes   *string         `json:"completion_notes,omitempty"`
	CancelReason      *string         `json:"cancel_reason,omitempty"`
	CurrentRole       Role            `json:"current_role"`
	CurrentAssigneeID *string         `json:"current_assignee_id,omitempty"`
	RoleHistory       []RoleEntry     `json:"role_history"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OpenEntry returns the open role history entry, or nil when the record is
// terminal. A non-terminal request has exactly one open entry.
func (r *ServiceRequest) OpenEntry() *RoleEntry {
	for i := range r.RoleHistory {
		if r.RoleHistory[i].Open() {
			return &r.RoleHistory[i]
		}
	}
	return nil
}

// Terminal reports whether the request is frozen.
func (r *ServiceRequest) Terminal() bool {
	return r.Status.Terminal()
}
