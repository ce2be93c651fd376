package dto

import (
	"time"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/workflow"
)

// CreateRequestPayload is the ticket creation payload.
type CreateRequestPayload struct {
	WorkflowType string `json:"workflow_type"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	Priority     string `json:"priority"`
}

// AssignPayload targets a handoff. TargetStaffID empty + technician target
// lets the balancer pick; region narrows candidates.
type AssignPayload struct {
	TargetStaffID string  `json:"target_staff_id"`
	TargetRole    string  `json:"target_role"`
	Region        *string `json:"region,omitempty"`
}

// TransferPayload queues a request for another role's pool.
type TransferPayload struct {
	TargetRole string `json:"target_role"`
}

// DiagnosePayload attaches a technician diagnosis.
type DiagnosePayload struct {
	Diagnosis string `json:"diagnosis"`
}

// MaterialsPayload routes a request to the warehouse.
type MaterialsPayload struct {
	Items []string `json:"items"`
}

// CompletePayload closes a request.
type CompletePayload struct {
	Notes string `json:"notes"`
}

// CancelPayload aborts a request.
type CancelPayload struct {
	Reason string `json:"reason"`
}

// RoleEntryResponse is one role-holding interval.
type RoleEntryResponse struct {
	Role           domain.Role `json:"role"`
	ActorID        *string     `json:"actor_id,omitempty"`
	EnteredAt      time.Time   `json:"entered_at"`
	LeftAt         *time.Time  `json:"left_at,omitempty"`
	ElapsedSeconds float64     `json:"elapsed_seconds"`
}

// RequestSummary is the list-view projection.
type RequestSummary struct {
	ID           string                   `json:"id"`
	ExternalKey  string                   `json:"external_key"`
	WorkflowType domain.WorkflowType      `json:"workflow_type"`
	Status       domain.RequestStatus     `json:"status"`
	Priority     domain.RequestPriority   `json:"priority"`
	ContactName  string                   `json:"contact_name"`
	Location     string                   `json:"location"`
	CurrentRole  domain.Role              `json:"current_role"`
	AssigneeID   *string                  `json:"current_assignee_id,omitempty"`
	Escalation   workflow.EscalationLevel `json:"escalation"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// RequestDetail is the full projection returned by mutating operations.
type RequestDetail struct {
	ID              string                 `json:"id"`
	ExternalKey     string                 `json:"external_key"`
	WorkflowType    domain.WorkflowType    `json:"workflow_type"`
	Status          domain.RequestStatus   `json:"status"`
	Priority        domain.RequestPriority `json:"priority"`
	Contact         domain.ContactInfo     `json:"contact_info"`
	Location        string                 `json:"location"`
	Description     string                 `json:"description"`
	Diagnosis       *string                `json:"diagnosis,omitempty"`
	MaterialItems   []string               `json:"material_items,omitempty"`
	ReturnedToID    *string                `json:"returned_to_id,omitempty"`
	CompletionNotes *string                `json:"completion_notes,omitempty"`
	CancelReason    *string                `json:"cancel_reason,omitempty"`
	CurrentRole     domain.Role            `json:"current_role"`
	AssigneeID      *string                `json:"current_assignee_id,omitempty"`
	RoleHistory     []RoleEntryResponse    `json:"role_history"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// PagedRequests is one page of visible requests.
type PagedRequests struct {
	Items      []RequestSummary `json:"items"`
	TotalCount int              `json:"total_count"`
	TotalPages int              `json:"total_pages"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// DurationSummaryResponse reports elapsed time per stage and in total.
type DurationSummaryResponse struct {
	RequestID            string                   `json:"request_id"`
	ExternalKey          string                   `json:"external_key"`
	Status               domain.RequestStatus     `json:"status"`
	CurrentRole          domain.Role              `json:"current_role"`
	InCurrentRoleSeconds float64                  `json:"in_current_role_seconds"`
	TotalSeconds         float64                  `json:"total_seconds"`
	Escalation           workflow.EscalationLevel `json:"escalation"`
	Stages               []RoleEntryResponse      `json:"stages"`
}
