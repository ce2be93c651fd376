package domain

import "time"

// StaffMember models an operator in the routing chain: call-center agents,
// controllers, managers, technicians, warehouse staff. Seq is a monotonically
// increasing row number used as the final deterministic tie-break when the
// balancer picks an assignee.
type StaffMember struct {
	ID             string
	Seq            int64
	Name           string
	Phone          string
	Role           Role
	Region         *string
	Specialty      *string
	Active         bool
	LastAssignedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
