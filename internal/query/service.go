package query

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/repository"
	"github.com/yakubjanov004/telecom-support-engine/internal/workflow"
	apperrors "github.com/yakubjanov004/telecom-support-engine/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Viewer scopes a query to the caller's role.
type Viewer struct {
	Role    domain.Role
	StaffID string
}

// AssigneeFilter narrows listings by assignment.
type AssigneeFilter string

const (
	AssigneeSelf       AssigneeFilter = "self"
	AssigneeUnassigned AssigneeFilter = "unassigned"
)

// Filters are the optional listing criteria.
type Filters struct {
	Status       *domain.RequestStatus
	WorkflowType *domain.WorkflowType
	Assignee     string // "self", "unassigned", or a staff id
	TextQuery    string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// Page selects a result window.
type Page struct {
	Page     int
	PageSize int
}

// Item is one listed request with its advisory escalation level.
type Item struct {
	Request    domain.ServiceRequest
	Escalation workflow.EscalationLevel
}

// Result is one page of visible requests.
type Result struct {
	Items      []Item
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
}

// DurationSummary reports elapsed time per stage and in total.
type DurationSummary struct {
	RequestID     string
	ExternalKey   string
	Status        domain.RequestStatus
	CurrentRole   domain.Role
	InCurrentRole time.Duration
	Total         time.Duration
	Escalation    workflow.EscalationLevel
	Stages        []workflow.StageDuration
}

// Service provides role-scoped, paginated, searchable read views. Reads
// never block writers and may observe slightly stale state.
type Service struct {
	requests    repository.RequestRepository
	classifier  *workflow.Classifier
	supervisory map[domain.Role]bool
	now         func() time.Time
}

// Dependencies bundles collaborators for the query service.
type Dependencies struct {
	RequestRepo repository.RequestRepository
	Classifier  *workflow.Classifier
	// SupervisoryRoles see requests where their role appears anywhere in
	// role history, not just as the current holder.
	SupervisoryRoles []domain.Role
}

// NewService constructs the read-side service.
func NewService(deps Dependencies) *Service {
	supervisory := make(map[domain.Role]bool, len(deps.SupervisoryRoles))
	for _, role := range deps.SupervisoryRoles {
		supervisory[role] = true
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = workflow.NewClassifier(nil)
	}
	return &Service{
		requests:    deps.RequestRepo,
		classifier:  classifier,
		supervisory: supervisory,
		now:         time.Now,
	}
}

// VisibleRequests lists requests the viewer's role may see, newest first.
func (s *Service) VisibleRequests(ctx context.Context, viewer Viewer, filters Filters, page Page) (*Result, error) {
	if !viewer.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown viewer role", map[string]any{"role": viewer.Role})
	}

	pageNum := page.Page
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	repoFilter := repository.RequestFilter{
		CurrentRole: &viewer.Role,
		Limit:       pageSize,
		Offset:      (pageNum - 1) * pageSize,
	}
	if s.supervisory[viewer.Role] {
		role := viewer.Role
		repoFilter.HistoryRole = &role
	}
	if filters.Status != nil {
		repoFilter.Statuses = []domain.RequestStatus{*filters.Status}
	}
	if filters.WorkflowType != nil {
		repoFilter.WorkflowTypes = []domain.WorkflowType{*filters.WorkflowType}
	}
	switch AssigneeFilter(filters.Assignee) {
	case AssigneeSelf:
		if viewer.StaffID == "" {
			return nil, apperrors.NewValidationError("assignee=self requires a staff viewer", nil)
		}
		id := viewer.StaffID
		repoFilter.AssigneeID = &id
	case AssigneeUnassigned:
		repoFilter.Unassigned = true
	case "":
	default:
		id := filters.Assignee
		repoFilter.AssigneeID = &id
	}
	if filters.TextQuery != "" {
		q := filters.TextQuery
		repoFilter.SearchTerm = &q
	}
	repoFilter.CreatedFrom = filters.CreatedFrom
	repoFilter.CreatedTo = filters.CreatedTo

	total, err := s.requests.CountWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	listed, err := s.requests.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	items := make([]Item, 0, len(listed))
	for i := range listed {
		items = append(items, Item{
			Request:    listed[i],
			Escalation: s.classifier.Classify(&listed[i], now),
		})
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	return &Result{
		Items:      items,
		TotalCount: total,
		TotalPages: totalPages,
		Page:       pageNum,
		PageSize:   pageSize,
	}, nil
}

// GetDurationSummary computes per-stage and total elapsed time for a request.
func (s *Service) GetDurationSummary(ctx context.Context, id string) (*DurationSummary, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &DurationSummary{
		RequestID:     req.ID,
		ExternalKey:   req.ExternalKey,
		Status:        req.Status,
		CurrentRole:   req.CurrentRole,
		InCurrentRole: workflow.DurationInCurrentRole(req, now),
		Total:         workflow.TotalDuration(req, now),
		Escalation:    s.classifier.Classify(req, now),
		Stages:        workflow.StageDurations(req, now),
	}, nil
}

// GetWorkflowHistory returns the ordered role history with per-entry spans.
func (s *Service) GetWorkflowHistory(ctx context.Context, id string) ([]workflow.StageDuration, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return workflow.StageDurations(req, s.now()), nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	var (
		req *domain.ServiceRequest
		err error
	)
	if len(id) > 3 && id[2] == '-' {
		req, err = s.requests.GetByExternalKey(ctx, id)
	} else {
		req, err = s.requests.GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}
