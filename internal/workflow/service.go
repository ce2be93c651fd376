package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/events"
	"github.com/yakubjanov004/telecom-support-engine/internal/repository"
	apperrors "github.com/yakubjanov004/telecom-support-engine/pkg/util"
)

// KeyGenerator produces external request keys.
type KeyGenerator interface {
	RequestKey(ctx context.Context, workflowType domain.WorkflowType) string
}

// Service is the role router: it owns every service-request mutation and
// validates each handoff against the shared transition table. Every
// operation is a read-validate-write transaction on a single request;
// a stale read fails with CONFLICT and never silently overwrites.
type Service struct {
	requests   repository.RequestRepository
	staff      repository.StaffRepository
	keys       KeyGenerator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// Dependencies bundles collaborators for the workflow service.
type Dependencies struct {
	RequestRepo repository.RequestRepository
	StaffRepo   repository.StaffRepository
	Keys        KeyGenerator
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewService constructs the service.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		requests:   deps.RequestRepo,
		staff:      deps.StaffRepo,
		keys:       deps.Keys,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Actor identifies who is performing an operation. StaffID is empty for
// client self-service actions.
type Actor struct {
	Role    domain.Role
	StaffID string
}

func (a Actor) eventActor() events.Actor {
	actor := events.Actor{Role: a.Role}
	if a.StaffID != "" {
		id := a.StaffID
		actor.StaffID = &id
	}
	return actor
}

// CreateInput describes a new service request.
type CreateInput struct {
	WorkflowType domain.WorkflowType
	Contact      domain.ContactInfo
	Description  string
	Location     string
	Priority     domain.RequestPriority
	CreatorRole  domain.Role
	CreatorID    *string
}

// Create opens a new request with a single open role history entry held by
// the creator role.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.ServiceRequest, error) {
	if !input.WorkflowType.Valid() {
		return nil, apperrors.NewValidationError("unknown workflow type", map[string]any{"workflow_type": input.WorkflowType})
	}
	if strings.TrimSpace(input.Contact.Name) == "" || strings.TrimSpace(input.Contact.Phone) == "" {
		return nil, apperrors.NewValidationError("contact name and phone required", nil)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if !input.CreatorRole.Valid() {
		return nil, apperrors.NewValidationError("unknown creator role", map[string]any{"role": input.CreatorRole})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	// created_at and the first entered_at come from the same instant so the
	// record never predates its own history
	now := s.now()
	req := &domain.ServiceRequest{
		ExternalKey:  s.keys.RequestKey(ctx, input.WorkflowType),
		WorkflowType: input.WorkflowType,
		Status:       domain.StatusCreated,
		Priority:     priority,
		Contact: domain.ContactInfo{
			Name:  strings.TrimSpace(input.Contact.Name),
			Phone: strings.TrimSpace(input.Contact.Phone),
		},
		Location:          strings.TrimSpace(input.Location),
		Description:       strings.TrimSpace(input.Description),
		CurrentRole:       input.CreatorRole,
		CurrentAssigneeID: input.CreatorID,
		RoleHistory: []domain.RoleEntry{{
			Role:      input.CreatorRole,
			ActorID:   input.CreatorID,
			EnteredAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventRequestCreated,
		RequestID:  req.ID,
		RequestKey: req.ExternalKey,
		Actor:      events.Actor{Role: input.CreatorRole, StaffID: input.CreatorID},
		Payload: events.RequestCreatedPayload{
			WorkflowType: req.WorkflowType,
			Priority:     req.Priority,
			InitialRole:  req.CurrentRole,
			Contact:      req.Contact,
		},
	})
	return req, nil
}

// Claim moves a created request into progress under the claiming actor.
// Idempotent when the actor already holds the current role.
func (s *Service) Claim(ctx context.Context, id string, actor Actor) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	entry := req.OpenEntry()
	if req.Terminal() || entry == nil {
		return nil, invalidTransition(req, "claim")
	}
	if req.Status == domain.StatusInProgress && actor.Role == req.CurrentRole &&
		entry.ActorID != nil && actor.StaffID != "" && *entry.ActorID == actor.StaffID {
		return req, nil
	}
	if actor.Role != req.CurrentRole {
		return nil, invalidTransition(req, "claim")
	}
	if req.Status != domain.StatusCreated && entry.ActorID != nil {
		// held by someone else in the same role
		return nil, invalidTransition(req, "claim")
	}

	oldStatus := req.Status
	req.Status = domain.StatusInProgress
	if actor.StaffID != "" {
		actorID := actor.StaffID
		entry.ActorID = &actorID
		req.CurrentAssigneeID = &actorID
	}
	if err := s.store(ctx, req); err != nil {
		return nil, err
	}

	if oldStatus != req.Status {
		s.publish(ctx, events.Event{
			Type:       events.EventRequestStatusChanged,
			RequestID:  req.ID,
			RequestKey: req.ExternalKey,
			Actor:      actor.eventActor(),
			Payload: events.StatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: req.Status,
				Contact:   req.Contact,
			},
		})
	}
	return req, nil
}

// AssignInput describes a targeted handoff. An empty TargetStaffID with a
// technician target lets the balancer pick the assignee; Region narrows the
// candidate pool.
type AssignInput struct {
	TargetStaffID string
	TargetRole    domain.Role
	Region        *string
}

// Assign closes the current role entry and opens one for the target role and
// assignee.
func (s *Service) Assign(ctx context.Context, id string, actor Actor, input AssignInput) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, invalidTransition(req, "assign")
	}
	if !CanRoute(req.CurrentRole, req.Status, ActionAssign, input.TargetRole) {
		return nil, invalidTransition(req, "assign")
	}

	assignee, err := s.resolveAssignee(ctx, req, input)
	if err != nil {
		return nil, err
	}

	var assigneeID *string
	if assignee != nil {
		assigneeID = &assignee.ID
	}
	oldRole := req.CurrentRole
	s.handOff(req, input.TargetRole, assigneeID)
	if err := s.store(ctx, req); err != nil {
		return nil, err
	}

	if assignee != nil && assignee.Role == domain.RoleTechnician {
		if err := s.staff.UpdateLastAssigned(ctx, assignee.ID, s.now()); err != nil {
			s.logger.Warn("update last assigned", zap.String("staff_id", assignee.ID), zap.Error(err))
		}
	}

	s.publish(ctx, events.Event{
		Type:       events.EventRequestAssigned,
		RequestID:  req.ID,
		RequestKey: req.ExternalKey,
		Actor:      actor.eventActor(),
		Payload: events.AssignedPayload{
			OldRole:    oldRole,
			NewRole:    req.CurrentRole,
			AssigneeID: assigneeID,
			Contact:    req.Contact,
		},
	})
	return req, nil
}

// Transfer moves a request laterally to another role's pool without a named
// assignee.
func (s *Service) Transfer(ctx context.Context, id string, actor Actor, targetRole domain.Role) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, invalidTransition(req, "transfer")
	}
	if !CanRoute(req.CurrentRole, req.Status, ActionTransfer, targetRole) {
		return nil, invalidTransition(req, "transfer")
	}

	oldRole := req.CurrentRole
	s.handOff(req, targetRole, nil)
	if err := s.store(ctx, req); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.EventRequestAssigned,
		RequestID:  req.ID,
		RequestKey: req.ExternalKey,
		Actor:      actor.eventActor(),
		Payload: events.AssignedPayload{
			OldRole: oldRole,
			NewRole: req.CurrentRole,
			Contact: req.Contact,
		},
	})
	return req, nil
}

// Diagnose attaches a technician diagnosis without touching role history.
func (s *Service) Diagnose(ctx context.Context, id string, actor Actor, diagnosis string) (*domain.ServiceRequest, error) {
	if strings.TrimSpace(diagnosis) == "" {
		return nil, apperrors.NewValidationError("diagnosis required", nil)
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanDiagnose(req.CurrentRole, req.Status) {
		return nil, invalidTransition(req, "diagnose")
	}
	text := strings.TrimSpace(diagnosis)
	req.Diagnosis = &text
	if err := s.store(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("diagnosis recorded",
		zap.String("request_key", req.ExternalKey),
		zap.String("actor_id", actor.StaffID))
	return req, nil
}

// RequestMaterials routes a technician-held request to the warehouse,
// recording who fulfillment must return to.
func (s *Service) RequestMaterials(ctx context.Context, id string, actor Actor, items []string) (*domain.ServiceRequest, error) {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperrors.NewValidationError("at least one material item required", nil)
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanRequestMaterials(req.CurrentRole, req.Status) {
		return nil, invalidTransition(req, "request_materials")
	}

	technicianID := actor.StaffID
	if technicianID == "" && req.CurrentAssigneeID != nil {
		technicianID = *req.CurrentAssigneeID
	}
	if technicianID == "" {
		return nil, apperrors.NewValidationError("requesting technician unknown", nil)
	}

	req.MaterialItems = cleaned
	req.ReturnedToID = &technicianID
	oldRole := req.CurrentRole
	s.handOff(req, domain.RoleWarehouse, nil)
	if err := s.store(ctx, req); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.EventMaterialsRequested,
		RequestID:  req.ID,
		RequestKey: req.ExternalKey,
		Actor:      actor.eventActor(),
		Payload: events.MaterialsRequestedPayload{
			TechnicianID: technicianID,
			Items:        cleaned,
		},
	})
	s.publish(ctx, events.Event{
		Type:       events.EventRequestAssigned,
		RequestID:  req.ID,
		RequestKey: req.ExternalKey,
		Actor:      actor.eventActor(),
		Payload: events.AssignedPayload{
			OldRole: oldRole,
			NewRole: domain.RoleWarehouse,
			Contact: req.Contact,
		},
	})
	return req, nil
}

// Complete closes the request from the technician or manager.
func (s *Service) Complete(ctx context.Context, id string, actor Actor, notes string) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanComplete(req.CurrentRole, req.Status) {
		return nil, invalidTransition(req, "complete")
	}

	now := s.now()
	oldStatus := req.Status
	if entry := req.OpenEntry(); entry != nil {
		entry.LeftAt = &now
	}
	req.Status = domain.StatusCompleted
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		req.CompletionNotes = &trimmed
	}
	if err := s.store(ctx, req); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.EventRequestStatusChanged,
		RequestID:  req.ID,
		RequestKey: req.ExternalKey,
		Actor:      actor.eventActor(),
		Payload: events.StatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: req.Status,
			Note:      strings.TrimSpace(notes),
			Contact:   req.Contact,
		},
	})
	return req, nil
}

// Cancel aborts a request from any non-terminal status.
func (s *Service) Cancel(ctx context.Context, id string, actor Actor, reason string) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, invalidTransition(req, "cancel")
	}

	now := s.now()
	oldStatus := req.Status
	if entry := req.OpenEntry(); entry != nil {
		entry.LeftAt = &now
	}
	req.Status = domain.StatusCancelled
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		req.CancelReason = &trimmed
	}
	if err := s.store(ctx, req); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.EventRequestStatusChanged,
		RequestID:  req.ID,
		RequestKey: req.ExternalKey,
		Actor:      actor.eventActor(),
		Payload: events.StatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: req.Status,
			Note:      strings.TrimSpace(reason),
			Contact:   req.Contact,
		},
	})
	return req, nil
}

// Get loads a request by id or external key.
func (s *Service) Get(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	return s.load(ctx, id)
}

// handOff closes the open entry and opens one for the target role.
func (s *Service) handOff(req *domain.ServiceRequest, targetRole domain.Role, assigneeID *string) {
	now := s.now()
	if entry := req.OpenEntry(); entry != nil {
		entry.LeftAt = &now
	}
	req.RoleHistory = append(req.RoleHistory, domain.RoleEntry{
		Role:      targetRole,
		ActorID:   assigneeID,
		EnteredAt: now,
	})
	req.CurrentRole = targetRole
	req.CurrentAssigneeID = assigneeID
	if req.Status == domain.StatusCreated {
		req.Status = domain.StatusInProgress
	}
}

// resolveAssignee picks the target staff member for an assign operation.
func (s *Service) resolveAssignee(ctx context.Context, req *domain.ServiceRequest, input AssignInput) (*domain.StaffMember, error) {
	targetID := input.TargetStaffID

	// warehouse fulfillment routes back to the technician who asked
	if req.CurrentRole == domain.RoleWarehouse && req.ReturnedToID != nil {
		if targetID == "" {
			targetID = *req.ReturnedToID
		} else if targetID != *req.ReturnedToID {
			return nil, apperrors.NewValidationError("materials must return to the requesting technician",
				map[string]any{"returned_to_id": *req.ReturnedToID})
		}
	}

	if targetID == "" {
		if input.TargetRole == domain.RoleTechnician {
			return s.pickTechnician(ctx, input.Region)
		}
		return nil, nil
	}

	staff, err := s.staff.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff member", map[string]any{"staff_id": targetID})
		}
		return nil, apperrors.MapError(err)
	}
	if staff.Role != input.TargetRole {
		return nil, apperrors.NewValidationError("target staff does not hold the target role",
			map[string]any{"staff_id": staff.ID, "staff_role": staff.Role})
	}
	if !staff.Active {
		return nil, apperrors.NewValidationError("target staff inactive", map[string]any{"staff_id": staff.ID})
	}
	return staff, nil
}

// pickTechnician load-balances across active technicians.
func (s *Service) pickTechnician(ctx context.Context, region *string) (*domain.StaffMember, error) {
	active := true
	role := domain.RoleTechnician
	members, err := s.staff.List(ctx, repository.StaffFilter{
		Role:   &role,
		Region: region,
		Active: &active,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(members) == 0 {
		return nil, apperrors.NewNoAvailableAgent("no technician available", nil)
	}

	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
	}
	loads, err := s.requests.CountActiveByAssignee(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	candidates := make([]Candidate, 0, len(members))
	for _, member := range members {
		candidates = append(candidates, Candidate{
			Staff:      member,
			ActiveLoad: loads[member.ID],
		})
	}
	return SelectTechnician(candidates)
}

func (s *Service) load(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	var (
		req *domain.ServiceRequest
		err error
	)
	if looksLikeExternalKey(id) {
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

func (s *Service) store(ctx context.Context, req *domain.ServiceRequest) error {
	if err := s.requests.Update(ctx, req); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return apperrors.NewConflict("request changed concurrently, re-read and retry",
				map[string]any{"request_id": req.ID})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("service request", map[string]any{"id": req.ID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func invalidTransition(req *domain.ServiceRequest, action string) error {
	return apperrors.NewInvalidTransition("operation not allowed for current role and status",
		map[string]any{
			"action":       action,
			"current_role": req.CurrentRole,
			"status":       req.Status,
		})
}

func looksLikeExternalKey(id string) bool {
	return len(id) > 3 && id[2] == '-'
}
