package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/events"
	"github.com/yakubjanov004/telecom-support-engine/internal/repository"
)

// Service maps domain events to notifications and fans them out over the
// configured channels. Delivery failures are logged and never escalated to
// the caller of the originating operation.
type Service struct {
	dispatcher events.Dispatcher
	staff      repository.StaffRepository
	channels   []Channel
	logger     *zap.Logger
}

// NewService creates the notification service.
func NewService(dispatcher events.Dispatcher, staff repository.StaffRepository, channels []Channel, logger *zap.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		staff:      staff,
		channels:   channels,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to workflow events.
func (s *Service) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventRequestCreated, s.handleRequestCreated)
	s.dispatcher.Subscribe(events.EventRequestStatusChanged, s.handleStatusChanged)
	s.dispatcher.Subscribe(events.EventRequestAssigned, s.handleAssigned)
	s.dispatcher.Subscribe(events.EventMaterialsRequested, s.handleMaterialsRequested)
}

// handleRequestCreated notifies every active member of the initial role.
func (s *Service) handleRequestCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	body := fmt.Sprintf("new %s request %s from %s",
		payload.WorkflowType, event.RequestKey, payload.Contact.Name)
	s.fanOutToRole(ctx, payload.InitialRole, event.RequestKey, "new_request", body)
	return nil
}

// handleStatusChanged notifies the request's contact.
func (s *Service) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	s.send(ctx, Notification{
		Kind:           "status_changed",
		RequestKey:     event.RequestKey,
		RecipientPhone: payload.Contact.Phone,
		Body: fmt.Sprintf("request %s moved from %s to %s",
			event.RequestKey, payload.OldStatus, payload.NewStatus),
	})
	return nil
}

// handleAssigned notifies the newly responsible actor, or the whole target
// role pool when the request was queued without a named assignee.
func (s *Service) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	body := fmt.Sprintf("request %s handed from %s to %s",
		event.RequestKey, payload.OldRole, payload.NewRole)
	if payload.AssigneeID != nil {
		role := payload.NewRole
		s.send(ctx, Notification{
			Kind:          "new_assignment",
			RequestKey:    event.RequestKey,
			RecipientID:   *payload.AssigneeID,
			RecipientRole: &role,
			Body:          body,
		})
		return nil
	}
	s.fanOutToRole(ctx, payload.NewRole, event.RequestKey, "new_assignment", body)
	return nil
}

// handleMaterialsRequested notifies the warehouse pool with the item list.
func (s *Service) handleMaterialsRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MaterialsRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	body := fmt.Sprintf("request %s needs materials: %v", event.RequestKey, payload.Items)
	s.fanOutToRole(ctx, domain.RoleWarehouse, event.RequestKey, "materials_requested", body)
	return nil
}

func (s *Service) fanOutToRole(ctx context.Context, role domain.Role, requestKey, kind, body string) {
	if s.staff == nil {
		return
	}
	active := true
	members, err := s.staff.List(ctx, repository.StaffFilter{Role: &role, Active: &active})
	if err != nil {
		s.logger.Warn("notification fanout: list staff failed",
			zap.String("role", string(role)), zap.Error(err))
		return
	}
	for _, member := range members {
		memberRole := member.Role
		s.send(ctx, Notification{
			Kind:          kind,
			RequestKey:    requestKey,
			RecipientID:   member.ID,
			RecipientRole: &memberRole,
			Body:          body,
		})
	}
}

func (s *Service) send(ctx context.Context, notification Notification) {
	for _, channel := range s.channels {
		if err := channel.Send(ctx, notification); err != nil {
			s.logger.Warn("notification delivery failed",
				zap.String("channel", channel.Name()),
				zap.String("kind", notification.Kind),
				zap.String("request_key", notification.RequestKey),
				zap.Error(err))
		}
	}
}
