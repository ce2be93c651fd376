package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yakubjanov004/telecom-support-engine/internal/api/dto"
	"github.com/yakubjanov004/telecom-support-engine/internal/auth"
	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/observability"
	"github.com/yakubjanov004/telecom-support-engine/internal/query"
	"github.com/yakubjanov004/telecom-support-engine/internal/workflow"
	apperrors "github.com/yakubjanov004/telecom-support-engine/pkg/util"
)

// conflictRetries bounds transparent retries after a lost write race; the
// engine re-reads on every attempt, so a single retry usually wins.
const conflictRetries = 2

// RequestsHandler exposes the workflow engine operations.
type RequestsHandler struct {
	engine  *workflow.Service
	queries *query.Service
	metrics *observability.Metrics
}

// NewRequestsHandler constructs the handler.
func NewRequestsHandler(engine *workflow.Service, queries *query.Service, metrics *observability.Metrics) *RequestsHandler {
	return &RequestsHandler{engine: engine, queries: queries, metrics: metrics}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := workflow.CreateInput{
		WorkflowType: domain.WorkflowType(req.WorkflowType),
		Contact: domain.ContactInfo{
			Name:  req.ContactName,
			Phone: req.ContactPhone,
		},
		Description: req.Description,
		Location:    req.Location,
		Priority:    domain.RequestPriority(req.Priority),
		CreatorRole: principal.Role,
	}
	if principal.Role.Staff() {
		id := principal.SubjectID
		input.CreatorID = &id
	}

	created, err := h.engine.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("create")
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestDetail(created)})
}

// Claim POST /requests/:id/claim.
func (h *RequestsHandler) Claim(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	updated, err := h.withConflictRetry(func() (*domain.ServiceRequest, error) {
		return h.engine.Claim(c.UserContext(), c.Params("id"), actor)
	})
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("claim")
	return c.JSON(fiber.Map{"data": requestDetail(updated)})
}

// Assign POST /requests/:id/assign.
func (h *RequestsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TargetRole == "" {
		return apperrors.NewValidationError("target_role required", nil)
	}
	input := workflow.AssignInput{
		TargetStaffID: req.TargetStaffID,
		TargetRole:    domain.Role(req.TargetRole),
		Region:        req.Region,
	}
	updated, err := h.withConflictRetry(func() (*domain.ServiceRequest, error) {
		return h.engine.Assign(c.UserContext(), c.Params("id"), actor, input)
	})
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("assign")
	return c.JSON(fiber.Map{"data": requestDetail(updated)})
}

// Transfer POST /requests/:id/transfer.
func (h *RequestsHandler) Transfer(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TransferPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TargetRole == "" {
		return apperrors.NewValidationError("target_role required", nil)
	}
	updated, err := h.withConflictRetry(func() (*domain.ServiceRequest, error) {
		return h.engine.Transfer(c.UserContext(), c.Params("id"), actor, domain.Role(req.TargetRole))
	})
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("transfer")
	return c.JSON(fiber.Map{"data": requestDetail(updated)})
}

// Diagnose POST /requests/:id/diagnose.
func (h *RequestsHandler) Diagnose(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.DiagnosePayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.withConflictRetry(func() (*domain.ServiceRequest, error) {
		return h.engine.Diagnose(c.UserContext(), c.Params("id"), actor, req.Diagnosis)
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(updated)})
}

// RequestMaterials POST /requests/:id/materials.
func (h *RequestsHandler) RequestMaterials(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.MaterialsPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.withConflictRetry(func() (*domain.ServiceRequest, error) {
		return h.engine.RequestMaterials(c.UserContext(), c.Params("id"), actor, req.Items)
	})
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("request_materials")
	return c.JSON(fiber.Map{"data": requestDetail(updated)})
}

// Complete POST /requests/:id/complete.
func (h *RequestsHandler) Complete(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CompletePayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.withConflictRetry(func() (*domain.ServiceRequest, error) {
		return h.engine.Complete(c.UserContext(), c.Params("id"), actor, req.Notes)
	})
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("complete")
	return c.JSON(fiber.Map{"data": requestDetail(updated)})
}

// Cancel POST /requests/:id/cancel.
func (h *RequestsHandler) Cancel(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CancelPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.withConflictRetry(func() (*domain.ServiceRequest, error) {
		return h.engine.Cancel(c.UserContext(), c.Params("id"), actor, req.Reason)
	})
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("cancel")
	return c.JSON(fiber.Map{"data": requestDetail(updated)})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filters, page := parseListQuery(c)
	result, err := h.queries.VisibleRequests(c.UserContext(), query.Viewer{
		Role:    principal.Role,
		StaffID: principal.SubjectID,
	}, filters, page)
	if err != nil {
		return err
	}

	items := make([]dto.RequestSummary, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, requestSummary(&result.Items[i].Request, result.Items[i].Escalation))
	}
	return c.JSON(fiber.Map{"data": dto.PagedRequests{
		Items:      items,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
		Page:       result.Page,
		PageSize:   result.PageSize,
	}})
}

// Durations GET /requests/:id/durations.
func (h *RequestsHandler) Durations(c *fiber.Ctx) error {
	summary, err := h.queries.GetDurationSummary(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": durationSummary(summary)})
}

// History GET /requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	stages, err := h.queries.GetWorkflowHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	entries := make([]dto.RoleEntryResponse, 0, len(stages))
	for _, stage := range stages {
		entries = append(entries, stageEntry(stage))
	}
	return c.JSON(fiber.Map{"data": entries})
}

// withConflictRetry retries CONFLICT a bounded number of times; each attempt
// re-reads the latest committed state inside the engine.
func (h *RequestsHandler) withConflictRetry(op func() (*domain.ServiceRequest, error)) (*domain.ServiceRequest, error) {
	var (
		updated *domain.ServiceRequest
		err     error
	)
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		updated, err = op()
		if err == nil || !apperrors.IsCode(err, apperrors.CodeConflict) {
			return updated, err
		}
	}
	return nil, err
}

func actorFromContext(c *fiber.Ctx) (workflow.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return workflow.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	actor := workflow.Actor{Role: principal.Role}
	if principal.Role.Staff() {
		actor.StaffID = principal.SubjectID
	}
	return actor, nil
}

func parseListQuery(c *fiber.Ctx) (query.Filters, query.Page) {
	var filters query.Filters
	if raw := c.Query("status"); raw != "" {
		status := domain.RequestStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("workflow_type"); raw != "" {
		wt := domain.WorkflowType(raw)
		filters.WorkflowType = &wt
	}
	filters.Assignee = c.Query("assignee")
	filters.TextQuery = c.Query("q")
	if raw := c.Query("created_from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.CreatedFrom = &t
		}
	}
	if raw := c.Query("created_to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.CreatedTo = &t
		}
	}

	page := query.Page{Page: 1, PageSize: 20}
	if raw := c.Query("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Page = n
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.PageSize = n
		}
	}
	return filters, page
}
