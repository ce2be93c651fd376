package handlers

import (
	"github.com/yakubjanov004/telecom-support-engine/internal/api/dto"
	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/query"
	"github.com/yakubjanov004/telecom-support-engine/internal/workflow"
)

func requestSummary(req *domain.ServiceRequest, escalation workflow.EscalationLevel) dto.RequestSummary {
	return dto.RequestSummary{
		ID:           req.ID,
		ExternalKey:  req.ExternalKey,
		WorkflowType: req.WorkflowType,
		Status:       req.Status,
		Priority:     req.Priority,
		ContactName:  req.Contact.Name,
		Location:     req.Location,
		CurrentRole:  req.CurrentRole,
		AssigneeID:   req.CurrentAssigneeID,
		Escalation:   escalation,
		CreatedAt:    req.CreatedAt,
		UpdatedAt:    req.UpdatedAt,
	}
}

func requestDetail(req *domain.ServiceRequest) dto.RequestDetail {
	history := make([]dto.RoleEntryResponse, 0, len(req.RoleHistory))
	for _, entry := range req.RoleHistory {
		item := dto.RoleEntryResponse{
			Role:      entry.Role,
			ActorID:   entry.ActorID,
			EnteredAt: entry.EnteredAt,
			LeftAt:    entry.LeftAt,
		}
		if entry.LeftAt != nil {
			item.ElapsedSeconds = entry.LeftAt.Sub(entry.EnteredAt).Seconds()
		}
		history = append(history, item)
	}
	return dto.RequestDetail{
		ID:              req.ID,
		ExternalKey:     req.ExternalKey,
		WorkflowType:    req.WorkflowType,
		Status:          req.Status,
		Priority:        req.Priority,
		Contact:         req.Contact,
		Location:        req.Location,
		Description:     req.Description,
		Diagnosis:       req.Diagnosis,
		MaterialItems:   req.MaterialItems,
		ReturnedToID:    req.ReturnedToID,
		CompletionNotes: req.CompletionNotes,
		CancelReason:    req.CancelReason,
		CurrentRole:     req.CurrentRole,
		AssigneeID:      req.CurrentAssigneeID,
		RoleHistory:     history,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
}

func stageEntry(stage workflow.StageDuration) dto.RoleEntryResponse {
	return dto.RoleEntryResponse{
		Role:           stage.Role,
		ActorID:        stage.ActorID,
		EnteredAt:      stage.EnteredAt,
		LeftAt:         stage.LeftAt,
		ElapsedSeconds: stage.Elapsed.Seconds(),
	}
}

func durationSummary(summary *query.DurationSummary) dto.DurationSummaryResponse {
	stages := make([]dto.RoleEntryResponse, 0, len(summary.Stages))
	for _, stage := range summary.Stages {
		stages = append(stages, stageEntry(stage))
	}
	return dto.DurationSummaryResponse{
		RequestID:            summary.RequestID,
		ExternalKey:          summary.ExternalKey,
		Status:               summary.Status,
		CurrentRole:          summary.CurrentRole,
		InCurrentRoleSeconds: summary.InCurrentRole.Seconds(),
		TotalSeconds:         summary.Total.Seconds(),
		Escalation:           summary.Escalation,
		Stages:               stages,
	}
}
