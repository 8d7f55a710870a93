// internal/handlers/approval.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type ApprovalHandler struct {
	approvalService *services.ApprovalService
}

func NewApprovalHandler(approvalService *services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
	}
}

// POST /v1/proposals/:id/approval
func (h *ApprovalHandler) IssueApproval(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	proposalID, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	var req services.IssueApprovalRequest
	if !bindJSON(c, &req) {
		return
	}

	approval, err := h.approvalService.Issue(actor, proposalID, &req)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyApprovalIssued, approval.LodgementNumber),
		"approval": approval,
	})
}

// GET /v1/approvals
func (h *ApprovalHandler) GetApprovals(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	approvals, total, err := h.approvalService.List(actor, services.ApprovalSearchParams{
		PaginationParams: params,
		Status:           c.Query("status"),
	})
	if err != nil {
		respondError(c, err, "approval")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(approvals, total, params))
}

// GET /v1/approvals/:id
func (h *ApprovalHandler) GetApproval(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "approval")
	if !ok {
		return
	}

	approval, err := h.approvalService.Get(actor, id)
	if err != nil {
		respondError(c, err, "approval")
		return
	}

	utils.SuccessResponse(c, gin.H{"approval": approval})
}

// PUT /v1/approvals/:id/status
func (h *ApprovalHandler) ChangeApprovalStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "approval")
	if !ok {
		return
	}

	var req services.ApprovalStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	approval, err := h.approvalService.ChangeStatus(actor, id, &req)
	if err != nil {
		respondError(c, err, "approval")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyApprovalStatusChanged, approval.Status),
		"approval": approval,
	})
}
