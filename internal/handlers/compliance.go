// internal/handlers/compliance.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type ComplianceHandler struct {
	complianceService *services.ComplianceService
}

func NewComplianceHandler(complianceService *services.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{
		complianceService: complianceService,
	}
}

// POST /v1/compliances
func (h *ComplianceHandler) CreateCompliance(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateComplianceRequest
	if !bindJSON(c, &req) {
		return
	}

	compliance, err := h.complianceService.Create(actor, &req)
	if err != nil {
		respondError(c, err, "approval")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyComplianceCreated, compliance.LodgementNumber),
		"compliance": compliance,
	})
}

// GET /v1/compliances
func (h *ComplianceHandler) GetCompliances(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	searchParams := services.ComplianceSearchParams{
		PaginationParams: params,
		Status:           c.Query("status"),
	}
	if approval := c.Query("approval_id"); approval != "" {
		approvalID, err := uuid.Parse(approval)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid approval ID", nil)
			return
		}
		searchParams.ApprovalID = &approvalID
	}

	compliances, total, err := h.complianceService.List(actor, searchParams)
	if err != nil {
		respondError(c, err, "compliance")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(compliances, total, params))
}

// GET /v1/compliances/:id
func (h *ComplianceHandler) GetCompliance(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "compliance")
	if !ok {
		return
	}

	compliance, err := h.complianceService.Get(actor, id)
	if err != nil {
		respondError(c, err, "compliance")
		return
	}

	utils.SuccessResponse(c, gin.H{"compliance": compliance})
}

// POST /v1/compliances/:id/submit
func (h *ComplianceHandler) SubmitCompliance(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "compliance")
	if !ok {
		return
	}

	var req services.SubmitComplianceRequest
	if !bindJSON(c, &req) {
		return
	}

	compliance, err := h.complianceService.Submit(actor, id, &req)
	if err != nil {
		respondError(c, err, "compliance")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyComplianceSubmitted),
		"compliance": compliance,
	})
}

// PUT /v1/compliances/:id/assess
func (h *ComplianceHandler) AssessCompliance(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "compliance")
	if !ok {
		return
	}

	var req services.AssessComplianceRequest
	if !bindJSON(c, &req) {
		return
	}

	compliance, err := h.complianceService.Assess(actor, id, &req)
	if err != nil {
		respondError(c, err, "compliance")
		return
	}

	message := i18n.T(lang, i18n.KeyComplianceAmendment)
	if req.Accept {
		message = i18n.T(lang, i18n.KeyComplianceAccepted)
	}
	utils.SuccessResponse(c, gin.H{
		"message":    message,
		"compliance": compliance,
	})
}
