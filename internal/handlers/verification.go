// internal/handlers/verification.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

// VerificationHandler serves the public approval lookup printed on permits.
type VerificationHandler struct {
	approvalService *services.ApprovalService
}

func NewVerificationHandler(approvalService *services.ApprovalService) *VerificationHandler {
	return &VerificationHandler{
		approvalService: approvalService,
	}
}

// GET /v1/verify/approvals/:number
func (h *VerificationHandler) VerifyApproval(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		utils.BadRequestResponse(c, "Lodgement number is required", nil)
		return
	}

	verification, err := h.approvalService.Verify(number)
	if err != nil {
		respondError(c, err, "approval")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"verified": verification.IsValid,
		"approval": verification,
	})
}
