// internal/handlers/referral.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type ReferralHandler struct {
	referralService *services.ReferralService
}

func NewReferralHandler(referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
	}
}

// POST /v1/proposals/:id/referrals
func (h *ReferralHandler) SendReferral(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	proposalID, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	var req services.SendReferralRequest
	if !bindJSON(c, &req) {
		return
	}

	referral, err := h.referralService.Send(actor, proposalID, &req)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyReferralSent),
		"referral": referral,
	})
}

// GET /v1/proposals/:id/referrals
func (h *ReferralHandler) GetProposalReferrals(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	proposalID, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	referrals, err := h.referralService.ListForProposal(actor, proposalID)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, gin.H{"referrals": referrals})
}

// PUT /v1/referrals/:id/complete
func (h *ReferralHandler) CompleteReferral(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "referral")
	if !ok {
		return
	}

	var req services.CompleteReferralRequest
	if !bindJSON(c, &req) {
		return
	}

	referral, err := h.referralService.Complete(actor, id, &req)
	if err != nil {
		respondError(c, err, "referral")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyReferralCompleted),
		"referral": referral,
	})
}

// PUT /v1/referrals/:id/recall
func (h *ReferralHandler) RecallReferral(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "referral")
	if !ok {
		return
	}

	referral, err := h.referralService.Recall(actor, id)
	if err != nil {
		respondError(c, err, "referral")
		return
	}

	utils.SuccessResponse(c, gin.H{"referral": referral})
}
