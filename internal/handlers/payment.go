// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /v1/proposals/:id/payment/intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	proposalID, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	response, err := h.paymentService.CreatePaymentIntent(actor, proposalID)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, response)
}

// POST /v1/proposals/:id/payment/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	proposalID, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	var req services.ConfirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.paymentService.ConfirmPayment(actor, proposalID, &req)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyPaymentSuccess),
		"proposal": proposal,
	})
}

// POST /v1/proposals/:id/payment/refund
func (h *PaymentHandler) ProcessRefund(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	proposalID, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	var req services.RefundRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.paymentService.ProcessRefund(actor, proposalID, &req)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, gin.H{"proposal": proposal})
}
