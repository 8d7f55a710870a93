// internal/handlers/proposal.go
package handlers

import (
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type ProposalHandler struct {
	proposalService *services.ProposalService
	externalURL     string
}

func NewProposalHandler(proposalService *services.ProposalService, externalURL string) *ProposalHandler {
	return &ProposalHandler{
		proposalService: proposalService,
		externalURL:     externalURL,
	}
}

// POST /v1/proposals
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateProposalRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.proposalService.Create(actor, &req)
	if err != nil {
		respondError(c, err, "proposal_type")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyProposalCreated),
		"proposal": proposal,
	})
}

// GET /v1/proposals
func (h *ProposalHandler) GetProposals(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	proposals, total, err := h.proposalService.List(actor, services.ProposalSearchParams{
		PaginationParams: params,
		Status:           c.Query("status"),
	})
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(proposals, total, params))
}

// GET /v1/proposals/:id
func (h *ProposalHandler) GetProposal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	proposal, err := h.proposalService.Get(actor, id)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, gin.H{"proposal": proposal})
}

// POST /v1/proposals/:id/form
func (h *ProposalHandler) SaveProposalForm(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	req, err := readProposalForm(c)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "form"), err.Error())
		return
	}
	req.ProposalID = id

	proposal, err := h.proposalService.SaveForm(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyProposalSaved),
		"proposal": proposal,
	})
}

// POST /proposal/
//
// Browser form post from the external dashboard. Success redirects back to
// the dashboard; any failure is logged and answered with a fixed message.
func (h *ProposalHandler) LegacySaveProposalForm(c *gin.Context) {
	fail := func(err error) {
		logrus.WithError(err).Error("Failed to save proposal form")
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("en", i18n.KeyProposalFormError)})
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	req, err := readProposalForm(c)
	if err != nil {
		fail(err)
		return
	}
	if req.ProposalID, err = uuid.Parse(req.Values.Get("proposal_id")); err != nil {
		fail(err)
		return
	}

	if _, err := h.proposalService.SaveForm(c.Request.Context(), actor, req); err != nil {
		fail(err)
		return
	}

	c.Redirect(http.StatusFound, h.externalURL)
}

// POST /v1/proposals/:id/submit
func (h *ProposalHandler) SubmitProposal(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	proposal, err := h.proposalService.Submit(actor, id)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyProposalSubmitted, proposal.LodgementNumber),
		"proposal": proposal,
	})
}

// PUT /v1/proposals/:id/status
func (h *ProposalHandler) ChangeProposalStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	var req services.ProposalStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.proposalService.ChangeStatus(actor, id, &req)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyProposalStatusChanged, proposal.ProcessingStatus),
		"proposal": proposal,
	})
}

// DELETE /v1/proposals/:id
func (h *ProposalHandler) DiscardProposal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "proposal")
	if !ok {
		return
	}

	proposal, err := h.proposalService.Discard(actor, id)
	if err != nil {
		respondError(c, err, "proposal")
		return
	}

	utils.SuccessResponse(c, gin.H{"proposal": proposal})
}

// readProposalForm collects the posted values, the schema they were rendered
// from and any uploaded files. Both urlencoded and multipart bodies work.
func readProposalForm(c *gin.Context) (*services.SaveFormRequest, error) {
	var (
		values url.Values
		files  map[string][]*multipart.FileHeader
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		values = url.Values(form.Value)
		files = form.File
	} else {
		if err := c.Request.ParseForm(); err != nil {
			return nil, err
		}
		values = c.Request.PostForm
	}

	return &services.SaveFormRequest{
		Schema: []byte(values.Get("schema")),
		Values: values,
		Files:  files,
	}, nil
}
