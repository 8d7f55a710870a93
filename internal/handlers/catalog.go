// internal/handlers/catalog.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

// CatalogHandler serves proposal types and help pages.
type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// GET /v1/proposal-types
func (h *CatalogHandler) GetProposalTypes(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))

	types, err := h.catalogService.ListProposalTypes(all)
	if err != nil {
		respondError(c, err, "proposal_type")
		return
	}

	utils.SuccessResponse(c, gin.H{"proposal_types": types})
}

// GET /v1/proposal-types/:id
func (h *CatalogHandler) GetProposalType(c *gin.Context) {
	id, ok := uuidParam(c, "id", "proposal type")
	if !ok {
		return
	}

	proposalType, err := h.catalogService.GetProposalType(id)
	if err != nil {
		respondError(c, err, "proposal_type")
		return
	}

	utils.SuccessResponse(c, gin.H{"proposal_type": proposalType})
}

// POST /v1/admin/proposal-types
func (h *CatalogHandler) CreateProposalType(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.ProposalTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	proposalType, err := h.catalogService.CreateProposalType(actor, &req)
	if err != nil {
		respondError(c, err, "proposal_type")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyProposalTypeSaved),
		"proposal_type": proposalType,
	})
}

// PUT /v1/admin/proposal-types/:id
func (h *CatalogHandler) UpdateProposalType(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "proposal type")
	if !ok {
		return
	}

	var req services.ProposalTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	proposalType, err := h.catalogService.UpdateProposalType(actor, id, &req)
	if err != nil {
		respondError(c, err, "proposal_type")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyProposalTypeSaved),
		"proposal_type": proposalType,
	})
}

// GET /v1/help-pages
func (h *CatalogHandler) GetHelpPages(c *gin.Context) {
	pages, err := h.catalogService.ListHelpPages(c.Query("application_type"), c.Query("help_type"))
	if err != nil {
		respondError(c, err, "help_page")
		return
	}

	utils.SuccessResponse(c, gin.H{"help_pages": pages})
}

// GET /v1/help-pages/:application_type
func (h *CatalogHandler) GetLatestHelpPage(c *gin.Context) {
	page, err := h.catalogService.LatestHelpPage(c.Param("application_type"), c.Query("help_type"))
	if err != nil {
		respondError(c, err, "help_page")
		return
	}

	utils.SuccessResponse(c, gin.H{"help_page": page})
}

// POST /v1/admin/help-pages
func (h *CatalogHandler) SaveHelpPage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.HelpPageRequest
	if !bindJSON(c, &req) {
		return
	}

	page, err := h.catalogService.SaveHelpPage(actor, &req)
	if err != nil {
		respondError(c, err, "help_page")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyHelpPageSaved),
		"help_page": page,
	})
}
