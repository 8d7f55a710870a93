// internal/handlers/licence.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type LicenceHandler struct {
	licenceService *services.LicenceService
	siteURL        string
}

func NewLicenceHandler(licenceService *services.LicenceService, siteURL string) *LicenceHandler {
	return &LicenceHandler{
		licenceService: licenceService,
		siteURL:        siteURL,
	}
}

// GET /wl/licences
func (h *LicenceHandler) GetLicences(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	searchParams := services.LicenceSearchParams{PaginationParams: params}
	if holder := c.Query("holder_id"); holder != "" {
		holderID, err := uuid.Parse(holder)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid holder ID", nil)
			return
		}
		searchParams.HolderID = &holderID
	}

	licences, total, err := h.licenceService.List(searchParams)
	if err != nil {
		respondError(c, err, "licence")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(licences, total, params))
}

// GET /wl/licences/:id
func (h *LicenceHandler) GetLicence(c *gin.Context) {
	id, ok := uuidParam(c, "id", "licence")
	if !ok {
		return
	}

	licence, err := h.licenceService.Get(id)
	if err != nil {
		respondError(c, err, "licence")
		return
	}

	utils.SuccessResponse(c, gin.H{"licence": licence})
}

// GET /wl/licences/:id/renewal-pdf
func (h *LicenceHandler) RenewalPDF(c *gin.Context) {
	id, ok := uuidParam(c, "id", "licence")
	if !ok {
		return
	}

	doc, err := h.licenceService.RenewalPDF(id, h.siteURL)
	if err != nil {
		respondError(c, err, "licence")
		return
	}

	writePDF(c, doc)
}

// POST /wl/licences/renewal-pdf
//
// Accepts a JSON body or a form post with "query" and repeated "ids".
func (h *LicenceHandler) BulkRenewalPDF(c *gin.Context) {
	var req services.BulkRenewalRequest
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if !bindJSON(c, &req) {
			return
		}
	} else {
		req.Query = c.PostForm("query")
		for _, raw := range c.PostFormArray("ids") {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				utils.BadRequestResponse(c, "Invalid licence ID", nil)
				return
			}
			req.IDs = append(req.IDs, id)
		}
	}

	doc, err := h.licenceService.BulkRenewalPDF(&req, h.siteURL)
	if err != nil {
		respondError(c, err, "licence")
		return
	}

	writePDF(c, doc)
}

func writePDF(c *gin.Context, doc *services.RenderedPDF) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}
