// internal/handlers/user.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

const identificationPath = "/wl/identification"

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GET /wl/customers/search?q=
//
// Answers a bare list for the officer search widget.
func (h *UserHandler) SearchCustomers(c *gin.Context) {
	results, err := h.userService.SearchCustomers(c.Query("q"))
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, results)
}

// GET /wl/identification
func (h *UserHandler) GetIdentification(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	info, err := h.userService.GetIdentification(actor.ID)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, info)
}

// POST /wl/identification
func (h *UserHandler) UploadIdentification(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	header, err := c.FormFile("identification_file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "identification_file"), nil)
		return
	}

	doc, err := h.userService.UploadIdentification(c.Request.Context(), actor.ID, header)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":               i18n.T(lang, i18n.KeyIdentificationUploaded),
		"existing_id_image_url": doc.URL,
		"document":              doc,
	})
}

// GET /wl/account
func (h *UserHandler) GetAccount(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(actor.ID)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	payload := gin.H{"user": user}
	if user.IdentificationID == nil {
		payload["warning"] = i18n.T(lang, i18n.KeyAccountIdentificationEmpty)
	}
	utils.SuccessResponse(c, payload)
}

// PUT /wl/account
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	user, outcome, err := h.userService.UpdateAccount(actor.ID, &req)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	payload := gin.H{"user": user}
	switch outcome {
	case services.AccountNameChanged:
		payload["warning"] = i18n.T(lang, i18n.KeyAccountNameChanged)
		payload["redirect"] = identificationPath
	case services.AccountIdentificationMissing:
		payload["warning"] = i18n.T(lang, i18n.KeyAccountIdentificationEmpty)
	default:
		payload["message"] = i18n.T(lang, i18n.KeyAccountUpdated)
	}
	utils.SuccessResponse(c, payload)
}

// GET /wl/documents
func (h *UserHandler) GetDocuments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	documents, err := h.userService.ListDocuments(actor.ID)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, gin.H{"documents": documents})
}

// GET /wl/documents/:id/file
func (h *UserHandler) DownloadDocument(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "document")
	if !ok {
		return
	}

	doc, file, err := h.userService.OpenDocument(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "document")
		return
	}
	defer file.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, doc.Size, contentType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", doc.Name),
	})
}
