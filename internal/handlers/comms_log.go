// internal/handlers/comms_log.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

// CommsLogHandler keeps the payload shapes the officer dashboard's log
// widget expects instead of the API envelope.
type CommsLogHandler struct {
	commsLogService *services.CommsLogService
}

func NewCommsLogHandler(commsLogService *services.CommsLogService) *CommsLogHandler {
	return &CommsLogHandler{
		commsLogService: commsLogService,
	}
}

// GET /wl/users/:id/comms-log
func (h *CommsLogHandler) GetCommsLog(c *gin.Context) {
	userID, ok := uuidParam(c, "id", "user")
	if !ok {
		return
	}

	entries, err := h.commsLogService.List(userID)
	if err != nil {
		respondError(c, err, "comms_log")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// POST /wl/users/:id/comms-log
func (h *CommsLogHandler) AddCommsLogEntry(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	customerID, ok := uuidParam(c, "id", "user")
	if !ok {
		return
	}

	var req services.CommsLogEntryRequest
	if err := c.ShouldBind(&req); err != nil {
		notValid(c, lang, map[string][]string{"non_field_errors": {err.Error()}})
		return
	}

	attachment, err := c.FormFile("attachment")
	if err != nil {
		attachment = nil
	}

	if _, err := h.commsLogService.Add(c.Request.Context(), actor, customerID, &req, attachment); err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			notValid(c, lang, utils.ValidationDetail(validationErr.Fields))
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": i18n.T(lang, i18n.KeyCommsLogNotFound)})
		default:
			respondError(c, err, "comms_log")
		}
		return
	}

	c.JSON(http.StatusOK, "ok")
}

func notValid(c *gin.Context, lang string, detail map[string][]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"errors": []gin.H{{
			"status": "422",
			"title":  i18n.T(lang, i18n.KeyCommsLogNotValid),
			"detail": detail,
		}},
	})
}
