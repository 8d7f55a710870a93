// internal/handlers/history.go
package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

//go:embed templates/reversion_history.html
var templateFS embed.FS

var historyTemplate = template.Must(template.ParseFS(templateFS, "templates/reversion_history.html"))

type HistoryHandler struct {
	revisionService *services.RevisionService
}

type historyPage struct {
	Kind     string
	ObjectID uuid.UUID
	Entries  []services.HistoryEntry
	Compare  *services.HistoryCompare
}

func NewHistoryHandler(revisionService *services.RevisionService) *HistoryHandler {
	return &HistoryHandler{
		revisionService: revisionService,
	}
}

// Kind returns the handler for one record type, mounted at
// GET /history/<kind>/:id/.
func (h *HistoryHandler) Kind(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)
		objectID, ok := uuidParam(c, "id", "record")
		if !ok {
			return
		}

		page := historyPage{Kind: kind, ObjectID: objectID}
		v1, v2 := c.Query("version_id1"), c.Query("version_id2")

		var err error
		switch {
		case v1 == "" && v2 == "":
			page.Entries, err = h.revisionService.History(kind, objectID)
		case v1 == "" || v2 == "":
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyHistorySameVersion), nil)
			return
		default:
			id1, err1 := uuid.Parse(v1)
			id2, err2 := uuid.Parse(v2)
			if err1 != nil || err2 != nil {
				utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyHistoryVersionMismatch), nil)
				return
			}
			page.Compare, err = h.revisionService.Compare(kind, objectID, id1, id2)
		}

		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnknownHistory), errors.Is(err, services.ErrNotFound):
				utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", i18n.T(lang, i18n.KeyHistoryNotFound), nil)
			case errors.Is(err, services.ErrSameVersion):
				utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyHistorySameVersion), nil)
			case errors.Is(err, services.ErrVersionMismatch):
				utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyHistoryVersionMismatch), nil)
			default:
				respondError(c, err, "history")
			}
			return
		}

		if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
			c.Render(http.StatusOK, render.HTML{Template: historyTemplate, Name: "reversion_history.html", Data: page})
			return
		}

		if page.Compare != nil {
			utils.SuccessResponse(c, page.Compare)
			return
		}
		utils.SuccessResponse(c, gin.H{"history": page.Entries})
	}
}
