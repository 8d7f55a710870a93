// internal/handlers/profile.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/i18n"
	"github.com/permitdesk/licensing-backend/internal/services"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// GET /wl/profiles
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	profiles, err := h.profileService.List(actor.ID)
	if err != nil {
		respondError(c, err, "profile")
		return
	}

	utils.SuccessResponse(c, gin.H{"profiles": profiles})
}

// POST /wl/profiles
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.ProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profileService.Create(actor.ID, &req)
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProfileCreated, profile.Name),
		"profile": profile,
	})
}

// GET /wl/profiles/:id
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "profile")
	if !ok {
		return
	}

	profile, err := h.profileService.Get(actor.ID, id)
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"profile": profile})
}

// PUT /wl/profiles/:id
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "profile")
	if !ok {
		return
	}

	var req services.ProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profileService.Update(actor.ID, id, &req)
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProfileUpdated, profile.Name),
		"profile": profile,
	})
}

// DELETE /wl/profiles/:id
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "profile")
	if !ok {
		return
	}

	profile, err := h.profileService.Delete(actor.ID, id)
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProfileDeleted, profile.Name),
	})
}

// Profiles belonging to someone else answer 401, not 403.
func (h *ProfileHandler) respondProfileError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrUnauthorized) {
		utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyProfileNotOwner))
		return
	}
	respondError(c, err, "profile")
}
