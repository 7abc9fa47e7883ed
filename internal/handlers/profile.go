package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	log            logging.Logger
}

func NewProfileHandler(profileService *services.ProfileService, log logging.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		log:            log,
	}
}

// GetProfile returns the current user's profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}

// UpdateProfile saves username and full name
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateProfileRequest struct {
		Username string `json:"username"`
		FullName string `json:"full_name"`
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := h.profileService.SaveProfile(c.Request.Context(), userID, services.SaveProfileInput{
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}

// UploadAvatar stores the "avatar" multipart file and links it to the profile
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	header, err := c.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			h.respondProfileError(c, services.ErrNoAvatarFile)
			return
		}
		apierrors.BadRequest(c, "Invalid upload")
		return
	}

	file, err := header.Open()
	if err != nil {
		apierrors.BadRequest(c, "Invalid upload")
		return
	}
	defer file.Close()

	profile, err := h.profileService.UploadAvatar(c.Request.Context(), userID, services.AvatarUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}

func (h *ProfileHandler) respondProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProfileNotFound):
		apierrors.NotFound(c, "Profile not found")
	case errors.Is(err, services.ErrNoAvatarFile):
		apierrors.BadRequest(c, "You must select an image to upload.")
	case errors.Is(err, services.ErrAvatarTooLarge):
		apierrors.BadRequest(c, "Avatar must be 5 MB or smaller")
	case errors.Is(err, services.ErrAvatarNotImage):
		apierrors.BadRequest(c, "Avatar must be an image")
	default:
		h.log.Error(c.Request.Context(), "profile request failed", "path", c.FullPath(), "error", err)
		apierrors.InternalError(c, "Internal server error")
	}
}
