package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService   *services.AuthService
	redirectDelay time.Duration
	log           logging.Logger
}

// NewAuthHandler creates a new AuthHandler. redirectDelay is how long the
// client waits on the signup success message before going to login.
func NewAuthHandler(authService *services.AuthService, redirectDelay time.Duration, log logging.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		redirectDelay: redirectDelay,
		log:           log,
	}
}

// Signup registers a new identity.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		FullName string `json:"full_name"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	if result.ConfirmationPending {
		c.JSON(http.StatusCreated, dto.SignupResponse{
			ConfirmationPending: true,
			Email:               result.Identity.Email,
		})
		return
	}

	userDTO := dto.ToUserDTO(*result.Identity)
	c.JSON(http.StatusCreated, dto.SignupResponse{
		User:            &userDTO,
		RedirectDelayMS: h.redirectDelay.Milliseconds(),
	})
}

// Login authenticates an identity and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	identity, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, identity.ID)
	session.Set(constants.ContextKeyEmail, identity.Email)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	userDTO := dto.ToUserDTO(*identity)
	c.JSON(http.StatusOK, userDTO)
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _ := middleware.SessionUserID(c)

	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	h.authService.Logout(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// Refresh re-issues the session cookie for the signed-in identity.
func (h *AuthHandler) Refresh(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	identity, err := h.authService.Refresh(c.Request.Context(), userID)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, identity.ID)
	session.Set(constants.ContextKeyEmail, identity.Email)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*identity))
}

// GetSession returns the current identity, or a null user when signed out.
func (h *AuthHandler) GetSession(c *gin.Context) {
	userID, ok := middleware.SessionUserID(c)
	if !ok {
		c.JSON(http.StatusOK, dto.SessionResponse{})
		return
	}

	identity, err := h.authService.GetIdentity(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrIdentityNotFound) {
			c.JSON(http.StatusOK, dto.SessionResponse{})
			return
		}
		h.respondAuthError(c, err)
		return
	}

	userDTO := dto.ToUserDTO(*identity)
	c.JSON(http.StatusOK, dto.SessionResponse{User: &userDTO})
}

// ConfirmEmail verifies the link sent at signup.
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	tokenHash := c.Query("token_hash")
	typ := c.Query("type")

	if tokenHash == "" || typ != constants.ConfirmationTypeSignup {
		apierrors.InvalidLink(c, "Invalid confirmation link")
		return
	}

	if _, err := h.authService.ConfirmEmail(c.Request.Context(), tokenHash, typ); err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConfirmResponse{
		Message:  "Email confirmed successfully. Redirecting to login...",
		Redirect: "/login",
		DelayMS:  constants.ConfirmationRedirectDelay.Milliseconds(),
	})
}

// ResendConfirmation mails a new confirmation link.
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	type ResendRequest struct {
		Email string `json:"email" binding:"required"`
	}

	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authService.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Confirmation email sent",
	})
}

// respondBindError rejects a body that could not be decoded, passing the
// decoder's message along as details.
func respondBindError(c *gin.Context, err error) {
	apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
}

func (h *AuthHandler) respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrInvalidEmail):
		apierrors.BadRequest(c, "Invalid email address")
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, "User already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, "Invalid login credentials")
	case errors.Is(err, services.ErrEmailNotConfirmed):
		apierrors.EmailNotConfirmed(c, "Email not confirmed")
	case errors.Is(err, services.ErrAlreadyConfirmed):
		apierrors.Conflict(c, "Email already confirmed")
	case errors.Is(err, services.ErrIdentityNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrInvalidConfirmationLink):
		apierrors.InvalidLink(c, "Invalid confirmation link")
	case errors.Is(err, services.ErrConfirmationExpired):
		apierrors.InvalidLink(c, "Email link is invalid or has expired")
	default:
		h.log.Error(c.Request.Context(), "auth request failed", "path", c.FullPath(), "error", err)
		apierrors.InternalError(c, "Internal server error")
	}
}
