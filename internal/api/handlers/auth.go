package handlers

import (
	"errors"

	"famli/internal/logging"
	"famli/internal/models"
	"famli/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	log         logging.Logger
}

func NewAuthHandler(authService *services.AuthService, log logging.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

type SetupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LoginResponse struct {
	User *models.User `json:"user"`
	services.TokenPair
}

type SetupResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	services.TokenPair
}

// FirstRun reports whether the setup flow is open
func (h *AuthHandler) FirstRun(c *gin.Context) {
	firstRun, err := h.authService.IsFirstRun(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, gin.H{"isFirstRun": firstRun})
}

// Setup creates the first admin account
func (h *AuthHandler) Setup(c *gin.Context) {
	// A malformed body still has to be answered with "Setup already completed"
	// once users exist, so binding errors are left to field validation.
	var req SetupRequest
	_ = c.ShouldBindJSON(&req)

	user, pair, err := h.authService.Setup(c.Request.Context(), services.SetupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info(c.Request.Context(), "initial admin created", "user_id", user.ID, "username", user.Username)
	c.JSON(201, SetupResponse{
		Message:   "Setup completed successfully",
		User:      user,
		TokenPair: pair,
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	_ = c.ShouldBindJSON(&req)

	user, pair, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(200, LoginResponse{
		User:      user,
		TokenPair: pair,
	})
}

// Refresh rotates the caller's token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrSessionNotFound):
			c.JSON(403, gin.H{"error": "Invalid refresh token"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(403, gin.H{"error": "User not found"})
		default:
			respondError(c, h.log, err)
		}
		return
	}

	c.JSON(200, pair)
}

// Logout revokes the session behind the refresh token, if any
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.log.Warn(c.Request.Context(), "failed to revoke session", "error", err)
	}

	c.JSON(200, gin.H{"message": "Logged out successfully"})
}
