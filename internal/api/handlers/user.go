package handlers

import (
	"famli/internal/logging"
	"famli/internal/models"
	"famli/internal/services"

	"github.com/gin-gonic/gin"
)

const defaultAuditLimit = 50

type UserHandler struct {
	userService  *services.UserService
	auditService *services.AuditService
	log          logging.Logger
}

func NewUserHandler(userService *services.UserService, auditService *services.AuditService, log logging.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		auditService: auditService,
		log:          log,
	}
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type PreferencesRequest struct {
	Preferences models.JSONMap `json:"preferences"`
}

// GetUsers returns all users
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.userService.GetUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, users)
}

// GetMe returns the caller's own profile
func (h *UserHandler) GetMe(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, user)
}

// UpdatePreferences replaces the caller's preferences
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}

	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Preferences must be a JSON object"})
		return
	}
	if req.Preferences == nil {
		req.Preferences = models.JSONMap{}
	}

	if err := h.userService.UpdatePreferences(c.Request.Context(), claims.UserID, req.Preferences); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(200, gin.H{
		"message":     "Preferences updated successfully",
		"preferences": req.Preferences,
	})
}

// CreateUser creates a new user
func (h *UserHandler) CreateUser(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}

	var req CreateUserRequest
	_ = c.ShouldBindJSON(&req)

	user, err := h.userService.CreateUser(c.Request.Context(), claims.UserID, services.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(201, user)
}

// UpdateUser updates an existing user
func (h *UserHandler) UpdateUser(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	_ = c.ShouldBindJSON(&req)

	user, err := h.userService.UpdateUser(c.Request.Context(), claims.UserID, id, services.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(200, user)
}

// DeleteUser deletes a user
func (h *UserHandler) DeleteUser(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), claims.UserID, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(200, gin.H{"message": "User deleted successfully"})
}

// GetAuditLog returns audit entries newest first
func (h *UserHandler) GetAuditLog(c *gin.Context) {
	page := services.NewPageRequest(queryInt(c, "page"), queryInt(c, "limit"), defaultAuditLimit)

	result, err := h.auditService.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, result)
}
