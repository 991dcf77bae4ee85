package handlers

import (
	"errors"
	"strconv"

	"famli/internal/api/middleware"
	"famli/internal/logging"
	"famli/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the JSON error contract. Anything
// unrecognised is logged and reported as a bare 500.
func respondError(c *gin.Context, log logging.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(400, gin.H{"error": verr.Message})
	case errors.Is(err, services.ErrConflict):
		c.JSON(400, gin.H{"error": "Username or email already exists"})
	case errors.Is(err, services.ErrSetupCompleted):
		c.JSON(400, gin.H{"error": "Setup already completed"})
	case errors.Is(err, services.ErrSelfDelete):
		c.JSON(400, gin.H{"error": "Cannot delete your own account"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(401, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(404, gin.H{"error": "User not found"})
	case errors.Is(err, services.ErrHouseholdNotFound):
		c.JSON(404, gin.H{"error": "Household not found"})
	case errors.Is(err, services.ErrMemberNotFound):
		c.JSON(404, gin.H{"error": "Member not found"})
	default:
		log.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(500, gin.H{"error": "Internal server error"})
	}
}

// parseID reads a positive numeric path parameter. It writes the 400 itself.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(400, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// actor returns the claims of the authenticated caller
func actor(c *gin.Context) (*services.AccessClaims, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(401, gin.H{"error": "Access token required"})
		return nil, false
	}
	return claims, true
}
