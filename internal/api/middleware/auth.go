package middleware

import (
	"strings"

	"famli/internal/services"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// TokenVerifier checks an access token without touching the database
type TokenVerifier interface {
	VerifyAccessToken(token string) (*services.AccessClaims, error)
}

// RoleSet is the flat allow-list of one route. Roles do not imply each other.
type RoleSet map[string]struct{}

func Roles(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// Policy maps "METHOD /route/template" to the roles allowed on it. Routes
// that are not listed only require a valid token.
type Policy map[string]RoleSet

func (p Policy) Allowed(method, route, role string) bool {
	roles, restricted := p[method+" "+route]
	if !restricted {
		return true
	}
	return roles.Has(role)
}

// Gate authenticates the bearer token and enforces policy for the matched
// route. Verified claims are stored on the context for handlers.
func Gate(verifier TokenVerifier, policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(401, gin.H{"error": "Access token required"})
			return
		}

		claims, err := verifier.VerifyAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "Invalid or expired token"})
			return
		}

		if !policy.Allowed(c.Request.Method, c.FullPath(), claims.Role) {
			c.AbortWithStatusJSON(403, gin.H{"error": "Insufficient permissions"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// CurrentClaims returns the claims stored by Gate
func CurrentClaims(c *gin.Context) (*services.AccessClaims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*services.AccessClaims)
	return claims, ok
}

// Extract token from "Bearer <token>"
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
