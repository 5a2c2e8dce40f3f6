package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/webgames/backend/internal/models"
	"github.com/webgames/backend/internal/session"
)

const claimsKey = "auth.claims"

// Authenticate verifies the Authorization header, consults the revocation
// set and checks the principal kind against the endpoint's allow-set.
// Missing/wrong scheme are 401; invalid, revoked or restricted are 403.
func Authenticate(store session.Store, secret string, allowed ...models.ClientType) gin.HandlerFunc {
	allowSet := make(map[models.ClientType]bool, len(allowed))
	for _, typ := range allowed {
		allowSet[typ] = true
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || scheme != "Bearer:" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Wrong authorization scheme"})
			return
		}

		claims, err := VerifyToken(secret, strings.TrimSpace(token))
		if err != nil {
			log.Printf("[SECURITY] invalid token from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
			return
		}

		revoked, err := store.IsTokenRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if revoked {
			log.Printf("[SECURITY] revoked token %s used from %s", claims.ID, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Revoked token"})
			return
		}

		if !allowSet[claims.Typ] {
			log.Printf("[SECURITY] restricted access for %s token from %s", claims.Typ, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Restricted access"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the verified claims stored by Authenticate
func GetClaims(c *gin.Context) *Claims {
	claims, _ := c.Get(claimsKey)
	if claims == nil {
		return nil
	}
	return claims.(*Claims)
}
