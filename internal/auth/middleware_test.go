package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/webgames/backend/internal/models"
	"github.com/webgames/backend/internal/session"
)

const testSecret = "test-secret"

func newAuthRouter(store session.Store, allowed ...models.ClientType) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", Authenticate(store, testSecret, allowed...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": GetClaims(c).UID})
	})
	return router
}

func request(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestAuthenticateMissingToken(t *testing.T) {
	router := newAuthRouter(session.NewMemory(), models.ClientPlayer)

	if res := request(router, ""); res.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", res.Code)
	}
}

func TestAuthenticateWrongScheme(t *testing.T) {
	router := newAuthRouter(session.NewMemory(), models.ClientPlayer)
	token, _ := GenerateToken(testSecret, time.Hour, models.ClientPlayer, uuid.New(), "")

	// The scheme carries a trailing colon; a plain Bearer is rejected
	if res := request(router, "Bearer "+token); res.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", res.Code)
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	router := newAuthRouter(session.NewMemory(), models.ClientPlayer)
	token, _ := GenerateToken(testSecret, time.Hour, models.ClientPlayer, uuid.New(), "alice")

	if res := request(router, "Bearer: "+token); res.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (body %s)", res.Code, res.Body)
	}
}

func TestAuthenticateGarbageToken(t *testing.T) {
	router := newAuthRouter(session.NewMemory(), models.ClientPlayer)

	if res := request(router, "Bearer: not-a-token"); res.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.Code)
	}
}

func TestAuthenticateRevokedToken(t *testing.T) {
	store := session.NewMemory()
	router := newAuthRouter(store, models.ClientPlayer)

	token, _ := GenerateToken(testSecret, time.Hour, models.ClientPlayer, uuid.New(), "")
	claims, err := VerifyToken(testSecret, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := store.RevokeToken(context.Background(), claims.ID, claims.ExpiresAt.Time); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if res := request(router, "Bearer: "+token); res.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.Code)
	}
}

func TestAuthenticateRestrictedAccess(t *testing.T) {
	router := newAuthRouter(session.NewMemory(), models.ClientAdmin)
	token, _ := GenerateToken(testSecret, time.Hour, models.ClientPlayer, uuid.New(), "")

	if res := request(router, "Bearer: "+token); res.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.Code)
	}
}

func TestAuthenticateAllowsAdminOnPlayerRoutes(t *testing.T) {
	router := newAuthRouter(session.NewMemory(), models.ClientPlayer, models.ClientAdmin)
	token, _ := GenerateToken(testSecret, time.Hour, models.ClientAdmin, uuid.New(), "")

	if res := request(router, "Bearer: "+token); res.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Code)
	}
}
