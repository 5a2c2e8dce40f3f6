package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/webgames/backend/internal/auth"
	"github.com/webgames/backend/internal/models"
)

// Register creates a new account
func Register(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password required"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		userID := uuid.New()
		err = deps.Identity.CreateUser(c.Request.Context(), models.User{
			UserID:       userID,
			Name:         req.Username,
			Email:        req.Email,
			PasswordHash: hash,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}

		log.Printf("[AUTH] Account created: %s", userID)
		c.JSON(http.StatusOK, gin.H{"userid": userID.String()})
	}
}

// Login authenticates a user and mints a fresh token
func Login(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Login    string `json:"login" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "login and password required"})
			return
		}

		user, err := deps.Identity.GetUserByLogin(c.Request.Context(), req.Login)
		if err != nil {
			log.Printf("[SECURITY] User not found (IP: %s)", c.ClientIP())
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			log.Printf("[SECURITY] Wrong password for user %s (IP: %s)", user.Name, c.ClientIP())
			c.JSON(http.StatusForbidden, gin.H{"error": "Wrong password"})
			return
		}

		typ := models.ClientPlayer
		if user.IsAdmin {
			typ = models.ClientAdmin
		}
		token, err := auth.GenerateToken(deps.Cfg.JWTSecret, deps.Cfg.JWTExpiration, typ, user.UserID, user.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		log.Printf("[AUTH] User connected: %s", user.UserID)
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// Logout revokes the caller's token, closes their user streams and pulls
// them out of their group
func Logout(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.GetClaims(c)
		expiry := time.Now().Add(deps.Cfg.JWTExpiration)
		if claims.ExpiresAt != nil {
			expiry = claims.ExpiresAt.Time
		}
		if err := deps.Session.RevokeToken(c.Request.Context(), claims.ID, expiry); err != nil {
			abortWithError(c, err)
			return
		}

		// Kick user from their user streams
		url := fmt.Sprintf("%s/kick/%s/from/%s", deps.Cfg.MsgQueuesURL, claims.UID, models.QueueUser)
		selfCall(c, deps, http.MethodDelete, url, http.StatusNoContent)

		// Kick user out of their group
		url = fmt.Sprintf("%s/kick/%s", deps.Cfg.GroupURL, claims.UID)
		selfCall(c, deps, http.MethodDelete, url, http.StatusNoContent, http.StatusNotFound)

		log.Printf("[AUTH] User disconnected: %s", claims.ID)
		c.Status(http.StatusNoContent)
	}
}

// selfCall performs an authenticated request against our own HTTP surface.
// Failures are logged, never surfaced: the logout itself already happened.
func selfCall(c *gin.Context, deps *Deps, method, url string, okStatus ...int) {
	token, err := auth.GenerateToken(deps.Cfg.JWTSecret, time.Minute, models.ClientAdmin, uuid.Nil, "")
	if err != nil {
		log.Printf("[AUTH] self-call token: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), method, url, nil)
	if err != nil {
		log.Printf("[AUTH] self-call %s: %v", url, err)
		return
	}
	req.Header.Set("Authorization", "Bearer: "+token)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("[AUTH] Error calling url %s: %v", url, err)
		return
	}
	defer res.Body.Close()

	for _, status := range okStatus {
		if res.StatusCode == status {
			return
		}
	}
	log.Printf("[AUTH] Error calling url %s: %d %s", url, res.StatusCode, res.Status)
}
