package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/webgames/backend/internal/auth"
	"github.com/webgames/backend/internal/models"
	"github.com/webgames/backend/internal/msg"
)

// UserStream streams the caller's personal events
func UserStream(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.GetClaims(c)
		userID := claims.UserID()
		deps.Hub.Serve(c, models.QueueUser, userID, msg.UserTopic(userID))
	}
}

// GroupStream streams the events of the caller's current group
func GroupStream(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.GetClaims(c)
		userID := claims.UserID()

		sess, err := deps.Match.GetUser(c.Request.Context(), userID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		deps.Hub.Serve(c, models.QueueGroup, userID, msg.GroupTopic(sess.GroupID))
	}
}

// PartyStream streams the events of the caller's current party
func PartyStream(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.GetClaims(c)
		userID := claims.UserID()

		sess, err := deps.Match.GetUser(c.Request.Context(), userID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if sess.PartyID == uuid.Nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Player not in party"})
			return
		}
		deps.Hub.Serve(c, models.QueueParty, userID, msg.PartyTopic(sess.PartyID))
	}
}

// KickFromStream closes every stream of the given kind held by a user
func KickFromStream(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.Param("userid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		kind := models.QueueKind(c.Param("kind"))
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown queue kind"})
			return
		}

		closed := deps.Hub.Kick(kind, userID)
		log.Printf("[STREAM] kicked %s from %s (%d streams)", userID, kind, closed)
		c.Status(http.StatusNoContent)
	}
}
