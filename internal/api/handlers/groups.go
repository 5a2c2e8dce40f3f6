package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/webgames/backend/internal/auth"
	"github.com/webgames/backend/internal/models"
	"github.com/webgames/backend/internal/msg"
	"github.com/webgames/backend/internal/session"
)

// GroupState returns the caller's current group: state, annotated member
// list, game and any slot/party references
func GroupState(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		claims := auth.GetClaims(c)

		sess, err := deps.Match.GetUser(ctx, claims.UserID())
		if err != nil {
			abortWithError(c, err)
			return
		}
		group, err := deps.Match.GetGroup(ctx, sess.GroupID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		members := make([]gin.H, 0, len(group.Members))
		for _, memberID := range group.Members {
			member, err := deps.Identity.GetUserByID(ctx, memberID)
			if err != nil {
				abortWithError(c, err)
				return
			}
			ready, err := deps.Match.IsUserReady(ctx, memberID)
			if err != nil {
				abortWithError(c, err)
				return
			}
			members = append(members, gin.H{
				"id":    memberID.String(),
				"name":  member.Name,
				"ready": ready,
			})
		}

		body := gin.H{
			"state":   group.State,
			"members": members,
			"gameid":  group.GameID,
		}
		if group.SlotID != uuid.Nil {
			body["slotid"] = group.SlotID.String()
		}
		if group.PartyID != uuid.Nil {
			body["partyid"] = group.PartyID.String()
		}
		c.JSON(http.StatusOK, body)
	}
}

// CreateGroup creates a new group for the given game
func CreateGroup(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := strconv.Atoi(c.Param("gameid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gameid must be an integer"})
			return
		}

		claims := auth.GetClaims(c)
		groupID, err := deps.Match.CreateGroup(c.Request.Context(), claims.UserID(), gameID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"groupid": groupID.String()})
	}
}

// JoinGroup joins a group given its id
func JoinGroup(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, err := uuid.Parse(c.Param("groupid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
			return
		}

		ctx := c.Request.Context()
		claims := auth.GetClaims(c)
		if err := deps.Match.JoinGroup(ctx, groupID, claims.UserID()); err != nil {
			abortWithError(c, err)
			return
		}

		publishGroupEvent(deps, c, groupID, "group:user joined", claims)
		c.Status(http.StatusNoContent)
	}
}

// InviteByID invites a player to the caller's group given their id
func InviteByID(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, err := uuid.Parse(c.Param("userid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		invite(deps, c, targetID)
	}
}

// InviteByName invites a player to the caller's group given their login
func InviteByName(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := deps.Identity.GetUserByLogin(c.Request.Context(), c.Param("name"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		invite(deps, c, target.UserID)
	}
}

func invite(deps *Deps, c *gin.Context, targetID uuid.UUID) {
	ctx := c.Request.Context()
	claims := auth.GetClaims(c)

	sess, err := deps.Match.GetUser(ctx, claims.UserID())
	if err != nil {
		abortWithError(c, err)
		return
	}
	group, err := deps.Match.GetGroup(ctx, sess.GroupID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	game, err := deps.Identity.GetGameByID(ctx, group.GameID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	payload := gin.H{
		"type": "group:invitation recieved",
		"from": gin.H{
			"userid":   claims.UID,
			"username": claims.Nic,
		},
		"to": gin.H{
			"groupid":  sess.GroupID.String(),
			"gameid":   strconv.Itoa(game.GameID),
			"gamename": game.Name,
		},
	}
	if err := deps.Bus.Publish(ctx, msg.UserTopic(targetID), payload); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LeaveGroup removes the caller from their group
func LeaveGroup(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.GetClaims(c)
		if err := doLeave(deps, c, claims.UserID(), claims.Nic); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// KickFromGroup removes a player from their group, tolerating players who
// are not in one
func KickFromGroup(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, err := uuid.Parse(c.Param("userid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		err = doLeave(deps, c, targetID, "")
		var wrongState *session.WrongGroupStateError
		switch {
		case errors.Is(err, session.ErrPlayerNotInGroup):
			log.Printf("[GROUPS] Cannot kick a player who is not in a group")
		case errors.As(err, &wrongState):
			log.Printf("[GROUPS] Cannot kick a player playing")
		case err != nil:
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// doLeave removes a user from their group, closes their group stream and
// notifies the remaining members
func doLeave(deps *Deps, c *gin.Context, userID uuid.UUID, username string) error {
	ctx := c.Request.Context()

	sess, err := deps.Match.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := deps.Match.LeaveGroup(ctx, userID); err != nil {
		return err
	}

	// Kick user from their group streams
	url := fmt.Sprintf("%s/kick/%s/from/%s", deps.Cfg.MsgQueuesURL, userID, models.QueueGroup)
	selfCall(c, deps, http.MethodDelete, url, http.StatusNoContent)

	payload := gin.H{
		"type": "group:user left",
		"user": gin.H{
			"userid":   userID.String(),
			"username": username,
		},
	}
	if err := deps.Bus.Publish(ctx, msg.GroupTopic(sess.GroupID), payload); err != nil {
		log.Printf("[GROUPS] publish user left: %v", err)
	}
	return nil
}

// MarkReady marks the caller as ready
func MarkReady(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		readiness(deps, c, true)
	}
}

// MarkNotReady clears the caller's readiness
func MarkNotReady(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		readiness(deps, c, false)
	}
}

func readiness(deps *Deps, c *gin.Context, ready bool) {
	ctx := c.Request.Context()
	claims := auth.GetClaims(c)

	var err error
	event := "group:user is ready"
	if ready {
		err = deps.Match.MarkReady(ctx, claims.UserID())
	} else {
		err = deps.Match.MarkNotReady(ctx, claims.UserID())
		event = "group:user is not ready"
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	sess, err := deps.Match.GetUser(ctx, claims.UserID())
	if err != nil {
		abortWithError(c, err)
		return
	}
	publishGroupEvent(deps, c, sess.GroupID, event, claims)
	c.Status(http.StatusNoContent)
}

// StartQueue places the caller's group into the matchmaker
func StartQueue(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		claims := auth.GetClaims(c)

		sess, err := deps.Match.GetUser(ctx, claims.UserID())
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := deps.Match.JoinQueue(ctx, sess.GroupID); err != nil {
			abortWithError(c, err)
			return
		}

		payload := gin.H{"type": "group:queue joined"}
		if err := deps.Bus.Publish(ctx, msg.GroupTopic(sess.GroupID), payload); err != nil {
			log.Printf("[GROUPS] publish queue joined: %v", err)
		}
		c.Status(http.StatusNoContent)
	}
}

func publishGroupEvent(deps *Deps, c *gin.Context, groupID uuid.UUID, event string, claims *auth.Claims) {
	payload := gin.H{
		"type": event,
		"user": gin.H{
			"userid":   claims.UID,
			"username": claims.Nic,
		},
	}
	if err := deps.Bus.Publish(c.Request.Context(), msg.GroupTopic(groupID), payload); err != nil {
		log.Printf("[GROUPS] publish %s: %v", event, err)
	}
}
