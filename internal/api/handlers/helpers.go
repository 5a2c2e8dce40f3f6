package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webgames/backend/internal/config"
	"github.com/webgames/backend/internal/identity"
	"github.com/webgames/backend/internal/matchmaker"
	"github.com/webgames/backend/internal/msg"
	"github.com/webgames/backend/internal/session"
	"github.com/webgames/backend/internal/stream"
)

// Deps bundles everything the handlers close over
type Deps struct {
	Identity identity.Store
	Session  session.Store
	Match    *matchmaker.Matchmaker
	Bus      msg.Bus
	Hub      *stream.Hub
	Cfg      *config.Config
}

// Status reports process liveness
func Status(c *gin.Context) {
	c.String(http.StatusOK, "Server running\n")
}

// abortWithError maps domain errors onto HTTP responses: not-found
// variants are 404, other matchmaking preconditions and storage
// constraints are 400, everything else is an opaque 500.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrPlayerNotInGroup),
		errors.Is(err, session.ErrGroupDoesntExist),
		errors.Is(err, session.ErrGameDoesntExist),
		errors.Is(err, session.ErrPartyDoesntExist),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, identity.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, session.ErrPlayerInGroupAlready),
		errors.Is(err, session.ErrGroupIsFull),
		errors.Is(err, session.ErrGroupNotReady):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		var wrongState *session.WrongGroupStateError
		var constraint *identity.ConstraintError
		if errors.As(err, &wrongState) || errors.As(err, &constraint) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[API] internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
