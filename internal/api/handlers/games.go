package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/webgames/backend/internal/auth"
)

// CreateGame registers a new game owned by the calling admin
func CreateGame(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name     string `json:"name" binding:"required"`
			Capacity int    `json:"capacity" binding:"required"`
			Image    string `json:"image"`
			Ports    []int  `json:"ports"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and capacity required"})
			return
		}

		claims := auth.GetClaims(c)
		gameID, err := deps.Identity.CreateGame(c.Request.Context(),
			req.Name, claims.UserID(), req.Capacity, req.Image, req.Ports)
		if err != nil {
			abortWithError(c, err)
			return
		}

		log.Printf("[GAMES] Game created: %d-%s", gameID, req.Name)
		c.JSON(http.StatusOK, gin.H{"gameid": gameID})
	}
}

// GameByID returns a game given its id
func GameByID(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := strconv.Atoi(c.Param("gameid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gameid must be an integer"})
			return
		}

		game, err := deps.Identity.GetGameByID(c.Request.Context(), gameID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game ID " + strconv.Itoa(gameID) + " doesn't exist"})
			return
		}
		c.JSON(http.StatusOK, game)
	}
}

// GameByName returns a game given its name
func GameByName(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		game, err := deps.Identity.GetGameByName(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game " + name + " doesn't exist"})
			return
		}
		c.JSON(http.StatusOK, game)
	}
}

// ListGames returns every registered game
func ListGames(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		games, err := deps.Identity.GetAllGames(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, games)
	}
}
