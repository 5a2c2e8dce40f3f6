package api

import (
	"github.com/gin-gonic/gin"

	"github.com/webgames/backend/internal/api/handlers"
	"github.com/webgames/backend/internal/auth"
	"github.com/webgames/backend/internal/middleware"
	"github.com/webgames/backend/internal/models"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps *handlers.Deps) {
	router.Use(middleware.CORSMiddleware(deps.Cfg))

	router.GET("/status", handlers.Status)

	player := auth.Authenticate(deps.Session, deps.Cfg.JWTSecret, models.ClientPlayer, models.ClientAdmin)
	admin := auth.Authenticate(deps.Session, deps.Cfg.JWTSecret, models.ClientAdmin)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", handlers.Register(deps))
			authGroup.POST("/", handlers.Login(deps))
			authGroup.DELETE("/", player, handlers.Logout(deps))
		}

		games := v1.Group("/games")
		{
			games.POST("/create", admin, handlers.CreateGame(deps))
			games.GET("/byid/:gameid", handlers.GameByID(deps))
			games.GET("/byname/:name", handlers.GameByName(deps))
			games.GET("/", handlers.ListGames(deps))
		}

		groups := v1.Group("/groups")
		{
			groups.GET("/", player, handlers.GroupState(deps))
			groups.POST("/create/:gameid", player, handlers.CreateGroup(deps))
			groups.POST("/join/:groupid", player, handlers.JoinGroup(deps))
			groups.POST("/invite/byid/:userid", player, handlers.InviteByID(deps))
			groups.POST("/invite/byname/:name", player, handlers.InviteByName(deps))
			groups.DELETE("/leave", player, handlers.LeaveGroup(deps))
			groups.DELETE("/kick/:userid", admin, handlers.KickFromGroup(deps))
			groups.POST("/ready", player, handlers.MarkReady(deps))
			groups.DELETE("/ready", player, handlers.MarkNotReady(deps))
			groups.POST("/start", player, handlers.StartQueue(deps))
		}

		msgqueues := v1.Group("/msgqueues")
		{
			msgqueues.GET("/user", player, handlers.UserStream(deps))
			msgqueues.GET("/group", player, handlers.GroupStream(deps))
			msgqueues.GET("/party", player, handlers.PartyStream(deps))
			msgqueues.DELETE("/kick/:userid/from/:kind", admin, handlers.KickFromStream(deps))
		}
	}
}
