package routes

import (
	"Soundcheck/controllers"
	"Soundcheck/middleware"
	"Soundcheck/services/broadcast"
	"Soundcheck/services/gateways"
	"Soundcheck/services/redis"
	"Soundcheck/services/roster"
	"Soundcheck/services/scoring"
	"Soundcheck/services/state"
	"Soundcheck/services/store"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps bundles everything the HTTP surface needs; main wires it once.
type Deps struct {
	Store       store.SessionStore
	RedisClient *redis.RedisClient
	Broadcaster *broadcast.Broadcaster
	State       *state.Machine
	Roster      *roster.Manager
	Scoring     *scoring.Engine
	Artist      gateways.ArtistGateway
	DJ          gateways.DJGateway
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps Deps) {
	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/")

	api.GET("/ping", controllers.Ping)

	// Player command surface: joins, answers, reconnect info
	api.POST("/join", controllers.JoinByCode(deps.Roster, deps.Store))
	api.GET("/play/me", controllers.Me())

	sessions := api.Group("/sessions")
	{
		sessions.POST("", controllers.CreateSession(deps.State))
		sessions.GET("/:id", controllers.GetSession(deps.Broadcaster))
		sessions.GET("/:id/leaderboard", controllers.GetLeaderboard(deps.Store, deps.RedisClient))
		sessions.POST("/:id/join", controllers.JoinSession(deps.Roster))
		sessions.POST("/:id/leave", controllers.LeaveSession(deps.Roster))
		sessions.POST("/:id/answer", controllers.SubmitAnswer(deps.Scoring))
	}

	// Controller (host) surface, scoped to the session inside the token
	host := api.Group("/sessions")
	host.Use(middleware.HostAuth())
	{
		host.POST("/:id/start", controllers.StartSession(deps.State))
		host.POST("/:id/advance", controllers.AdvanceQuestion(deps.State, deps.Broadcaster))
		host.POST("/:id/dashboard_view", controllers.SetDashboardView(deps.State))
		host.POST("/:id/detected_artist", controllers.SetDetectedArtist(deps.State))
		host.GET("/:id/questions", controllers.ListQuestions(deps.Store))
	}

	// External collaborators, proxied so browser clients avoid CORS
	api.GET("/artist_image/:artist_name", controllers.ArtistImage(deps.Artist))

	dj := api.Group("/controller")
	dj.Use(middleware.HostAuth())
	{
		dj.POST("/vdj", controllers.RunDJScript(deps.DJ))
	}
}
