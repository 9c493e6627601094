package http

import (
	"github.com/gin-gonic/gin"

	"docqa-assistant/internal/bootstrap"
	"docqa-assistant/internal/transport/http/handler"
	"docqa-assistant/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), middleware.Recovery(app.Logger))

	if app.Config.App.MaxUploadMB > 0 {
		router.MaxMultipartMemory = int64(app.Config.App.MaxUploadMB) << 20
	}

	healthHandler := handler.NewHealthHandler(app)
	sessionHandler := handler.NewSessionHandler(
		app.Sessions,
		app.Settings,
		app.Config.Session.TokenSecret,
		app.Config.LLM.APIKey,
		app.Logger,
	)
	documentHandler := handler.NewDocumentHandler(app.Documents, app.Config.App.MaxUploadMB)
	chatHandler := handler.NewChatHandler(app.Chat)
	summaryHandler := handler.NewSummaryHandler(app.Summaries)
	archiveHandler := handler.NewArchiveHandler(app.Archive)

	router.GET("/healthz", healthHandler.Check)

	v1 := router.Group("/api/v1")
	v1.POST("/sessions", sessionHandler.Create)
	v1.GET("/session/options", sessionHandler.Options)

	authed := v1.Group("")
	authed.Use(middleware.SessionAuth(app.Config.Session.TokenSecret, app.Sessions))
	authed.GET("/session/generating", summaryHandler.Generating)

	turn := authed.Group("")
	turn.Use(middleware.SessionTurn())

	turn.GET("/session", sessionHandler.Info)
	turn.PUT("/session/config", sessionHandler.UpdateConfig)
	turn.POST("/session/clear-chat", sessionHandler.ClearChat)
	turn.POST("/session/clear-all", sessionHandler.ClearAll)
	turn.DELETE("/session/viewed-summary", summaryHandler.CloseView)

	turn.POST("/documents", documentHandler.Upload)
	turn.GET("/documents", documentHandler.List)
	turn.DELETE("/documents/:name", documentHandler.Remove)

	chatGroup := turn.Group("/chat")
	chatGroup.PUT("/selection", chatHandler.Select)
	chatGroup.GET("/messages", chatHandler.Messages)
	chatGroup.POST("/messages", chatHandler.Ask)
	chatGroup.POST("/stream", chatHandler.Stream)
	chatGroup.GET("/suggestions", chatHandler.Suggestions)
	chatGroup.POST("/suggestions", chatHandler.AskSuggestion)
	chatGroup.GET("/export", chatHandler.Export)

	summaryGroup := turn.Group("/summaries")
	summaryGroup.GET("", summaryHandler.List)
	summaryGroup.POST("", summaryHandler.GenerateMissing)
	summaryGroup.POST("/:name", summaryHandler.Generate)
	summaryGroup.GET("/:name", summaryHandler.View)
	summaryGroup.GET("/:name/download", summaryHandler.Download)
	summaryGroup.DELETE("/:name", summaryHandler.Delete)

	turn.GET("/archive", archiveHandler.List)

	return router
}
