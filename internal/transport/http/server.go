package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cropcare/internal/bootstrap"
	"cropcare/internal/transport/http/handler"
	"cropcare/internal/transport/http/middleware"
	"cropcare/web"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	maxUpload := int64(app.Config.App.MaxUploadMB) << 20
	router.MaxMultipartMemory = maxUpload

	renderer := web.MustRenderer()
	logger := app.Logger

	healthHandler := handler.NewHealthHandler(app)
	pageHandler := handler.NewPageHandler(app.Workspaces, renderer, logger)
	eventsHandler := handler.NewEventsHandler(app.Workspaces, logger)
	historyHandler := handler.NewHistoryHandler(app.History, renderer, logger)
	authHandler := handler.NewAuthHandler(app.Sessions, app.Workspaces, renderer, logger, handler.CookieConfig{
		Name:   app.Config.Session.CookieName,
		MaxAge: app.Config.Session.TTLMinutes * 60,
		Secure: app.Config.Session.SecureCookie,
	})

	router.StaticFS("/static", web.Static())
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	site := router.Group("/", middleware.LoadSession(app.Sessions, app.Config.Session.CookieName, logger))
	site.GET("/auth", authHandler.Page)
	site.POST("/auth", authHandler.Submit)
	site.POST("/logout", authHandler.Logout)

	gated := site.Group("/", middleware.RequireSession())
	gated.GET("/", pageHandler.Home)
	gated.GET("/state", pageHandler.State)
	gated.GET("/events", eventsHandler.Stream)
	gated.POST("/upload", middleware.LimitBody(maxUpload), pageHandler.Upload)
	gated.POST("/analyze", pageHandler.Analyze)
	gated.POST("/reset", pageHandler.Reset)
	gated.POST("/expand", pageHandler.Expand)
	gated.GET("/history", historyHandler.List)

	router.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, middleware.AuthPath)
	})

	return router
}
