package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/handlers"
	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/bambu"
	"github.com/justpow98/j3d-backend/internal/config"
	"github.com/justpow98/j3d-backend/internal/core"
	"github.com/justpow98/j3d-backend/internal/etsy"
	"github.com/justpow98/j3d-backend/internal/notify"
	"github.com/justpow98/j3d-backend/internal/utils"
)

// NewRouter wires every handler behind /api. Auth login/callback and the
// health probe are the only unauthenticated routes.
func NewRouter(cfg *config.Config, cipher *utils.Cipher) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.NewAuthMiddleware(cfg.Session.Secret, cfg.Session.TokenDuration)
	oauth := etsy.NewOAuth(cfg.Etsy)
	dispatcher := notify.NewDispatcher(cfg.Notify)
	statusClient := bambu.NewStatusClient(cfg.Bambu)
	scheduler := core.NewScheduler()

	public := router.Group("/api")
	protected := router.Group("/api")
	protected.Use(auth.RequireAuth())

	handlers.NewAuthHandler(oauth, auth, cipher, cfg.Etsy).RegisterRoutes(public, protected)
	handlers.NewOrderHandler(oauth, cipher, cfg.Etsy).RegisterRoutes(protected)
	handlers.NewFilamentHandler().RegisterRoutes(protected)
	handlers.NewPrinterHandler(statusClient).RegisterRoutes(protected)
	handlers.NewNotificationHandler(dispatcher).RegisterRoutes(protected)
	handlers.NewPrintHandler(scheduler, dispatcher).RegisterRoutes(protected)
	handlers.NewProfileHandler().RegisterRoutes(protected)
	handlers.NewAnalyticsHandler().RegisterRoutes(protected)

	return router
}
