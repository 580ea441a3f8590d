package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suPer8Hu/mirror/internal/chat"
	"github.com/suPer8Hu/mirror/internal/common"
	"github.com/suPer8Hu/mirror/internal/config"
	"github.com/suPer8Hu/mirror/internal/httpapi/handlers"
	"github.com/suPer8Hu/mirror/internal/httpapi/middleware"
	"github.com/suPer8Hu/mirror/internal/observability"
)

func NewRouter(db *gorm.DB, cfg config.Config, svc *chat.Service, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, svc, log)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/sessions", h.ListSessions)
	authGroup.POST("/sessions", h.CreateSession)
	authGroup.POST("/reflect", h.Reflect)
	authGroup.GET("/messages", h.ListMessages)
	return r
}
