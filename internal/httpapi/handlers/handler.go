package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suPer8Hu/mirror/internal/chat"
	"github.com/suPer8Hu/mirror/internal/config"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	ChatRepo *chat.Repo
	ChatSvc  *chat.Service
	Log      *zap.Logger
}

func NewHandler(db *gorm.DB, cfg config.Config, svc *chat.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		ChatRepo: chat.NewRepo(db),
		ChatSvc:  svc,
		Log:      log,
	}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
