package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suPer8Hu/mirror/internal/chat"
	"github.com/suPer8Hu/mirror/internal/common"
	"github.com/suPer8Hu/mirror/internal/httpapi/middleware"
)

type sessionView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type turnView struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func viewTurn(t chat.Turn) turnView {
	return turnView{Role: string(t.Role), Content: t.Content, CreatedAt: t.CreatedAt}
}

func (h *Handler) ListSessions(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessions, err := h.ChatRepo.ListSessions(c.Request.Context(), uid)
	if err != nil {
		h.Log.Error("list sessions", zap.Uint64("user_id", uid), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list sessions")
		return
	}
	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionView{ID: s.SessionID, Title: s.Title})
	}
	common.OK(c, gin.H{"sessions": out})
}

type createSessionReq struct {
	Title    string `json:"title"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), uid, req.Title, req.Provider, req.Model)
	if errors.Is(err, chat.ErrUnknownProvider) {
		common.Fail(c, http.StatusBadRequest, 10005, "unknown provider")
		return
	}
	if err != nil {
		h.Log.Error("create session", zap.Uint64("user_id", uid), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}
	common.Created(c, sessionView{ID: sess.SessionID, Title: sess.Title})
}

type reflectReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Prompt    string `json:"prompt"`
}

func (h *Handler) Reflect(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req reflectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !h.ownSession(c, uid, req.SessionID) {
		return
	}

	ex, err := h.ChatSvc.Reflect(c.Request.Context(), uid, req.SessionID, req.Prompt)
	if err != nil {
		h.failReflect(c, uid, req.SessionID, err)
		return
	}
	common.OK(c, gin.H{
		"messages": []turnView{viewTurn(ex.User), viewTurn(ex.Assistant)},
	})
}

func (h *Handler) failReflect(c *gin.Context, uid uint64, sessionID string, err error) {
	log := h.Log.With(zap.Uint64("user_id", uid), zap.String("session_id", sessionID), zap.Error(err))

	var me *chat.ModelError
	var se *chat.StorageError
	switch {
	case errors.Is(err, chat.ErrEmptyPrompt):
		common.Fail(c, http.StatusBadRequest, 10002, "prompt required")
	case errors.As(err, &me):
		log.Warn("reflect: model failed")
		common.Fail(c, http.StatusBadGateway, 50201, "model unavailable")
	case errors.As(err, &se):
		log.Error("reflect: storage failed")
		common.Fail(c, http.StatusInternalServerError, 50003, "storage error")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn("reflect: gave up waiting for session")
		common.Fail(c, http.StatusServiceUnavailable, 50301, "session busy")
	default:
		log.Error("reflect failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}

func (h *Handler) ListMessages(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		common.Fail(c, http.StatusBadRequest, 10004, "session_id required")
		return
	}
	if !h.ownSession(c, uid, sessionID) {
		return
	}

	turns, err := h.ChatRepo.History(c.Request.Context(), uid, sessionID, 0)
	if err != nil {
		h.Log.Error("list messages", zap.Uint64("user_id", uid), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}
	out := make([]turnView, 0, len(turns))
	for _, t := range turns {
		out = append(out, viewTurn(t))
	}
	common.OK(c, gin.H{"messages": out})
}

// ownSession writes a 404 and returns false unless the session belongs to uid.
// Sessions of other users are reported as missing to hide their existence.
func (h *Handler) ownSession(c *gin.Context, uid uint64, sessionID string) bool {
	sess, err := h.ChatRepo.GetSessionBySessionID(c.Request.Context(), sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && sess.UserID != uid) {
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
		return false
	}
	if err != nil {
		h.Log.Error("session lookup", zap.String("session_id", sessionID), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return false
	}
	return true
}
