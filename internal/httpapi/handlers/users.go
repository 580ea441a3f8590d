package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suPer8Hu/mirror/internal/auth"
	"github.com/suPer8Hu/mirror/internal/common"
	"github.com/suPer8Hu/mirror/internal/httpapi/middleware"
	"github.com/suPer8Hu/mirror/internal/models"
)

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r credentialsReq) valid() bool {
	return strings.TrimSpace(r.Username) != "" && r.Password != ""
}

func (h *Handler) Signup(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !req.valid() {
		common.Fail(c, http.StatusBadRequest, 10002, "username and password required")
		return
	}
	username := strings.TrimSpace(req.Username)

	var cnt int64
	if err := h.DB.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("username = ?", username).
		Count(&cnt).Error; err != nil {
		h.Log.Error("check username", zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 20005, "failed to check username")
		return
	}
	if cnt > 0 {
		common.Fail(c, http.StatusBadRequest, 10003, "username already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	user := models.User{Username: username, PasswordHash: hash}
	if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if h.usernameTaken(c, username, err) {
			common.Fail(c, http.StatusBadRequest, 10003, "username already registered")
			return
		}
		h.Log.Error("create user", zap.String("username", username), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 20004, "failed to create user")
		return
	}

	common.Created(c, gin.H{
		"id":       user.ID,
		"username": user.Username,
	})
}

// usernameTaken tells a lost signup race from any other insert failure. Drivers
// that do not translate errors are covered by looking the username up again.
func (h *Handler) usernameTaken(c *gin.Context, username string, err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var cnt int64
	if cerr := h.DB.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("username = ?", username).
		Count(&cnt).Error; cerr != nil {
		return false
	}
	return cnt > 0
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !req.valid() {
		common.Fail(c, http.StatusBadRequest, 10002, "username and password required")
		return
	}

	var user models.User
	err := h.DB.WithContext(c.Request.Context()).
		Where("username = ?", strings.TrimSpace(req.Username)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid username or password")
		return
	}
	if err != nil {
		h.Log.Error("load user", zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, h.Cfg.TokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenName, token, int(h.Cfg.TokenTTL.Seconds()), "/", "", false, true)
	common.OK(c, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"token":    token,
	})
}
