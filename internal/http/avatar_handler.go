package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nestor/internal/domain"
	"nestor/internal/playback"
	"nestor/internal/service"
)

// AvatarHandler expone el orquestador del avatar por HTTP.
type AvatarHandler struct {
	logger *zap.Logger
	avatar *service.AvatarService
}

func NewAvatarHandler(logger *zap.Logger, avatar *service.AvatarService) *AvatarHandler {
	return &AvatarHandler{logger: logger, avatar: avatar}
}

type textRequest struct {
	Text string `json:"text"`
}

// Health maneja GET /health.
func (h *AvatarHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Emotions maneja GET /emotions.
func (h *AvatarHandler) Emotions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"emotions": h.avatar.Emotions()})
}

// State maneja GET /state.
func (h *AvatarHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"emotion": h.avatar.Mode()})
}

// Trigger maneja POST /trigger.
func (h *AvatarHandler) Trigger(c *gin.Context) {
	var req struct {
		Emotion string `json:"emotion"`
	}
	if !bindOptionalJSON(c, &req, h.logger) {
		return
	}
	emotion := strings.TrimSpace(req.Emotion)
	if emotion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "champ 'emotion' requis"})
		return
	}

	if err := h.avatar.Trigger(emotion); err != nil {
		if errors.Is(err, playback.ErrUnknownEmotion) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "unknown emotion", "emotion": emotion})
			return
		}
		h.logger.Error("trigger failed", zap.String("emotion", emotion), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "player unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "emotion": emotion})
}

// Route maneja POST /route. Solo clasifica, no reproduce.
func (h *AvatarHandler) Route(c *gin.Context) {
	var req textRequest
	if !bindOptionalJSON(c, &req, h.logger) {
		return
	}
	emo, score := h.avatar.RouteEmotion(req.Text)
	if emo == "" {
		emo = domain.IdleEmotion
	}
	c.JSON(http.StatusOK, gin.H{"emotion": emo, "score": score})
}

// Say maneja POST /say.
func (h *AvatarHandler) Say(c *gin.Context) {
	var req textRequest
	if !bindOptionalJSON(c, &req, h.logger) {
		return
	}
	h.avatar.Say(req.Text)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Chat maneja POST /chat.
func (h *AvatarHandler) Chat(c *gin.Context) {
	var req textRequest
	if !bindOptionalJSON(c, &req, h.logger) {
		return
	}
	c.JSON(http.StatusOK, h.avatar.Chat(c.Request.Context(), req.Text))
}

// bindOptionalJSON acepta un body vacío como objeto vacío. Un JSON inválido responde 400.
func bindOptionalJSON(c *gin.Context, dst any, logger *zap.Logger) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("invalid request body", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}
