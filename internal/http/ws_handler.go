package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nestor/internal/domain"
	"nestor/internal/playback"
	"nestor/internal/service"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 * 1024
)

// WSHandler expone los mismos verbos que la API HTTP sobre WebSocket.
// Cada conexión procesa sus mensajes en orden.
type WSHandler struct {
	logger   *zap.Logger
	avatar   *service.AvatarService
	limiter  service.RequestLimiter
	upgrader websocket.Upgrader
}

func NewWSHandler(logger *zap.Logger, avatar *service.AvatarService, limiter service.RequestLimiter) *WSHandler {
	return &WSHandler{
		logger:  logger,
		avatar:  avatar,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clientes locales (OBS, páginas de control) sin origen fijo.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsRequest struct {
	Cmd     string `json:"cmd"`
	Emotion string `json:"emotion"`
	Text    string `json:"text"`
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// Handle maneja GET /ws.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	connID := uuid.NewString()
	key := clientKey(c)
	logger := h.logger.With(zap.String("conn_id", connID), zap.String("remote", conn.RemoteAddr().String()))
	logger.Info("websocket connected")

	ws := &wsConn{conn: conn}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.pingLoop(ctx, ws, logger)

	if err := ws.writeJSON(gin.H{"hello": "nestor", "status": "ready"}); err != nil {
		logger.Warn("websocket greeting failed", zap.Error(err))
		return
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			} else {
				logger.Info("websocket closed")
			}
			return
		}
		if err := ws.writeJSON(h.dispatch(ctx, key, msg)); err != nil {
			logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (h *WSHandler) pingLoop(ctx context.Context, ws *wsConn, logger *zap.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.ping(); err != nil {
				logger.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

// dispatch ejecuta un comando y devuelve la respuesta a enviar.
func (h *WSHandler) dispatch(ctx context.Context, key string, raw []byte) any {
	var req wsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return gin.H{"error": "invalid_json"}
	}

	switch strings.ToLower(strings.TrimSpace(req.Cmd)) {
	case "trigger":
		emotion := strings.TrimSpace(req.Emotion)
		if emotion == "" {
			return gin.H{"ok": false, "error": "emotion_required"}
		}
		if err := h.avatar.Trigger(emotion); err != nil {
			if errors.Is(err, playback.ErrUnknownEmotion) {
				return gin.H{"ok": false, "error": "unknown_emotion", "emotion": emotion}
			}
			h.logger.Error("trigger failed", zap.String("emotion", emotion), zap.Error(err))
			return gin.H{"ok": false, "error": "player_unavailable"}
		}
		return gin.H{"ok": true, "emotion": emotion}
	case "route":
		emo, score := h.avatar.RouteEmotion(req.Text)
		if emo == "" {
			emo = domain.IdleEmotion
		}
		return gin.H{"emotion": emo, "score": score}
	case "say":
		if !h.allow(key, "say") {
			return gin.H{"error": "rate_limited"}
		}
		h.avatar.Say(req.Text)
		return gin.H{"ok": true}
	case "chat":
		if !h.allow(key, "chat") {
			return gin.H{"error": "rate_limited"}
		}
		return h.avatar.Chat(ctx, req.Text)
	default:
		return gin.H{"error": "unknown_cmd"}
	}
}

func (h *WSHandler) allow(key, scope string) bool {
	return h.limiter == nil || h.limiter.Allow(scope+":"+key)
}
