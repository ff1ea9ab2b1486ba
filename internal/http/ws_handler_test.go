package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nestor/internal/service"
)

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) map[string]any {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out map[string]any
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	return out
}

func newWSServer(env *testEnv, jwtSvc *service.JWTService, limiter service.RequestLimiter) *httptest.Server {
	gin.SetMode(gin.TestMode)
	wsH := NewWSHandler(zap.NewNop(), env.avatar, limiter)
	return httptest.NewServer(NewWSRouter(zap.NewNop(), wsH, jwtSvc))
}

func TestWSHandler_Commands(t *testing.T) {
	env := newTestEnv()
	srv := newWSServer(env, nil, nil)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	defer conn.Close()

	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if hello["hello"] != "nestor" || hello["status"] != "ready" {
		t.Fatalf("unexpected greeting %v", hello)
	}

	if out := roundTrip(t, conn, "not json"); out["error"] != "invalid_json" {
		t.Fatalf("expected invalid_json, got %v", out)
	}
	if out := roundTrip(t, conn, `{"cmd":"dance"}`); out["error"] != "unknown_cmd" {
		t.Fatalf("expected unknown_cmd, got %v", out)
	}
	if out := roundTrip(t, conn, `{"cmd":"TRIGGER","emotion":"joie"}`); out["ok"] != true || out["emotion"] != "joie" {
		t.Fatalf("unexpected trigger response %v", out)
	}
	if env.player.Current() != "joie" {
		t.Fatalf("expected player in joie, got %s", env.player.Current())
	}
	if out := roundTrip(t, conn, `{"cmd":"trigger","emotion":"licorne"}`); out["error"] != "unknown_emotion" {
		t.Fatalf("unexpected unknown trigger response %v", out)
	}
	if out := roundTrip(t, conn, `{"cmd":"route","text":"mon chat est mort"}`); out["emotion"] != "tristesse" || out["score"] != 3.0 {
		t.Fatalf("unexpected route response %v", out)
	}
	if out := roundTrip(t, conn, `{"cmd":"route","text":"rien"}`); out["emotion"] != "idle" {
		t.Fatalf("unexpected neutral route %v", out)
	}
	if out := roundTrip(t, conn, `{"cmd":"say","text":"salut"}`); out["ok"] != true {
		t.Fatalf("unexpected say response %v", out)
	}
	out := roundTrip(t, conn, `{"cmd":"chat","text":"ça va ?"}`)
	if out["reply"] != "Bonne question. Laisse-moi y penser une seconde." {
		t.Fatalf("unexpected chat response %v", out)
	}
	if _, ok := out["emotion_in_score"]; !ok {
		t.Fatalf("expected full chat result, got %v", out)
	}
}

func TestWSHandler_RateLimited(t *testing.T) {
	srv := newWSServer(newTestEnv(), nil, denyAll{})
	defer srv.Close()

	conn := dialWS(t, srv, "")
	defer conn.Close()
	var hello map[string]any
	_ = conn.ReadJSON(&hello)

	if out := roundTrip(t, conn, `{"cmd":"chat","text":"x"}`); out["error"] != "rate_limited" {
		t.Fatalf("expected rate_limited, got %v", out)
	}
	if out := roundTrip(t, conn, `{"cmd":"route","text":"x"}`); out["emotion"] != "idle" {
		t.Fatalf("route should not be limited, got %v", out)
	}
}

func TestWSHandler_RequiresToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", time.Hour)
	srv := newWSServer(newTestEnv(), jwtSvc, nil)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got err=%v", err)
	}

	token, _, _ := jwtSvc.Issue("obs")
	conn := dialWS(t, srv, "?token="+token)
	defer conn.Close()
	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil || hello["hello"] != "nestor" {
		t.Fatalf("expected greeting with token, got %v, %v", hello, err)
	}
}

type recordingLimiter struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return true
}

func (l *recordingLimiter) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.keys) == 0 {
		return ""
	}
	return l.keys[len(l.keys)-1]
}

func TestWSHandler_SharesRateKeyWithHTTP(t *testing.T) {
	limiter := &recordingLimiter{}
	env := newTestEnv()
	srv := newWSServer(env, nil, limiter)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	defer conn.Close()
	var hello map[string]any
	_ = conn.ReadJSON(&hello)
	if out := roundTrip(t, conn, `{"cmd":"say","text":"x"}`); out["ok"] != true {
		t.Fatalf("unexpected say reply %v", out)
	}
	wsKey := limiter.last()

	r := setupAvatarRouter(env, nil, limiter)
	req := httptest.NewRequest(http.MethodPost, "/say", bytes.NewReader([]byte(`{"text":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:40000"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if wsKey != "say:127.0.0.1" || limiter.last() != wsKey {
		t.Fatalf("expected same key over ws and http, got %q and %q", wsKey, limiter.last())
	}
}
