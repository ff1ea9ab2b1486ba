package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nestor/internal/domain"
	"nestor/internal/emotion"
	"nestor/internal/playback"
	"nestor/internal/service"
)

type nopBackend struct {
	mu    sync.Mutex
	plays []string
}

func (b *nopBackend) Play(resource string, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays = append(b.plays, resource)
	return nil
}

func (b *nopBackend) Stop() error         { return nil }
func (b *nopBackend) OnFinished(_ func()) {}

type recordingSpeech struct {
	mu   sync.Mutex
	said []string
}

func (s *recordingSpeech) Say(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return true
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

type testEnv struct {
	avatar  *service.AvatarService
	player  *playback.Player
	backend *nopBackend
	speech  *recordingSpeech
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		Strategy: domain.RoutingStrategy{
			MinScoreToTrigger: 1,
			TieBreaker:        domain.TieBreakerPriority,
			Fallback:          domain.IdleEmotion,
			Cooldown:          0,
		},
		Emotions: map[string]domain.Emotion{
			"idle":      {Name: "idle", File: "/media/idle.mp4", Loop: true, Description: "attente"},
			"joie":      {Name: "joie", File: "/media/joie.mp4", Keywords: map[string]float64{"content": 1}},
			"tristesse": {Name: "tristesse", File: "/media/tristesse.mp4", Phrases: map[string]float64{"mon chat est mort": 3}},
		},
		Order: []string{"joie", "tristesse", "idle"},
	}
}

func newTestEnv() *testEnv {
	p := testProfile()
	backend := &nopBackend{}
	player := playback.NewPlayer(p, backend, zap.NewNop())
	player.Start()
	speech := &recordingSpeech{}
	router := emotion.NewRouter(p, zap.NewNop())
	return &testEnv{
		avatar:  service.NewAvatarService(zap.NewNop(), router, player, speech, nil, false),
		player:  player,
		backend: backend,
		speech:  speech,
	}
}

func setupAvatarRouter(env *testEnv, jwtSvc *service.JWTService, limiter service.RequestLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(zap.NewNop(), NewAvatarHandler(zap.NewNop(), env.avatar), jwtSvc, limiter)
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAvatarHandler_HealthAndEmotions(t *testing.T) {
	r := setupAvatarRouter(newTestEnv(), nil, nil)

	rec := performRequest(r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodGet, "/emotions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Emotions []domain.EmotionInfo `json:"emotions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Emotions) != 3 || body.Emotions[0].Name != "idle" || body.Emotions[0].Description != "attente" || body.Emotions[2].Name != "tristesse" {
		t.Fatalf("unexpected emotions %+v", body.Emotions)
	}
}

func TestAvatarHandler_Trigger(t *testing.T) {
	env := newTestEnv()
	r := setupAvatarRouter(env, nil, nil)

	t.Run("missing emotion", func(t *testing.T) {
		rec := performRequest(r, http.MethodPost, "/trigger", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/trigger", strings.NewReader("{nope"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown emotion", func(t *testing.T) {
		rec := performRequest(r, http.MethodPost, "/trigger", map[string]string{"emotion": "licorne"})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if env.player.Current() != domain.IdleEmotion {
			t.Fatalf("expected state unchanged")
		}
	})

	t.Run("known emotion", func(t *testing.T) {
		rec := performRequest(r, http.MethodPost, "/trigger", map[string]string{"emotion": "joie"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decode(t, rec)
		if body["ok"] != true || body["emotion"] != "joie" {
			t.Fatalf("unexpected body %v", body)
		}
		if env.player.Current() != "joie" {
			t.Fatalf("expected player in joie, got %s", env.player.Current())
		}

		rec = performRequest(r, http.MethodGet, "/state", nil)
		if decode(t, rec)["emotion"] != "joie" {
			t.Fatalf("unexpected state %s", rec.Body.String())
		}
	})
}

func TestAvatarHandler_Route(t *testing.T) {
	env := newTestEnv()
	r := setupAvatarRouter(env, nil, nil)

	rec := performRequest(r, http.MethodPost, "/route", map[string]string{"text": "mon chat est mort"})
	body := decode(t, rec)
	if body["emotion"] != "tristesse" || body["score"] != 3.0 {
		t.Fatalf("unexpected route %v", body)
	}
	if env.player.Current() != domain.IdleEmotion {
		t.Fatalf("route must not trigger playback")
	}

	// body vacío equivale a texto vacío.
	req := httptest.NewRequest(http.MethodPost, "/route", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	body = decode(t, rec)
	if rec.Code != http.StatusOK || body["emotion"] != "idle" || body["score"] != 0.0 {
		t.Fatalf("unexpected empty route %d %v", rec.Code, body)
	}
}

func TestAvatarHandler_SayAndChat(t *testing.T) {
	env := newTestEnv()
	r := setupAvatarRouter(env, nil, nil)

	rec := performRequest(r, http.MethodPost, "/say", map[string]string{"text": "bonjour"})
	if rec.Code != http.StatusOK || decode(t, rec)["ok"] != true {
		t.Fatalf("unexpected say response %s", rec.Body.String())
	}

	rec = performRequest(r, http.MethodPost, "/chat", map[string]string{"text": "je suis content"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res domain.ChatResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Reply != "Je t'écoute. je suis content" || res.EmotionIn != "joie" || res.EmotionReply != "joie" {
		t.Fatalf("unexpected chat result %+v", res)
	}
	if len(env.speech.said) != 2 {
		t.Fatalf("expected two spoken texts, got %v", env.speech.said)
	}
}

func TestAvatarHandler_RateLimited(t *testing.T) {
	r := setupAvatarRouter(newTestEnv(), nil, denyAll{})

	for _, path := range []string{"/say", "/chat"} {
		rec := performRequest(r, http.MethodPost, path, map[string]string{"text": "x"})
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("%s: expected 429, got %d", path, rec.Code)
		}
		if body := decode(t, rec); body["error"] != service.ErrRateLimited.Error() {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
	}
	if rec := performRequest(r, http.MethodPost, "/route", map[string]string{"text": "x"}); rec.Code != http.StatusOK {
		t.Fatalf("route should not be rate limited, got %d", rec.Code)
	}
}

func TestAvatarHandler_AuthRequiredWhenSecretSet(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", time.Hour)
	r := setupAvatarRouter(newTestEnv(), jwtSvc, nil)

	if rec := performRequest(r, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}
	if rec := performRequest(r, http.MethodPost, "/trigger", map[string]string{"emotion": "joie"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, _, err := jwtSvc.Issue("console")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	payload, _ := json.Marshal(map[string]string{"emotion": "joie"})
	req := httptest.NewRequest(http.MethodPost, "/trigger", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}
