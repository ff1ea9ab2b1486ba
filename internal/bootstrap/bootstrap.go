// Package bootstrap arma los componentes compartidos por los binarios a partir de la configuración.
package bootstrap

import (
	"context"
	"os/exec"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nestor/internal/config"
	"nestor/internal/domain"
	"nestor/internal/emotion"
	"nestor/internal/llm"
	"nestor/internal/playback"
	"nestor/internal/profile"
	"nestor/internal/reply"
	"nestor/internal/service"
	"nestor/internal/tts"
)

const (
	PlayerBackendExec  = "exec"
	PlayerBackendDummy = "dummy"

	ReplyBackendStub = "stub"
	ReplyBackendLLM  = "llm"
)

// NewLLMClient construye el cliente del servidor de modelos con las opciones configuradas.
func NewLLMClient(cfg *config.Config, systemPrompt string, logger *zap.Logger) *llm.HTTPClient {
	opts := llm.DefaultOptions()
	if cfg.LLMModel != "" {
		opts.Model = cfg.LLMModel
	}
	if cfg.LLMTemperature > 0 {
		opts.Temperature = cfg.LLMTemperature
	}
	if cfg.LLMTopP > 0 {
		opts.TopP = cfg.LLMTopP
	}
	if cfg.LLMMaxTokens > 0 {
		opts.MaxTokens = cfg.LLMMaxTokens
	}
	opts.Timeout = cfg.LLMTimeout()
	opts.SystemPrompt = systemPrompt
	return llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, opts, logger)
}

// NewReplyGenerator devuelve nil para el backend stub; el servicio usa entonces las frases fijas.
func NewReplyGenerator(cfg *config.Config, logger *zap.Logger) reply.Generator {
	switch cfg.ReplyBackend {
	case ReplyBackendLLM:
		logger.Info("reply backend", zap.String("backend", ReplyBackendLLM), zap.String("model", cfg.LLMModel))
		return reply.NewLLM(NewLLMClient(cfg, "", logger), cfg.StyleTargetSentences)
	case "", ReplyBackendStub:
		return nil
	default:
		logger.Warn("unknown reply backend, using stub", zap.String("backend", cfg.ReplyBackend))
		return nil
	}
}

// NewPlayerBackend elige el backend de reproducción. Sin el reproductor externo se degrada a dummy.
func NewPlayerBackend(cfg *config.Config, logger *zap.Logger) playback.Backend {
	switch cfg.PlayerBackend {
	case PlayerBackendDummy:
		return playback.NewDummyBackend(cfg.DummyClipDuration(), logger)
	case "", PlayerBackendExec:
		if _, err := exec.LookPath(cfg.PlayerCommand); err != nil {
			logger.Warn("player command unavailable, using dummy backend",
				zap.String("command", cfg.PlayerCommand),
				zap.Error(err),
			)
			return playback.NewDummyBackend(cfg.DummyClipDuration(), logger)
		}
		return playback.NewExecBackend(cfg.PlayerCommand, cfg.PlayerArgs, cfg.PlayerLoopFlag, logger)
	default:
		logger.Warn("unknown player backend, using dummy", zap.String("backend", cfg.PlayerBackend))
		return playback.NewDummyBackend(cfg.DummyClipDuration(), logger)
	}
}

// NewRedisClient devuelve nil si REDIS_ADDR no está configurado o Redis no responde.
func NewRedisClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

// NewRequestLimiter usa Redis si hay cliente; RATE_LIMIT_PER_MINUTE=0 desactiva el límite.
func NewRequestLimiter(cfg *config.Config, client *redis.Client) service.RequestLimiter {
	return service.NewRequestLimiter(cfg.RateLimitPerMinute, client)
}

// NewJWTService guarda las revocaciones en Redis cuando está disponible.
func NewJWTService(cfg *config.Config, client *redis.Client) *service.JWTService {
	ttl := time.Duration(cfg.AuthTokenTTLMinutes) * time.Minute
	if client != nil {
		return service.NewJWTServiceWithStore(cfg.AuthJWTSecret, ttl, service.NewRedisRevocationStore(client))
	}
	return service.NewJWTService(cfg.AuthJWTSecret, ttl)
}

// Avatar agrupa el perfil, la reproducción, la voz y el orquestador de un proceso.
type Avatar struct {
	Profile *domain.Profile
	Player  *playback.Player
	Speech  *tts.AsyncSpeaker
	Service *service.AvatarService

	watcher     *playback.MediaWatcher
	stopWatcher context.CancelFunc
}

// NewAvatar carga el perfil de emociones y arranca el loop de idle.
func NewAvatar(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Avatar, error) {
	p, err := profile.Load(cfg.EmotionsPath, logger)
	if err != nil {
		return nil, err
	}

	var router service.EmotionRouter
	if cfg.UseRouter {
		router = emotion.NewRouter(p, logger)
	}

	player := playback.NewPlayer(p, NewPlayerBackend(cfg, logger), logger)
	player.Start()

	speaker := tts.NewSpeaker(cfg.TTSBackend, cfg.TTSVoice, cfg.TTSRate, logger)
	speech := tts.NewAsyncSpeaker(speaker, cfg.TTSQueueSize, logger)

	a := &Avatar{
		Profile: p,
		Player:  player,
		Speech:  speech,
		Service: service.NewAvatarService(logger, router, player, speech, NewReplyGenerator(cfg, logger), cfg.PrintLogs),
	}

	if cfg.MediaWatch {
		w, err := playback.NewMediaWatcher(p, logger)
		if err != nil {
			logger.Warn("media watcher disabled", zap.Error(err))
		} else {
			watchCtx, cancel := context.WithCancel(ctx)
			a.watcher = w
			a.stopWatcher = cancel
			go w.Run(watchCtx)
		}
	}

	logger.Info("avatar ready",
		zap.String("profile", cfg.EmotionsPath),
		zap.Int("emotions", len(p.Emotions)),
		zap.Bool("router", cfg.UseRouter),
	)
	return a, nil
}

// Close detiene el watcher, la reproducción y la cola de voz.
func (a *Avatar) Close() {
	if a == nil {
		return
	}
	if a.stopWatcher != nil {
		a.stopWatcher()
		_ = a.watcher.Close()
	}
	a.Player.Stop()
	a.Speech.Close()
}
