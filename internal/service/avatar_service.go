package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"nestor/internal/domain"
	"nestor/internal/reply"
)

var ErrAvatarNotConfigured = errors.New("avatar service not configured")

// EmotionRouter clasifica texto en una emoción.
type EmotionRouter interface {
	Classify(text string) (string, float64)
}

// AvatarPlayer es la parte de la máquina de reproducción que usa el orquestador.
type AvatarPlayer interface {
	Trigger(name string) error
	Current() string
	ListEmotions() []domain.EmotionInfo
}

// SpeechQueue encola texto hablado sin bloquear.
type SpeechQueue interface {
	Say(text string) bool
}

// AvatarService orquesta entrada de texto, ruteo de emociones, respuesta y voz.
type AvatarService struct {
	logger  *zap.Logger
	router  EmotionRouter
	player  AvatarPlayer
	speech  SpeechQueue
	replies reply.Generator
	verbose bool
}

// NewAvatarService acepta router nil (USE_ROUTER=false) y replies nil (respuestas stub).
func NewAvatarService(logger *zap.Logger, router EmotionRouter, player AvatarPlayer, speech SpeechQueue, replies reply.Generator, verbose bool) *AvatarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if replies == nil {
		replies = reply.Stub{}
	}
	return &AvatarService{
		logger:  logger,
		router:  router,
		player:  player,
		speech:  speech,
		replies: replies,
		verbose: verbose,
	}
}

// RouteEmotion devuelve ("", 0) si no hay router o el texto no dispara ninguna emoción.
// Comparte el cooldown del router con cualquier otro llamador.
func (s *AvatarService) RouteEmotion(text string) (string, float64) {
	if s == nil || s.router == nil {
		return "", 0
	}
	emo, score := s.router.Classify(text)
	if emo == "" || emo == domain.IdleEmotion || score <= 0 {
		return "", 0
	}
	if s.verbose {
		s.logger.Info("router", zap.String("emotion", emo), zap.Float64("score", score))
	} else {
		s.logger.Debug("router", zap.String("emotion", emo), zap.Float64("score", score))
	}
	return emo, score
}

// Trigger reenvía a la máquina de reproducción. Un nombre vacío no hace nada.
func (s *AvatarService) Trigger(name string) error {
	if s == nil || s.player == nil {
		return ErrAvatarNotConfigured
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return s.player.Trigger(name)
}

// Say encola el texto en la voz sin esperar a que termine.
func (s *AvatarService) Say(text string) {
	if s == nil || s.speech == nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.speech.Say(text)
}

// Chat rutea la entrada, genera la respuesta, rutea la respuesta y la habla.
// Las dos clasificaciones comparten cooldown: si la entrada disparó una emoción,
// la respuesta normalmente cae dentro del cooldown.
func (s *AvatarService) Chat(ctx context.Context, text string) domain.ChatResult {
	var res domain.ChatResult

	res.EmotionIn, res.EmotionInScore = s.RouteEmotion(text)
	s.play(res.EmotionIn)

	res.Reply = s.reply(ctx, text)

	res.EmotionReply, res.EmotionReplyScore = s.RouteEmotion(res.Reply)
	s.play(res.EmotionReply)

	s.Say(res.Reply)
	return res
}

// HandleText procesa una línea de consola. Devuelve false para terminar el loop.
func (s *AvatarService) HandleText(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "quit", "exit":
		return false
	}
	s.Chat(ctx, text)
	return true
}

// Emotions lista las emociones configuradas, ordenadas por nombre.
func (s *AvatarService) Emotions() []domain.EmotionInfo {
	if s == nil || s.player == nil {
		return []domain.EmotionInfo{}
	}
	return s.player.ListEmotions()
}

// Mode devuelve la emoción en reproducción.
func (s *AvatarService) Mode() string {
	if s == nil || s.player == nil {
		return domain.IdleEmotion
	}
	return s.player.Current()
}

func (s *AvatarService) play(emo string) {
	if emo == "" || s.player == nil {
		return
	}
	if err := s.player.Trigger(emo); err != nil {
		s.logger.Warn("trigger failed", zap.String("emotion", emo), zap.Error(err))
	}
}

func (s *AvatarService) reply(ctx context.Context, text string) string {
	out, err := s.replies.Reply(ctx, text)
	if err != nil || strings.TrimSpace(out) == "" {
		s.logger.Warn("reply generation failed, using stub", zap.Error(err))
		return reply.StubReply(text)
	}
	return strings.TrimSpace(out)
}
