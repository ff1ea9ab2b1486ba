package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nestor/internal/domain"
	"nestor/internal/llm"
	"nestor/internal/repository"
)

// JokeStyle son las preferencias de estilo aplicadas a cada prompt.
type JokeStyle struct {
	Compact         bool
	TargetSentences int
	Emoji           bool
}

// JokeService arma prompts de blagues a partir del corpus y los envía al modelo.
type JokeService struct {
	logger *zap.Logger
	client llm.LLMClient
	repo   repository.JokeHistoryRepository
	items  []domain.JokeItem
	style  JokeStyle
	pick   func(n int) int
	now    func() time.Time
}

// NewJokeService acepta repo nil: el historial queda solo en memoria.
func NewJokeService(logger *zap.Logger, client llm.LLMClient, repo repository.JokeHistoryRepository, items []domain.JokeItem, style JokeStyle) *JokeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if style.TargetSentences <= 0 {
		style.TargetSentences = 2
	}
	return &JokeService{
		logger: logger,
		client: client,
		repo:   repo,
		items:  items,
		style:  style,
		pick:   rand.IntN,
		now:    time.Now,
	}
}

// SelectItem elige una blague al azar.
func (s *JokeService) SelectItem() (domain.JokeItem, error) {
	if len(s.items) == 0 {
		return domain.JokeItem{}, ErrEmptyCorpus
	}
	return s.items[s.pick(len(s.items))], nil
}

// Tell genera una blague. Con theme vacío usa una entrada del corpus; si no, el tema
// del usuario hace de setup. compact agrega el límite de 2 frases del modo interactivo.
func (s *JokeService) Tell(ctx context.Context, session *domain.JokeSession, theme string, compact bool) (string, error) {
	var item domain.JokeItem
	theme = strings.TrimSpace(theme)
	if theme == "" {
		var err error
		item, err = s.SelectItem()
		if err != nil {
			return "", err
		}
		s.logger.Info("selected joke", zap.Any("joke_id", item.ID), zap.Strings("tags", item.Tags))
	} else {
		item = domain.JokeItem{Setup: theme, Tags: []string{"user"}}
	}

	prompt := BuildJokePrompt(item, session.Rating, s.style)
	if compact {
		prompt += "\nRéponds en 2 phrases maximum."
	}
	s.logger.Debug("prompt built", zap.Int("size", len(prompt)))

	text := s.generate(ctx, prompt)
	s.logger.Info("generation ok", zap.Int("chars", len(text)))

	turn := domain.JokeTurn{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Prompt:    prompt,
		Output:    text,
		CreatedAt: s.now().UTC(),
	}
	session.History = append(session.History, turn)
	if s.repo != nil {
		if err := s.repo.Append(ctx, turn); err != nil {
			s.logger.Warn("save joke history failed", zap.Error(err))
		}
	}
	return text, nil
}

// generate nunca falla: sin modelo devuelve el prompt marcado como fallback.
func (s *JokeService) generate(ctx context.Context, prompt string) string {
	if s.client == nil {
		return "(fallback LLM OFF) " + prompt
	}
	out, err := s.client.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("llm call failed; using fallback", zap.Error(err))
		return "(fallback LLM OFF) " + prompt
	}
	return out
}

// BuildJokePrompt arma el prompt de persona con el estilo antes de la blague.
func BuildJokePrompt(item domain.JokeItem, rating string, style JokeStyle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tu es Nestor, ado ophanim/cartoon sympa. Rating: %s. Garde un ton bienveillant et drôle.\n\n", rating)
	if style.Compact {
		fmt.Fprintf(&b, "Réponds en %d phrases maximum.\n", style.TargetSentences)
	}
	if !style.Emoji {
		b.WriteString("N'utilise pas d'emojis.\n")
	}

	setup, punch := item.SetupText(), item.PunchText()
	switch {
	case setup != "" && punch != "":
		fmt.Fprintf(&b, "Blague:\nSetup: %s\nPunchline: %s\n", setup, punch)
	case setup != "":
		fmt.Fprintf(&b, "Complète ou remixe avec humour:\n%s\n", setup)
	default:
		b.WriteString("Fais une petite blague propre et originale.")
	}
	return b.String()
}
