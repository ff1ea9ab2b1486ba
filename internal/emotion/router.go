package emotion

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nestor/internal/domain"
)

// Score es el puntaje de una emoción para un texto dado.
type Score struct {
	Emotion string  `json:"emotion"`
	Score   float64 `json:"score"`
}

type weighted struct {
	term   string
	weight float64
}

type candidate struct {
	name     string
	priority int
	keywords []weighted
	phrases  []weighted
}

// Router clasifica texto en una emoción por palabras clave y frases ponderadas.
// Es seguro para uso concurrente: el cooldown se lee y actualiza bajo un único mutex.
type Router struct {
	mu          sync.Mutex
	strategy    domain.RoutingStrategy
	candidates  []candidate
	lastTrigger time.Time
	now         func() time.Time
	logger      *zap.Logger
}

// Option configura un Router.
type Option func(*Router)

// WithClock reemplaza el reloj, útil en tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRouter prepara los disparadores normalizados en orden de declaración.
func NewRouter(p *domain.Profile, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		strategy: p.Strategy,
		now:      time.Now,
		logger:   logger,
	}
	for _, emo := range p.Ordered() {
		if !emo.HasTriggers() {
			continue
		}
		r.candidates = append(r.candidates, candidate{
			name:     emo.Name,
			priority: emo.Priority,
			keywords: normalizeTerms(emo.Keywords),
			phrases:  normalizeTerms(emo.Phrases),
		})
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fallback devuelve la emoción usada cuando nada supera el umbral.
func (r *Router) Fallback() string {
	return r.strategy.Fallback
}

// Classify devuelve la emoción ganadora y su puntaje, o (fallback, 0) si el cooldown
// está activo o ningún puntaje alcanza el mínimo. Un resultado válido reinicia el cooldown.
func (r *Router) Classify(text string) (string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.lastTrigger.IsZero() && now.Sub(r.lastTrigger) < r.strategy.Cooldown {
		r.logger.Debug("router cooldown active", zap.Duration("elapsed", now.Sub(r.lastTrigger)))
		return r.strategy.Fallback, 0
	}

	best, score := r.pick(r.score(Normalize(text)))
	if best == "" || score < r.strategy.MinScoreToTrigger {
		return r.strategy.Fallback, 0
	}
	r.lastTrigger = now
	return best, score
}

// Scores devuelve el puntaje de cada emoción sin tocar el cooldown.
func (r *Router) Scores(text string) []Score {
	return r.score(Normalize(text))
}

func (r *Router) score(normalized string) []Score {
	toks := tokens(normalized)
	out := make([]Score, 0, len(r.candidates))
	for _, c := range r.candidates {
		total := 0.0
		for _, kw := range c.keywords {
			if _, ok := toks[kw.term]; ok {
				total += kw.weight
			}
		}
		for _, ph := range c.phrases {
			if strings.Contains(normalized, ph.term) {
				total += ph.weight
			}
		}
		out = append(out, Score{Emotion: c.name, Score: total})
	}
	return out
}

// pick elige el puntaje estrictamente mayor; los empates positivos se resuelven por
// prioridad (tie_breaker=priority) y luego por orden de declaración.
func (r *Router) pick(scores []Score) (string, float64) {
	bestIdx := -1
	for i, s := range scores {
		if s.Score <= 0 {
			continue
		}
		if bestIdx < 0 || s.Score > scores[bestIdx].Score {
			bestIdx = i
			continue
		}
		if s.Score == scores[bestIdx].Score &&
			r.strategy.TieBreaker == domain.TieBreakerPriority &&
			r.candidates[i].priority > r.candidates[bestIdx].priority {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return "", 0
	}
	return scores[bestIdx].Emotion, scores[bestIdx].Score
}

func normalizeTerms(in map[string]float64) []weighted {
	out := make([]weighted, 0, len(in))
	for term, w := range in {
		n := strings.TrimSpace(Normalize(term))
		if n == "" {
			continue
		}
		out = append(out, weighted{term: n, weight: w})
	}
	// Orden fijo para que la suma de flotantes no dependa del orden del map.
	sort.Slice(out, func(i, j int) bool { return out[i].term < out[j].term })
	return out
}
