package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"nestor/internal/domain"
)

var (
	ErrInvalidProfile = errors.New("invalid emotion profile")
	ErrMissingIdle    = errors.New(`emotion "idle" is required`)
	ErrMissingFile    = errors.New(`emotion entry requires a "file" key`)
)

const (
	defaultMinScore = 1.0
	defaultCooldown = 2 * time.Second
)

type rawDocument struct {
	Emotions json.RawMessage `json:"emotions"`
	Routing  struct {
		Strategy rawStrategy     `json:"strategy"`
		Emotions json.RawMessage `json:"emotions"`
	} `json:"routing"`
}

type rawStrategy struct {
	MinScoreToTrigger *float64 `json:"min_score_to_trigger"`
	TieBreaker        string   `json:"tie_breaker"`
	Fallback          string   `json:"fallback"`
	CooldownSeconds   *float64 `json:"cooldown_seconds"`
}

type rawTriggers struct {
	Keywords map[string]float64 `json:"keywords"`
	Phrases  map[string]float64 `json:"phrases"`
	Priority *int               `json:"priority"`
}

type rawEmotion struct {
	rawTriggers
	File        *string `json:"file"`
	Loop        bool    `json:"loop"`
	Description string  `json:"description"`
}

// Load lee el perfil emocional desde un JSON y lo valida.
// Las rutas de media se resuelven relativas al directorio del archivo.
func Load(path string, logger *zap.Logger) (*domain.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve profile path: %w", err)
	}
	return Parse(data, filepath.Dir(abs), logger)
}

// Parse construye el perfil a partir del contenido JSON. baseDir resuelve rutas relativas.
func Parse(data []byte, baseDir string, logger *zap.Logger) (*domain.Profile, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if !isObject(doc.Emotions) {
		return nil, fmt.Errorf(`%w: "emotions" must be an object`, ErrInvalidProfile)
	}

	emotionOrder, err := objectKeys(doc.Emotions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(doc.Emotions, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if _, ok := entries[domain.IdleEmotion]; !ok {
		return nil, ErrMissingIdle
	}

	p := &domain.Profile{
		Emotions: make(map[string]domain.Emotion, len(entries)),
	}
	for _, name := range emotionOrder {
		raw := entries[name]
		if !isObject(raw) {
			return nil, fmt.Errorf("%w: entry %q must be an object", ErrInvalidProfile, name)
		}
		var re rawEmotion
		if err := json.Unmarshal(raw, &re); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrInvalidProfile, name, err)
		}
		if re.File == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingFile, name)
		}
		emo := domain.Emotion{
			Name:        name,
			File:        resolvePath(baseDir, *re.File),
			Loop:        re.Loop,
			Description: re.Description,
			Keywords:    copyWeights(re.Keywords),
			Phrases:     copyWeights(re.Phrases),
		}
		if re.Priority != nil {
			emo.Priority = *re.Priority
		}
		p.Emotions[name] = emo
	}

	var routingOrder []string
	if isObject(doc.Routing.Emotions) {
		routingOrder, err = objectKeys(doc.Routing.Emotions)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
		var triggers map[string]rawTriggers
		if err := json.Unmarshal(doc.Routing.Emotions, &triggers); err != nil {
			return nil, fmt.Errorf("%w: routing emotions: %v", ErrInvalidProfile, err)
		}
		kept := routingOrder[:0]
		for _, name := range routingOrder {
			emo, ok := p.Emotions[name]
			if !ok {
				logger.Warn("routing emotion has no media entry, ignored", zap.String("emotion", name))
				continue
			}
			t := triggers[name]
			emo.Keywords = mergeWeights(emo.Keywords, t.Keywords)
			emo.Phrases = mergeWeights(emo.Phrases, t.Phrases)
			if t.Priority != nil {
				emo.Priority = *t.Priority
			}
			p.Emotions[name] = emo
			kept = append(kept, name)
		}
		routingOrder = kept
	}
	p.Order = mergeOrder(routingOrder, emotionOrder)

	strategy, err := buildStrategy(doc.Routing.Strategy, p, logger)
	if err != nil {
		return nil, err
	}
	p.Strategy = strategy

	for _, name := range p.Order {
		file := p.Emotions[name].File
		if _, err := os.Stat(file); err != nil {
			logger.Warn("media file not found", zap.String("emotion", name), zap.String("file", file))
		}
	}
	return p, nil
}

func buildStrategy(rs rawStrategy, p *domain.Profile, logger *zap.Logger) (domain.RoutingStrategy, error) {
	s := domain.RoutingStrategy{
		MinScoreToTrigger: defaultMinScore,
		TieBreaker:        domain.TieBreakerPriority,
		Fallback:          domain.IdleEmotion,
		Cooldown:          defaultCooldown,
	}
	if rs.MinScoreToTrigger != nil {
		s.MinScoreToTrigger = *rs.MinScoreToTrigger
	}
	if rs.CooldownSeconds != nil {
		s.Cooldown = time.Duration(*rs.CooldownSeconds * float64(time.Second))
		if s.Cooldown < 0 {
			s.Cooldown = 0
		}
	}
	if tb := strings.ToLower(strings.TrimSpace(rs.TieBreaker)); tb != "" {
		s.TieBreaker = domain.TieBreaker(tb)
		if s.TieBreaker != domain.TieBreakerPriority && s.TieBreaker != domain.TieBreakerFirst {
			logger.Warn("unknown tie breaker, first declared emotion wins ties", zap.String("tie_breaker", tb))
		}
	}
	if fb := strings.TrimSpace(rs.Fallback); fb != "" {
		s.Fallback = fb
	}
	if _, ok := p.Emotions[s.Fallback]; !ok {
		return domain.RoutingStrategy{}, fmt.Errorf("%w: fallback %q is not a configured emotion", ErrInvalidProfile, s.Fallback)
	}
	return s, nil
}

func resolvePath(baseDir, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Clean(filepath.Join(baseDir, file))
}

func copyWeights(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeWeights(base, extra map[string]float64) map[string]float64 {
	out := copyWeights(base)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func mergeOrder(first, rest []string) []string {
	seen := make(map[string]struct{}, len(first)+len(rest))
	out := make([]string, 0, len(first)+len(rest))
	for _, list := range [][]string{first, rest} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// objectKeys devuelve las claves de un objeto JSON en el orden del documento.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected JSON object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("expected object key")
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
