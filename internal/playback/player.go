package playback

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"nestor/internal/domain"
)

var (
	ErrUnknownEmotion = errors.New("unknown emotion")
	ErrPlayerStopped  = errors.New("player stopped")
)

// Backend es el recurso de reproducción exclusivo del Player.
// Play reemplaza cualquier reproducción en curso. El callback registrado con OnFinished
// se invoca una sola vez por cada clip sin loop que termina naturalmente, nunca para
// clips detenidos o reemplazados, y nunca con locks internos tomados.
type Backend interface {
	Play(resource string, loop bool) error
	Stop() error
	OnFinished(fn func())
}

// Player es la máquina de estados de reproducción: idle en loop por defecto,
// un clip emocional una vez, y regreso automático a idle al terminar.
type Player struct {
	mu      sync.Mutex
	media   map[string]domain.Emotion
	idle    string
	current string
	stopped bool
	backend Backend
	logger  *zap.Logger
}

// NewPlayer registra el callback de fin de media en el backend. No reproduce nada hasta Start.
func NewPlayer(p *domain.Profile, backend Backend, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	media := make(map[string]domain.Emotion, len(p.Emotions))
	for name, emo := range p.Emotions {
		media[name] = emo
	}
	pl := &Player{
		media:   media,
		idle:    domain.IdleEmotion,
		current: domain.IdleEmotion,
		backend: backend,
		logger:  logger,
	}
	backend.OnFinished(pl.OnMediaFinished)
	return pl
}

// Start lanza el loop de idle.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.playIdleLocked()
}

// Trigger cambia a la emoción pedida y la reproduce una vez; idle siempre reinicia el loop.
// Una emoción desconocida se reporta con ErrUnknownEmotion sin cambiar el estado.
func (p *Player) Trigger(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPlayerStopped
	}
	emo, ok := p.media[name]
	if !ok {
		p.logger.Info("unknown emotion requested", zap.String("emotion", name))
		return fmt.Errorf("%w: %q", ErrUnknownEmotion, name)
	}
	if name == p.idle {
		p.playIdleLocked()
		return nil
	}
	p.current = name
	p.playLocked(emo, false)
	return nil
}

// OnMediaFinished vuelve siempre a idle, incluso si el evento llega estando ya en idle.
func (p *Player) OnMediaFinished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if p.current != p.idle {
		p.logger.Debug("clip finished, back to idle", zap.String("emotion", p.current))
	}
	p.playIdleLocked()
}

// Current devuelve la emoción en reproducción.
func (p *Player) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// ListEmotions devuelve las emociones ordenadas por nombre. El mapa es inmutable tras NewPlayer.
func (p *Player) ListEmotions() []domain.EmotionInfo {
	out := make([]domain.EmotionInfo, 0, len(p.media))
	for name, emo := range p.media {
		out = append(out, domain.EmotionInfo{
			Name:        name,
			File:        emo.File,
			Loop:        emo.Loop,
			Description: emo.Description,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stop detiene la reproducción y libera el backend. Llamadas posteriores son no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if err := p.backend.Stop(); err != nil {
		p.logger.Warn("backend stop failed", zap.Error(err))
	}
}

func (p *Player) playIdleLocked() {
	p.current = p.idle
	// idle siempre en loop, sin importar la configuración.
	p.playLocked(p.media[p.idle], true)
}

// playLocked advierte si falta el archivo pero igual delega en el backend.
func (p *Player) playLocked(emo domain.Emotion, loop bool) {
	if _, err := os.Stat(emo.File); err != nil {
		p.logger.Warn("media file not found", zap.String("emotion", emo.Name), zap.String("file", emo.File))
	}
	if err := p.backend.Play(emo.File, loop); err != nil {
		p.logger.Error("playback command failed", zap.String("emotion", emo.Name), zap.Error(err))
	}
}
