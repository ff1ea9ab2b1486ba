package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DummyBackend no reproduce nada: registra los comandos y simula el fin de cada clip
// sin loop después de clipDuration.
type DummyBackend struct {
	mu         sync.Mutex
	clip       time.Duration
	gen        uint64
	timer      *time.Timer
	onFinished func()
	logger     *zap.Logger
}

func NewDummyBackend(clipDuration time.Duration, logger *zap.Logger) *DummyBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clipDuration <= 0 {
		clipDuration = 3 * time.Second
	}
	return &DummyBackend{clip: clipDuration, logger: logger}
}

func (b *DummyBackend) OnFinished(fn func()) {
	b.mu.Lock()
	b.onFinished = fn
	b.mu.Unlock()
}

func (b *DummyBackend) Play(resource string, loop bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cancelLocked()
	b.logger.Info("dummy play", zap.String("file", resource), zap.Bool("loop", loop))
	if loop {
		return nil
	}
	gen := b.gen
	b.timer = time.AfterFunc(b.clip, func() { b.finish(gen) })
	return nil
}

func (b *DummyBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelLocked()
	b.logger.Info("dummy stop")
	return nil
}

func (b *DummyBackend) cancelLocked() {
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *DummyBackend) finish(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	fn := b.onFinished
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}
