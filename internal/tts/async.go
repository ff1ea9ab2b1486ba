package tts

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// AsyncSpeaker serializa la síntesis en un único worker. Say no bloquea:
// si la cola está llena el texto se descarta con un warning.
type AsyncSpeaker struct {
	speaker Speaker
	queue   chan string
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAsyncSpeaker(speaker Speaker, queueSize int, logger *zap.Logger) *AsyncSpeaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &AsyncSpeaker{
		speaker: speaker,
		queue:   make(chan string, queueSize),
		logger:  logger,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go a.run(ctx)
	return a
}

// Say encola el texto. Devuelve false si fue descartado.
func (a *AsyncSpeaker) Say(text string) bool {
	if text == "" {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}
	select {
	case a.queue <- text:
		return true
	default:
		a.logger.Warn("tts queue full, dropping text", zap.Int("len", len(text)))
		return false
	}
}

// Close detiene el worker sin drenar la cola pendiente.
func (a *AsyncSpeaker) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	<-a.done
}

func (a *AsyncSpeaker) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-a.queue:
			if err := a.speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
				a.logger.Error("tts failed", zap.Error(err))
			}
		}
	}
}
