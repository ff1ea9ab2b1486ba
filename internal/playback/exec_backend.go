package playback

import (
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

type execPlayback struct {
	cmd        *exec.Cmd
	loop       bool
	superseded bool
}

// ExecBackend controla un reproductor externo (mpv, ffplay, cvlc) como proceso hijo.
// El fin natural de un proceso sin loop se reporta como fin de media.
type ExecBackend struct {
	mu         sync.Mutex
	command    string
	args       []string
	loopFlag   string
	current    *execPlayback
	onFinished func()
	logger     *zap.Logger
}

// NewExecBackend crea el backend. loopFlag se agrega a los argumentos en reproducciones con loop.
func NewExecBackend(command string, args []string, loopFlag string, logger *zap.Logger) *ExecBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecBackend{
		command:  command,
		args:     append([]string(nil), args...),
		loopFlag: loopFlag,
		logger:   logger,
	}
}

func (b *ExecBackend) OnFinished(fn func()) {
	b.mu.Lock()
	b.onFinished = fn
	b.mu.Unlock()
}

func (b *ExecBackend) Play(resource string, loop bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()

	cmd := exec.Command(b.command, b.buildArgs(resource, loop)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", b.command, err)
	}
	pb := &execPlayback{cmd: cmd, loop: loop}
	b.current = pb
	go b.wait(pb)
	return nil
}

func (b *ExecBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	return nil
}

func (b *ExecBackend) buildArgs(resource string, loop bool) []string {
	args := append([]string(nil), b.args...)
	if loop && b.loopFlag != "" {
		args = append(args, b.loopFlag)
	}
	return append(args, resource)
}

func (b *ExecBackend) stopLocked() {
	if b.current == nil {
		return
	}
	b.current.superseded = true
	if b.current.cmd.Process != nil {
		_ = b.current.cmd.Process.Kill()
	}
	b.current = nil
}

func (b *ExecBackend) wait(pb *execPlayback) {
	err := pb.cmd.Wait()

	b.mu.Lock()
	superseded := pb.superseded
	if b.current == pb {
		b.current = nil
	}
	fn := b.onFinished
	b.mu.Unlock()

	if superseded {
		return
	}
	if err != nil {
		b.logger.Warn("player process exited with error", zap.String("command", b.command), zap.Error(err))
	}
	if !pb.loop && fn != nil {
		fn()
	}
}
