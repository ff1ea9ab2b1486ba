package input

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	ModeConsole    = "console"
	ModeMicrophone = "microphone"
)

var (
	ErrNoCommand          = errors.New("speech recognition command not configured")
	ErrCommandUnavailable = errors.New("speech recognition command unavailable")
)

// Source entrega el siguiente texto del usuario. io.EOF termina el bucle.
type Source interface {
	Next(ctx context.Context) (string, error)
}

type line struct {
	text string
	err  error
}

// ConsoleSource lee líneas de un reader con el prompt "> ".
type ConsoleSource struct {
	out     io.Writer
	lines   chan line
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewConsoleSource(in io.Reader, out io.Writer) *ConsoleSource {
	c := &ConsoleSource{
		out:     out,
		lines:   make(chan line, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.scan(in)
	return c
}

// Close libera el lector en segundo plano. Una lectura ya bloqueada en el
// reader termina en cuanto éste devuelve.
func (c *ConsoleSource) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *ConsoleSource) Next(ctx context.Context) (string, error) {
	if c.out != nil {
		fmt.Fprint(c.out, "> ")
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

func (c *ConsoleSource) scan(in io.Reader) {
	defer close(c.stopped)
	defer close(c.lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if !c.send(line{text: strings.TrimSpace(sc.Text())}) {
			return
		}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	c.send(line{err: err})
}

func (c *ConsoleSource) send(l line) bool {
	select {
	case c.lines <- l:
		return true
	case <-c.done:
		return false
	}
}

// CommandSource ejecuta un comando de reconocimiento de voz por cada escucha
// y usa su salida estándar como transcripción.
type CommandSource struct {
	path   string
	args   []string
	out    io.Writer
	logger *zap.Logger
}

func NewCommandSource(command string, out io.Writer, logger *zap.Logger) (*CommandSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandUnavailable, fields[0])
	}
	return &CommandSource{path: path, args: fields[1:], out: out, logger: logger}, nil
}

// Next devuelve "" si el reconocimiento falla, como una frase no entendida.
func (c *CommandSource) Next(ctx context.Context) (string, error) {
	if c.out != nil {
		fmt.Fprintln(c.out, "(Écoute...)")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		c.logger.Warn("speech recognition failed",
			zap.Error(err),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
		)
		return "", nil
	}
	return strings.Join(strings.Fields(string(out)), " "), nil
}

// Open elige la fuente según el modo. El micrófono sin comando utilizable vuelve a la consola.
func Open(mode, command string, in io.Reader, out io.Writer, logger *zap.Logger) Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case ModeMicrophone:
		src, err := NewCommandSource(command, out, logger)
		if err == nil {
			return src
		}
		logger.Warn("microphone unavailable, falling back to console", zap.Error(err))
		if out != nil {
			fmt.Fprintln(out, "[Master] Micro indisponible, bascule en console.")
		}
	case "", ModeConsole:
	default:
		logger.Warn("unknown input mode, using console", zap.String("mode", mode))
	}
	return NewConsoleSource(in, out)
}
