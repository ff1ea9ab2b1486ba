package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

const (
	BackendDummy  = "dummy"
	BackendEspeak = "espeak"
	BackendSay    = "say"
)

// Speaker sintetiza texto hablado de forma bloqueante.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// DummySpeaker imprime el texto en lugar de hablarlo.
type DummySpeaker struct {
	out io.Writer
}

func NewDummySpeaker(out io.Writer) *DummySpeaker {
	if out == nil {
		out = os.Stdout
	}
	return &DummySpeaker{out: out}
}

func (d *DummySpeaker) Speak(_ context.Context, text string) error {
	_, err := fmt.Fprintf(d.out, "[TTS] %s\n", text)
	return err
}

// CommandSpeaker usa un sintetizador de línea de comandos (espeak, say).
type CommandSpeaker struct {
	binary string
	voice  string
	rate   int
}

func NewCommandSpeaker(binary, voice string, rate int) *CommandSpeaker {
	return &CommandSpeaker{binary: binary, voice: voice, rate: rate}
}

func (c *CommandSpeaker) Speak(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.binary, c.args(text)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w (%s)", c.binary, err, out)
	}
	return nil
}

func (c *CommandSpeaker) args(text string) []string {
	var args []string
	if c.voice != "" {
		args = append(args, "-v", c.voice)
	}
	if c.rate > 0 {
		// espeak usa -s para palabras por minuto, say usa -r.
		flag := "-r"
		if c.binary == BackendEspeak {
			flag = "-s"
		}
		args = append(args, flag, strconv.Itoa(c.rate))
	}
	// "--" impide que un texto como "-w/tmp/x.wav" se lea como opción.
	return append(args, "--", text)
}

// NewSpeaker elige el backend configurado. Si no está disponible se degrada a dummy.
func NewSpeaker(backend, voice string, rate int, logger *zap.Logger) Speaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch backend {
	case BackendEspeak, BackendSay:
		if _, err := exec.LookPath(backend); err != nil {
			logger.Warn("tts backend unavailable, using dummy", zap.String("backend", backend), zap.Error(err))
			return NewDummySpeaker(nil)
		}
		return NewCommandSpeaker(backend, voice, rate)
	case "", BackendDummy:
		return NewDummySpeaker(nil)
	default:
		logger.Warn("unknown tts backend, using dummy", zap.String("backend", backend))
		return NewDummySpeaker(nil)
	}
}
