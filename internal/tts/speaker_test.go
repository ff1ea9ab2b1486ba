package tts

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
	block  chan struct{}
	err    error
}

func (r *recordingSpeaker) Speak(ctx context.Context, text string) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	r.mu.Unlock()
	return r.err
}

func (r *recordingSpeaker) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}

func TestDummySpeaker(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDummySpeaker(&buf).Speak(context.Background(), "bonjour"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "[TTS] bonjour\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestCommandSpeaker_Args(t *testing.T) {
	tests := []struct {
		name   string
		binary string
		voice  string
		rate   int
		want   string
	}{
		{"espeak uses -s", BackendEspeak, "fr", 175, "-v fr -s 175 -- salut"},
		{"say uses -r", BackendSay, "Thomas", 200, "-v Thomas -r 200 -- salut"},
		{"no voice no rate", BackendEspeak, "", 0, "-- salut"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(NewCommandSpeaker(tt.binary, tt.voice, tt.rate).args("salut"), " ")
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCommandSpeaker_TextNeverParsedAsOption(t *testing.T) {
	for _, text := range []string{"-w/tmp/x.wav", "--stdout", "-v"} {
		args := NewCommandSpeaker(BackendEspeak, "fr", 175).args(text)
		n := len(args)
		if n < 2 || args[n-2] != "--" || args[n-1] != text {
			t.Fatalf("expected %q after --, got %q", text, args)
		}
	}
}

func TestNewSpeaker_UnknownBackendFallsBackToDummy(t *testing.T) {
	if _, ok := NewSpeaker("pyttsx3", "", 0, zap.NewNop()).(*DummySpeaker); !ok {
		t.Fatalf("expected dummy speaker for unknown backend")
	}
	if _, ok := NewSpeaker("", "", 0, zap.NewNop()).(*DummySpeaker); !ok {
		t.Fatalf("expected dummy speaker by default")
	}
}

func TestAsyncSpeaker_SpeaksInOrder(t *testing.T) {
	rec := &recordingSpeaker{}
	a := NewAsyncSpeaker(rec, 8, zap.NewNop())
	defer a.Close()

	for _, s := range []string{"un", "deux", "trois"} {
		if !a.Say(s) {
			t.Fatalf("expected %q to be queued", s)
		}
	}

	deadline := time.Now().Add(time.Second)
	for len(rec.texts()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 texts spoken, got %v", rec.texts())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := strings.Join(rec.texts(), ","); got != "un,deux,trois" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestAsyncSpeaker_DropsWhenFull(t *testing.T) {
	rec := &recordingSpeaker{block: make(chan struct{})}
	a := NewAsyncSpeaker(rec, 1, zap.NewNop())
	defer a.Close()

	accepted := 0
	for i := 0; i < 5; i++ {
		if a.Say("texte") {
			accepted++
		}
	}
	// uno en el worker y uno en la cola como máximo.
	if accepted > 2 || accepted == 0 {
		t.Fatalf("expected 1 or 2 accepted texts, got %d", accepted)
	}
	close(rec.block)
}

func TestAsyncSpeaker_ErrorsDoNotStopWorker(t *testing.T) {
	rec := &recordingSpeaker{err: errors.New("boom")}
	a := NewAsyncSpeaker(rec, 4, zap.NewNop())
	defer a.Close()

	a.Say("a")
	a.Say("b")
	deadline := time.Now().Add(time.Second)
	for len(rec.texts()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("worker stopped after error, spoken %v", rec.texts())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAsyncSpeaker_CloseIsIdempotent(t *testing.T) {
	rec := &recordingSpeaker{block: make(chan struct{})}
	a := NewAsyncSpeaker(rec, 2, zap.NewNop())
	a.Say("bloqué")

	a.Close()
	a.Close()
	if a.Say("après") {
		t.Fatalf("expected Say after Close to be rejected")
	}
}
