package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"nestor/internal/domain"
	"nestor/internal/llm"
	"nestor/internal/service"
)

func newTestRepl(input string, items []domain.JokeItem) (*repl, *bytes.Buffer, *llm.MockClient) {
	mock := &llm.MockClient{Response: "Ha ha"}
	var out bytes.Buffer
	return &repl{
		jokes:       service.NewJokeService(zap.NewNop(), mock, nil, items, service.JokeStyle{Emoji: true}),
		session:     domain.NewJokeSession("test"),
		historyPath: "data/sessions/test.jsonl",
		in:          strings.NewReader(input),
		out:         &out,
	}, &out, mock
}

func TestRepl_CommandsAndJokes(t *testing.T) {
	r, out, mock := newTestRepl(":help\n:compact\nles chats\n:bof\n:q\n", nil)
	if err := r.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"=== Nestor CLI ===",
		"Commandes: :compact (toggle), :q (quitter)",
		"Mode compact = ON (2 phrases max)",
		"--- Nestor ---\nHa ha",
		"Commande inconnue. Essayez :help",
		"Historique → data/sessions/test.jsonl\nÀ bientôt!",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	prompts := mock.Prompts()
	if len(prompts) != 1 || !strings.HasSuffix(prompts[0], "\nRéponds en 2 phrases maximum.") {
		t.Fatalf("expected one compact prompt, got %v", prompts)
	}
	if len(r.session.History) != 1 {
		t.Fatalf("expected one turn in history")
	}
}

func TestRepl_EmptyCorpusAndEOF(t *testing.T) {
	r, out, mock := newTestRepl("\n", nil)
	if err := r.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Corpus vide.") || !strings.Contains(out.String(), "À bientôt!") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if len(mock.Prompts()) != 0 {
		t.Fatalf("model must not be called without an item")
	}
}

func TestRepl_ThemeWithoutTrailingNewline(t *testing.T) {
	r, out, _ := newTestRepl("un thème", []domain.JokeItem{{Setup: "s", Punch: "p"}})
	if err := r.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "--- Nestor ---") || !strings.Contains(out.String(), "Historique →") {
		t.Fatalf("expected joke then exit:\n%s", out.String())
	}
}
