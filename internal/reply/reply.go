package reply

import (
	"context"
	"fmt"
	"strings"

	"nestor/internal/llm"
)

// Generator produce la respuesta hablada del avatar para una línea de entrada.
type Generator interface {
	Reply(ctx context.Context, text string) (string, error)
}

// Stub responde con frases fijas, sin modelo.
type Stub struct{}

func (Stub) Reply(_ context.Context, text string) (string, error) {
	return StubReply(text), nil
}

// StubReply es la respuesta de respaldo cuando no hay modelo disponible.
func StubReply(text string) string {
	t := strings.TrimSpace(text)
	switch {
	case t == "":
		return "Oui, je suis là."
	case strings.HasSuffix(t, "?"):
		return "Bonne question. Laisse-moi y penser une seconde."
	default:
		return "Je t'écoute. " + t
	}
}

const personaPrompt = "Tu es Nestor, ado ophanim/cartoon sympa. Garde un ton bienveillant et drôle. " +
	"Réponds en français, en %d phrases courtes maximum, sans emojis ni markdown."

// LLM genera la respuesta con un modelo de chat. Un texto vacío no llama al modelo.
type LLM struct {
	client    llm.LLMClient
	sentences int
}

func NewLLM(client llm.LLMClient, sentences int) *LLM {
	if sentences <= 0 {
		sentences = 2
	}
	return &LLM{client: client, sentences: sentences}
}

func (g *LLM) Reply(ctx context.Context, text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return StubReply(t), nil
	}
	prompt := fmt.Sprintf(personaPrompt, g.sentences) + "\n\nUtilisateur: " + t + "\nNestor:"
	out, err := g.client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return out, nil
}
