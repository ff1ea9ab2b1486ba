package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"nestor/internal/domain"
	"nestor/internal/input"
)

type emotionPlayer interface {
	Trigger(name string) error
	ListEmotions() []domain.EmotionInfo
}

// runConsole lee comandos hasta quit, EOF o cancelación del contexto.
func runConsole(ctx context.Context, src input.Source, player emotionPlayer, out io.Writer) {
	fmt.Fprintln(out, "Nestor Player prêt. Tape une émotion, 'list' ou 'quit'.")
	for {
		cmd, err := src.Next(ctx)
		if err != nil {
			fmt.Fprintln(out)
			return
		}
		switch strings.ToLower(cmd) {
		case "":
			continue
		case "quit", "exit", "q":
			return
		case "list":
			for _, emo := range player.ListEmotions() {
				fmt.Fprintf(out, "- %s: %s\n", emo.Name, emo.Description)
			}
			continue
		}
		if err := player.Trigger(cmd); err != nil {
			fmt.Fprintf(out, "Émotion inconnue: %s\n", cmd)
		}
	}
}
