package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"nestor/internal/domain"
	"nestor/internal/service"
)

type repl struct {
	jokes       *service.JokeService
	session     *domain.JokeSession
	historyPath string
	compact     bool
	in          io.Reader
	out         io.Writer
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, "=== Nestor CLI ===")
	fmt.Fprintln(r.out, "• ENTER = blague au hasard")
	fmt.Fprintln(r.out, "• Entrez un thème pour une blague à la demande")
	fmt.Fprintln(r.out, "• Commandes: :compact (toggle 2 phrases max), :help, :q")
	fmt.Fprintln(r.out)

	reader := bufio.NewReader(r.in)
	for {
		fmt.Fprint(r.out, "Thème (ENTER aléatoire, :q quitter): ")
		line, err := reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			r.bye()
			return nil
		}
		raw := strings.TrimSpace(line)

		if strings.HasPrefix(raw, ":") {
			if !r.command(strings.ToLower(raw)) {
				return nil
			}
			continue
		}

		text, tellErr := r.jokes.Tell(ctx, r.session, raw, r.compact)
		switch {
		case errors.Is(tellErr, service.ErrEmptyCorpus):
			fmt.Fprintln(r.out, "Corpus vide. Entrez un thème.")
		case tellErr != nil:
			fmt.Fprintf(r.out, "Erreur: %v\n", tellErr)
		default:
			fmt.Fprintf(r.out, "\n--- Nestor ---\n%s\n\n", text)
		}
		if ctx.Err() != nil || err != nil {
			r.bye()
			return nil
		}
	}
}

// command devuelve false cuando hay que salir.
func (r *repl) command(cmd string) bool {
	switch cmd {
	case ":q", ":quit", ":exit":
		r.bye()
		return false
	case ":help":
		fmt.Fprintln(r.out, "Commandes: :compact (toggle), :q (quitter)")
	case ":compact":
		r.compact = !r.compact
		state := "OFF"
		if r.compact {
			state = "ON (2 phrases max)"
		}
		fmt.Fprintf(r.out, "Mode compact = %s\n", state)
	default:
		fmt.Fprintln(r.out, "Commande inconnue. Essayez :help")
	}
	return true
}

func (r *repl) bye() {
	fmt.Fprintf(r.out, "\nHistorique → %s\nÀ bientôt!\n", r.historyPath)
}
