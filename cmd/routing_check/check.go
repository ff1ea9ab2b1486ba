package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"nestor/internal/domain"
	"nestor/internal/emotion"
)

// Scenario es un texto y la emoción que el router debería elegir ("idle" si ninguna).
type Scenario struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Expect string `json:"expect"`
}

func loadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var out []Scenario
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}
	for i := range out {
		if out[i].Name == "" {
			out[i].Name = fmt.Sprintf("#%d", i+1)
		}
		if strings.TrimSpace(out[i].Expect) == "" {
			out[i].Expect = domain.IdleEmotion
		}
	}
	return out, nil
}

// runScenarios evalúa cada escenario con el cooldown ya vencido y devuelve cuántos pasaron.
func runScenarios(p *domain.Profile, scenarios []Scenario, out io.Writer) int {
	clock := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	router := emotion.NewRouter(p, nil, emotion.WithClock(func() time.Time { return clock }))

	passed := 0
	for _, sc := range scenarios {
		clock = clock.Add(p.Strategy.Cooldown + time.Second)

		fmt.Fprintf(out, "=== %s ===\n", sc.Name)
		got, score := router.Classify(sc.Text)
		if got == "" {
			got = domain.IdleEmotion
		}
		for _, s := range router.Scores(sc.Text) {
			if s.Score > 0 {
				fmt.Fprintf(out, "  %s: %.2f\n", s.Emotion, s.Score)
			}
		}
		if got == sc.Expect {
			fmt.Fprintf(out, "✅ PASS [%s] attendu=%s obtenu=%s score=%.2f\n\n", sc.Name, sc.Expect, got, score)
			passed++
		} else {
			fmt.Fprintf(out, "❌ FAIL [%s] attendu=%s obtenu=%s score=%.2f\n\n", sc.Name, sc.Expect, got, score)
		}
	}
	fmt.Fprintf(out, "Tests: %d/%d réussis\n", passed, len(scenarios))
	return passed
}
