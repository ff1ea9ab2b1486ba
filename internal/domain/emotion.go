package domain

import "time"

// IdleEmotion es la emoción obligatoria que se reproduce en bucle por defecto.
const IdleEmotion = "idle"

// TieBreaker define cómo se resuelven los empates de puntaje.
type TieBreaker string

const (
	TieBreakerPriority TieBreaker = "priority"
	TieBreakerFirst    TieBreaker = "first"
)

// Emotion describe una emoción configurada: clip asociado y disparadores ponderados.
type Emotion struct {
	Name        string
	File        string
	Loop        bool
	Description string
	Keywords    map[string]float64
	Phrases     map[string]float64
	Priority    int
}

// HasTriggers indica si la emoción puede puntuar alguna vez.
func (e Emotion) HasTriggers() bool {
	return len(e.Keywords) > 0 || len(e.Phrases) > 0
}

// RoutingStrategy agrupa los parámetros del clasificador. Inmutable después de la carga.
type RoutingStrategy struct {
	MinScoreToTrigger float64
	TieBreaker        TieBreaker
	Fallback          string
	Cooldown          time.Duration
}

// Profile es el perfil emocional completo cargado al inicio.
// Order conserva el orden de declaración, usado para desempates deterministas.
type Profile struct {
	Strategy RoutingStrategy
	Emotions map[string]Emotion
	Order    []string
}

// Ordered devuelve las emociones en orden de declaración.
func (p *Profile) Ordered() []Emotion {
	out := make([]Emotion, 0, len(p.Order))
	for _, name := range p.Order {
		if emo, ok := p.Emotions[name]; ok {
			out = append(out, emo)
		}
	}
	return out
}

// EmotionInfo es la vista de solo lectura expuesta por el reproductor.
type EmotionInfo struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Loop        bool   `json:"loop"`
	Description string `json:"description"`
}
