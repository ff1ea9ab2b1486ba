package domain

import "time"

// JokeItem es una entrada del corpus de blagues.
type JokeItem struct {
	ID     any      `json:"id,omitempty"`
	Setup  string   `json:"setup,omitempty"`
	Text   string   `json:"text,omitempty"`
	Punch  string   `json:"punch,omitempty"`
	Answer string   `json:"answer,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// SetupText devuelve el setup, con "text" como alternativa.
func (j JokeItem) SetupText() string {
	if j.Setup != "" {
		return j.Setup
	}
	return j.Text
}

// PunchText devuelve la punchline, con "answer" como alternativa.
func (j JokeItem) PunchText() string {
	if j.Punch != "" {
		return j.Punch
	}
	return j.Answer
}

// JokeTurn es un intercambio prompt/salida de una sesión.
type JokeTurn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Prompt    string    `json:"prompt"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}

// JokeSession mantiene el estado de una sesión de blagues.
type JokeSession struct {
	ID      string
	Chakra  string
	Rating  string
	History []JokeTurn
}

// NewJokeSession crea una sesión con los valores por defecto.
func NewJokeSession(id string) *JokeSession {
	return &JokeSession{
		ID:     id,
		Chakra: "racine",
		Rating: "G",
	}
}
