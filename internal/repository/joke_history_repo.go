package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"nestor/internal/domain"
)

// JokeHistoryRepository persiste los turnos prompt/salida de una sesión de blagues.
type JokeHistoryRepository interface {
	Append(ctx context.Context, turn domain.JokeTurn) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.JokeTurn, error)
}

type PgJokeHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewPgJokeHistoryRepository(pool *pgxpool.Pool) *PgJokeHistoryRepository {
	return &PgJokeHistoryRepository{pool: pool}
}

// EnsureSchema crea la tabla si no existe.
func (r *PgJokeHistoryRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS joke_turns (
			id         UUID PRIMARY KEY,
			session_id TEXT NOT NULL,
			prompt     TEXT NOT NULL,
			output     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS joke_turns_session_idx ON joke_turns (session_id, created_at);
	`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

func (r *PgJokeHistoryRepository) Append(ctx context.Context, turn domain.JokeTurn) error {
	const query = `
		INSERT INTO joke_turns (id, session_id, prompt, output, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		turn.ID,
		turn.SessionID,
		turn.Prompt,
		turn.Output,
		turn.CreatedAt,
	)
	return err
}

func (r *PgJokeHistoryRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.JokeTurn, error) {
	const query = `
		SELECT id, session_id, prompt, output, created_at
		FROM joke_turns
		WHERE session_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.JokeTurn
	for rows.Next() {
		var turn domain.JokeTurn
		err = rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Prompt,
			&turn.Output,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return turns, nil
}
